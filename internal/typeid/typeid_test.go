package typeid

import (
	"strings"
	"testing"
)

func TestNewAndValidate(t *testing.T) {
	id := NewSessionID()
	if !strings.HasPrefix(id, PrefixSession+"_") {
		t.Fatalf("id %q lacks prefix", id)
	}
	if err := Validate(id, PrefixSession); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := Validate(id, PrefixClient); err == nil {
		t.Error("Validate accepted the wrong prefix")
	}
	if err := Validate("not-an-id", PrefixSession); err == nil {
		t.Error("Validate accepted garbage")
	}
}
