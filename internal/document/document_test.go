package document

import (
	"encoding/json"
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#e94560", want: color.NRGBA{0xe9, 0x45, 0x60, 0xff}},
		{in: "#fff", want: color.NRGBA{0xff, 0xff, 0xff, 0xff}},
		{in: "#00000080", want: color.NRGBA{0, 0, 0, 0x80}},
		{in: "Red", want: color.NRGBA{0xff, 0, 0, 0xff}},
		{in: "#12345", wantErr: true},
		{in: "#gggggg", wantErr: true},
		{in: "nocolor", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) succeeded", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseColor(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestSampleDocumentJSON(t *testing.T) {
	doc := NewSampleDocument()

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	var back Document
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back.Shapes) != len(doc.Shapes) {
		t.Fatalf("shapes = %d, want %d", len(back.Shapes), len(doc.Shapes))
	}
	card := back.Shapes[1]
	if card.Transform == nil || card.ConstraintH == nil || *card.ConstraintH != 4 {
		t.Errorf("card lost optional fields: %+v", card)
	}
	if back.Shapes[0].Transform != nil {
		t.Error("identity transform should be omitted")
	}
}
