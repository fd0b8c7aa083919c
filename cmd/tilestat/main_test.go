package main

import (
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/engine"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

func TestCellText(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "·"},
		{3, "3"},
		{99, "99"},
		{150, "99+"},
	}
	for _, tt := range tests {
		if got := cellText(tt.n); got != tt.want {
			t.Errorf("cellText(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestExtentCoversOccupiedTiles(t *testing.T) {
	e, err := engine.NewEngine(engine.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.LoadDocument(document.NewSampleDocument()); err != nil {
		t.Fatal(err)
	}

	r := extent(e)
	want := tiles.Range{SX: 0, SY: 0, EX: 2, EY: 1}
	if r != want {
		t.Errorf("extent = %+v, want %+v", r, want)
	}

	// Panned far away, the grid stays capped around the visible range.
	vb := e.Viewbox()
	vb.Area.X = 512 * 100
	if err := e.SetViewbox(vb); err != nil {
		t.Fatal(err)
	}
	r = extent(e)
	if span := r.EX - r.SX + 1; span > maxSpan {
		t.Errorf("extent spans %d columns", span)
	}
	if !r.Contains(tiles.Tile{X: e.VisibleTiles().SX, Y: 0}) {
		t.Errorf("extent %+v lost the visible range", r)
	}
}

func TestRunWritesPreview(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	o := options{tileSize: tiles.TileSize, capacity: 4, policy: "skipinuse", frames: 2, pngPath: out}
	if err := run(o); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1280 || b.Dy() != 720 {
		t.Errorf("preview size = %v", b)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		o    options
	}{
		{"policy", options{policy: "lru"}},
		{"missing file", options{policy: "skipinuse", docPath: filepath.Join(t.TempDir(), "nope.json")}},
		{"bad json", options{policy: "skipinuse", docPath: bad}},
		{"zoom", options{policy: "skipinuse", zoom: 1e6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.o); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReport(t *testing.T) {
	e, err := engine.NewEngine(engine.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if err := e.LoadDocument(document.NewSampleDocument()); err != nil {
		t.Fatal(err)
	}
	_, stats, err := e.Frame()
	if err != nil {
		t.Fatal(err)
	}

	out := report(e, stats)
	for _, want := range []string{"6 shapes", "5 drawn", "1 empty", "cached", "off-screen"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}
