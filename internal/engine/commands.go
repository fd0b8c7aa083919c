package engine

import (
	"encoding/json"
	"image/color"

	"github.com/inamate/inamate/render-core/internal/shape"
	"github.com/inamate/inamate/render-core/internal/surface"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

// DrawCommand is a single drawing operation for a Canvas2D frontend. The
// frontend keeps one offscreen canvas per tile key and replays the buffer in
// order.
type DrawCommand struct {
	Op        string      `json:"op"`                  // "begin", "shape", "end", "present", "save", "clip", "restore"
	Tile      *tiles.Tile `json:"tile,omitempty"`      // Tile the op belongs to
	ObjectID  string      `json:"objectId,omitempty"`  // For hit correlation
	Transform []float64   `json:"transform,omitempty"` // [a, b, c, d, e, f] from selrect space to target pixels
	Selrect   []float64   `json:"selrect,omitempty"`   // x, y, width, height
	Kind      string      `json:"kind,omitempty"`      // Shape type
	Fill      string      `json:"fill,omitempty"`      // Primary fill color
	Stroke    string      `json:"stroke,omitempty"`
	Width     float64     `json:"strokeWidth,omitempty"`
	Opacity   float64     `json:"opacity,omitempty"`
	Rect      []int       `json:"rect,omitempty"` // Device rect x, y, width, height for "present" and "clip"
}

// CommandDrawer records draw commands instead of painting. Pooled surfaces
// only do bookkeeping here; the frontend owns the real canvases.
type CommandDrawer struct {
	Commands []DrawCommand
}

func (c *CommandDrawer) DrawTile(_ surface.Surface, view TileView, shapes []*shape.Shape) error {
	t := view.Tile
	c.Commands = append(c.Commands, DrawCommand{Op: "begin", Tile: &t})
	c.shapes(view, shapes, false)
	c.Commands = append(c.Commands, DrawCommand{Op: "end", Tile: &t})
	return nil
}

func (c *CommandDrawer) DrawDirect(view TileView, shapes []*shape.Shape) error {
	t := view.Tile
	b := view.Bounds()
	c.Commands = append(c.Commands,
		DrawCommand{Op: "save"},
		DrawCommand{Op: "clip", Tile: &t, Rect: []int{b.Min.X, b.Min.Y, b.Dx(), b.Dy()}},
	)
	c.shapes(view, shapes, true)
	c.Commands = append(c.Commands, DrawCommand{Op: "restore"})
	return nil
}

func (c *CommandDrawer) Present(_ surface.Surface, view TileView) error {
	t := view.Tile
	b := view.Bounds()
	c.Commands = append(c.Commands, DrawCommand{
		Op:   "present",
		Tile: &t,
		Rect: []int{b.Min.X, b.Min.Y, b.Dx(), b.Dy()},
	})
	return nil
}

func (c *CommandDrawer) shapes(view TileView, shapes []*shape.Shape, viewport bool) {
	m := view.Matrix()
	if viewport {
		m = m.PostTranslate(float64(view.Offset.X), float64(view.Offset.Y))
	}
	for _, s := range shapes {
		if s.Hidden {
			continue
		}
		cmd := DrawCommand{
			Op:        "shape",
			ObjectID:  s.ID.String(),
			Kind:      s.Type.String(),
			Transform: m.Multiply(s.Transform.About(s.Center())).ToSlice(),
			Selrect:   []float64{s.Selrect.X, s.Selrect.Y, s.Selrect.Width, s.Selrect.Height},
			Opacity:   s.Opacity,
		}
		if c, ok := primaryColor(s.Fills); ok {
			cmd.Fill = hexColor(c)
		}
		if len(s.Strokes) > 0 {
			if c, ok := primaryColor([]shape.Fill{s.Strokes[0].Fill}); ok {
				cmd.Stroke = hexColor(c)
				cmd.Width = s.Strokes[0].Width
			}
		}
		c.Commands = append(c.Commands, cmd)
	}
}

// primaryColor picks the color a flat preview paints with: the last solid
// fill, or the first stop of the last gradient.
func primaryColor(fills []shape.Fill) (color.NRGBA, bool) {
	if len(fills) == 0 {
		return color.NRGBA{}, false
	}
	f := fills[len(fills)-1]
	if f.Kind == shape.FillSolid || f.Gradient == nil {
		return f.Color, true
	}
	if len(f.Gradient.Stops) == 0 {
		return color.NRGBA{}, false
	}
	return f.Gradient.Stops[0].Color, true
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// Frame renders the next frame as a command buffer.
func (e *Engine) Frame() ([]DrawCommand, FrameStats, error) {
	var d CommandDrawer
	stats, err := e.Render(&d)
	return d.Commands, stats, err
}
