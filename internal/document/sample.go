package document

import (
	"github.com/google/uuid"

	"github.com/inamate/inamate/render-core/internal/typeid"
)

// NewSampleDocument returns a small scene spread over several tiles: a
// plain rect, a rotated card, a gradient banner crossing a tile boundary and
// a masked group.
func NewSampleDocument() *Document {
	rectID := uuid.NewString()
	cardID := uuid.NewString()
	bannerID := uuid.NewString()
	groupID := uuid.NewString()
	maskID := uuid.NewString()
	dotID := uuid.NewString()

	half := 0.5
	rotated := [6]float64{0.8660254037844387, 0.5, -0.5, 0.8660254037844387, 0, 0}
	scale := uint8(4)

	return &Document{
		ID:         typeid.NewDocumentID(),
		Name:       "Untitled",
		Background: "#1a1a2e",
		Viewbox:    Viewbox{Width: 1280, Height: 720, Zoom: 1},
		Shapes: []ShapeData{
			{
				ID:      rectID,
				Type:    "rect",
				Selrect: [4]float64{200, 200, 200, 150},
				Fills:   []FillData{{Type: FillSolid, Color: "#e94560"}},
				Strokes: []StrokeData{{Kind: "center", Width: 2, Fill: FillData{Type: FillSolid, Color: "#000000"}}},
			},
			{
				ID:          cardID,
				Type:        "rect",
				Selrect:     [4]float64{600, 260, 160, 100},
				Transform:   &rotated,
				Rotation:    30,
				ConstraintH: &scale,
				Fills:       []FillData{{Type: FillSolid, Color: "#0f3460"}},
			},
			{
				ID:      bannerID,
				Type:    "rect",
				Selrect: [4]float64{420, 480, 400, 80},
				Fills: []FillData{{
					Type:    FillLinear,
					Start:   [2]float64{0, 0.5},
					End:     [2]float64{1, 0.5},
					Opacity: 1,
					Stops: []StopData{
						{Color: "#53d769", Offset: 0},
						{Color: "#2d6a4f", Offset: 1},
					},
				}},
			},
			{
				ID:       groupID,
				Type:     "group",
				Selrect:  [4]float64{900, 100, 240, 240},
				Masked:   true,
				Children: []string{maskID, dotID},
			},
			{
				ID:      maskID,
				Type:    "circle",
				Selrect: [4]float64{900, 100, 240, 240},
				Fills:   []FillData{{Type: FillSolid, Color: "white"}},
			},
			{
				ID:      dotID,
				Type:    "circle",
				Selrect: [4]float64{960, 160, 120, 120},
				Opacity: &half,
				Fills:   []FillData{{Type: FillSolid, Color: "#f5a623"}},
			},
		},
	}
}
