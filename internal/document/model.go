package document

type Document struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Background string      `json:"background"`
	Viewbox    Viewbox     `json:"viewbox"`
	Shapes     []ShapeData `json:"shapes"`
}

type Viewbox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Zoom   float64 `json:"zoom"`
}

// ShapeData is a shape as it is stored and exchanged. Shapes are listed in
// painter's order, back to front.
type ShapeData struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	// Selrect is x, y, width, height before the transform is applied.
	Selrect [4]float64 `json:"selrect"`
	// Transform is [a b c d e f] around the selrect center; omitted means
	// identity.
	Transform   *[6]float64  `json:"transform,omitempty"`
	Rotation    float64      `json:"rotation,omitempty"`
	ConstraintH *uint8       `json:"constraintH,omitempty"`
	ConstraintV *uint8       `json:"constraintV,omitempty"`
	Hidden      bool         `json:"hidden,omitempty"`
	Masked      bool         `json:"masked,omitempty"`
	Opacity     *float64     `json:"opacity,omitempty"`
	Children    []string     `json:"children,omitempty"`
	Fills       []FillData   `json:"fills,omitempty"`
	Strokes     []StrokeData `json:"strokes,omitempty"`
}

type FillType string

const (
	FillSolid  FillType = "solid"
	FillLinear FillType = "linear"
	FillRadial FillType = "radial"
)

type FillData struct {
	Type  FillType `json:"type"`
	Color string   `json:"color,omitempty"`

	Start   [2]float64 `json:"start,omitempty"`
	End     [2]float64 `json:"end,omitempty"`
	Opacity float64    `json:"opacity,omitempty"`
	Width   float64    `json:"width,omitempty"`
	Stops   []StopData `json:"stops,omitempty"`
}

type StopData struct {
	Color  string  `json:"color"`
	Offset float64 `json:"offset"`
}

type StrokeData struct {
	Kind  string   `json:"kind"`
	Width float64  `json:"width"`
	Fill  FillData `json:"fill"`
}

// NewEmptyDocument creates a document with no shapes and a 1280x720 view.
func NewEmptyDocument(id, name string) *Document {
	return &Document{
		ID:         id,
		Name:       name,
		Background: "#1a1a2e",
		Viewbox:    Viewbox{Width: 1280, Height: 720, Zoom: 1},
		Shapes:     []ShapeData{},
	}
}
