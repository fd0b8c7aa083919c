// tilestat prints the tile occupancy of a document: which tiles hold
// shapes, which are visible, and what the next frame would do with each.
//
// Run: go run ./cmd/tilestat -doc scene.json -zoom 2
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/inamate/inamate/render-core/internal/document"
	"github.com/inamate/inamate/render-core/internal/engine"
	"github.com/inamate/inamate/render-core/internal/surface"
	"github.com/inamate/inamate/render-core/internal/tiles"
)

// maxSpan bounds the printed grid in each direction.
const maxSpan = 48

var (
	bg          = lipgloss.Color("#0a0a0a")
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#333333")).Background(bg)
	drawStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00")).Background(bg).Bold(true)
	cachedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00d4a0")).Background(bg).Bold(true)
	hiddenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7c3aed")).Background(bg)
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffcc")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#243141")).Padding(0, 1)
)

type options struct {
	docPath        string
	x, y, w, h     float64
	zoom           float64
	tileSize       int
	capacity       int
	policy         string
	frames         int
	pngPath        string
	originExplicit bool
}

func main() {
	var o options
	flag.StringVar(&o.docPath, "doc", "", "document JSON file (default: sample scene)")
	flag.Float64Var(&o.x, "x", 0, "viewbox x (default: document's)")
	flag.Float64Var(&o.y, "y", 0, "viewbox y (default: document's)")
	flag.Float64Var(&o.w, "w", 0, "viewbox width (default: document's)")
	flag.Float64Var(&o.h, "h", 0, "viewbox height (default: document's)")
	flag.Float64Var(&o.zoom, "zoom", 0, "viewbox zoom (default: document's)")
	flag.IntVar(&o.tileSize, "tile", tiles.TileSize, "tile size in device pixels")
	flag.IntVar(&o.capacity, "capacity", surface.DefaultCapacity, "surface pool capacity")
	flag.StringVar(&o.policy, "policy", "skipinuse", "pool policy: roundrobin or skipinuse")
	flag.IntVar(&o.frames, "frames", 1, "frames to render before printing")
	flag.StringVar(&o.pngPath, "png", "", "write a preview of the last frame to this file")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "x" || f.Name == "y" {
			o.originExplicit = true
		}
	})

	if err := run(o); err != nil {
		slog.Error("tilestat", "error", err)
		os.Exit(1)
	}
}

func run(o options) error {
	policy, err := surface.ParsePolicy(o.policy)
	if err != nil {
		return err
	}
	e, err := engine.NewEngine(engine.Options{
		TileSize:     o.tileSize,
		PoolCapacity: o.capacity,
		PoolPolicy:   policy,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	if err != nil {
		return err
	}

	if o.docPath == "" {
		err = e.LoadDocument(document.NewSampleDocument())
	} else {
		var data []byte
		if data, err = os.ReadFile(o.docPath); err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		err = e.LoadDocumentJSON(data)
	}
	if err != nil {
		return err
	}

	vb := e.Viewbox()
	if o.originExplicit {
		vb.Area.X, vb.Area.Y = o.x, o.y
	}
	if o.w > 0 {
		vb.Area.Width = o.w
	}
	if o.h > 0 {
		vb.Area.Height = o.h
	}
	if o.zoom > 0 {
		vb.Zoom = o.zoom
	}
	if err := e.SetViewbox(vb); err != nil {
		return err
	}

	var stats engine.FrameStats
	for range max(o.frames, 1) {
		if _, stats, err = e.Frame(); err != nil {
			return err
		}
	}

	fmt.Println(report(e, stats))

	if o.pngPath != "" {
		img, _, err := e.RenderPreview()
		if err != nil {
			return err
		}
		f, err := os.Create(o.pngPath)
		if err != nil {
			return fmt.Errorf("create preview: %w", err)
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("encode preview: %w", err)
		}
	}
	return nil
}

// extent returns the range covering the visible tiles and every occupied
// tile, clipped to maxSpan around the visible range.
func extent(e *engine.Engine) tiles.Range {
	vis := e.VisibleTiles()
	r := vis
	for _, s := range e.Shapes() {
		for _, t := range e.TilesOf(s.ID) {
			r.SX, r.SY = min(r.SX, t.X), min(r.SY, t.Y)
			r.EX, r.EY = max(r.EX, t.X), max(r.EY, t.Y)
		}
	}
	r.SX = max(r.SX, vis.SX-maxSpan/2)
	r.SY = max(r.SY, vis.SY-maxSpan/2)
	r.EX = min(r.EX, r.SX+maxSpan-1)
	r.EY = min(r.EY, r.SY+maxSpan-1)
	return r
}

// cellText is what a tile shows: its shape count, or a dot when empty.
func cellText(n int) string {
	if n == 0 {
		return "·"
	}
	if n > 99 {
		return "99+"
	}
	return strconv.Itoa(n)
}

// grid renders one row per tile row. Visible tiles are colored by what the
// next frame does with them; tiles outside the viewbox that hold shapes are
// dimmed.
func grid(e *engine.Engine) string {
	r := extent(e)
	vis := e.VisibleTiles()
	const cellWidth = 4

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%*s", cellWidth+1, "")))
	for tx := r.SX; tx <= r.EX; tx++ {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%*d", cellWidth, tx)))
	}
	b.WriteByte('\n')

	for ty := r.SY; ty <= r.EY; ty++ {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%*d ", cellWidth, ty)))
		for tx := r.SX; tx <= r.EX; tx++ {
			t := tiles.Tile{X: tx, Y: ty}
			n := e.TileShapeCount(t)
			style := emptyStyle
			switch {
			case !vis.Contains(t) && n > 0:
				style = hiddenStyle
			case !vis.Contains(t):
			case e.TileCached(t):
				style = cachedStyle
			case n > 0:
				style = drawStyle
			}
			b.WriteString(style.Render(fmt.Sprintf("%*s", cellWidth, cellText(n))))
		}
		if ty < r.EY {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func report(e *engine.Engine, stats engine.FrameStats) string {
	vb := e.Viewbox()
	capacity, inUse := e.PoolStats()

	title := titleStyle.Render(fmt.Sprintf("%s  %d shapes", e.DocumentID(), e.Len()))
	summary := fmt.Sprintf(
		"viewbox %.0f,%.0f %.0fx%.0f @%gx  tiles %v\nframe: %d cached, %d drawn, %d direct, %d empty, %d evicted\npool: %d/%d in use",
		vb.Area.X, vb.Area.Y, vb.Area.Width, vb.Area.Height, vb.Zoom, e.VisibleTiles(),
		stats.Cached, stats.Drawn, stats.Direct, stats.Empty, stats.Evicted,
		inUse, capacity,
	)
	legend := lipgloss.JoinHorizontal(lipgloss.Top,
		cachedStyle.Render(" cached "), " ",
		drawStyle.Render(" draw "), " ",
		emptyStyle.Render(" empty "), " ",
		hiddenStyle.Render(" off-screen "),
	)
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, summary, "", grid(e), "", legend))
}
