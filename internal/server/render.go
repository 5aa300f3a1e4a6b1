package server

import (
	"context"
	"encoding/hex"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"grand-strategy/internal/world"
)

const (
	mapScale      = 8
	mapMargin     = 16
	territoryDot  = 5
	unownedColor  = "#9a9a9a"
	edgeColor     = "#cccccc"
	mapBackground = "#1e2a38"
)

// SVGRenderer draws territories as dots colored by owner and writes the
// result under Dir. Files are named by content hash so identical maps share
// a file.
type SVGRenderer struct {
	Dir string
}

// Render writes the map and returns its file name relative to Dir.
func (r *SVGRenderer) Render(ctx context.Context, w *world.World, colors map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	svg := drawSVG(w, colors)

	sum := blake3.Sum256(svg)
	name := fmt.Sprintf("%s-%s.svg", w.Name, hex.EncodeToString(sum[:8]))
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create map directory: %w", err)
	}
	path := filepath.Join(r.Dir, name)
	if _, err := os.Stat(path); err == nil {
		return name, nil
	}
	if err := os.WriteFile(path, svg, 0o644); err != nil {
		return "", fmt.Errorf("failed to write map: %w", err)
	}
	return name, nil
}

func drawSVG(w *world.World, colors map[string]string) []byte {
	// The drawing is shifted so the smallest coordinate lands on the margin.
	var minX, minY, maxX, maxY float64
	for i, t := range w.Territories {
		if i == 0 {
			minX, maxX = t.Position.X, t.Position.X
			minY, maxY = t.Position.Y, t.Position.Y
			continue
		}
		minX, maxX = min(minX, t.Position.X), max(maxX, t.Position.X)
		minY, maxY = min(minY, t.Position.Y), max(maxY, t.Position.Y)
	}
	px := func(v float64) float64 { return (v-minX)*mapScale + mapMargin }
	py := func(v float64) float64 { return (v-minY)*mapScale + mapMargin }

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f">`,
		px(maxX)+mapMargin, py(maxY)+mapMargin)
	fmt.Fprintf(&b, `<rect width="100%%" height="100%%" fill="%s"/>`, mapBackground)

	// Edges first so dots sit on top; each edge is drawn once.
	for _, t := range w.Territories {
		for _, id := range t.NeighborIDs() {
			if id < t.ID {
				continue
			}
			o := w.Territories[id]
			fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>`,
				px(t.Position.X), py(t.Position.Y), px(o.Position.X), py(o.Position.Y), edgeColor)
		}
	}
	for _, t := range w.Territories {
		fill, ok := colors[t.Name]
		if !ok {
			fill = unownedColor
		}
		fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="%d" fill="%s"><title>%s</title></circle>`,
			px(t.Position.X), py(t.Position.Y), territoryDot, html.EscapeString(fill), html.EscapeString(t.Name))
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}
