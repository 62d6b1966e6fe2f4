package render

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/inksite/pkg/lines"
)

// Mode selects the image bounds of a rendered page.
type Mode int

const (
	// ModeCanvas renders the full device canvas.
	ModeCanvas Mode = iota
	// ModeCrop renders the bounding box of the ink plus padding.
	ModeCrop
)

func (m Mode) String() string {
	if m == ModeCrop {
		return "crop"
	}
	return "canvas"
}

// PageRenderer renders one page file to SVG. Implementations must be safe for
// concurrent use and deterministic.
type PageRenderer interface {
	RenderPage(page []byte, mode Mode, template string) ([]byte, error)
}

// Defaults for [LinesRenderer].
const (
	DefaultPadding   = 10.0
	DefaultThreshold = 2.0
)

const highlighterOpacity = 0.35

var palette = map[lines.Color]string{
	lines.ColorBlack:  "#000000",
	lines.ColorGrey:   "#7f7f7f",
	lines.ColorWhite:  "#ffffff",
	lines.ColorYellow: "#fff35c",
	lines.ColorGreen:  "#8cd66e",
	lines.ColorPink:   "#f6a1c9",
}

// LinesOption configures a [LinesRenderer].
type LinesOption func(*LinesRenderer)

// WithPadding sets the margin around the ink in [ModeCrop].
func WithPadding(p float64) LinesOption { return func(r *LinesRenderer) { r.padding = p } }

// WithThreshold sets the minimum distance between consecutive points kept in
// a polyline. Zero keeps every point.
func WithThreshold(t float64) LinesOption { return func(r *LinesRenderer) { r.threshold = t } }

// LinesRenderer renders pages in the binary lines format.
type LinesRenderer struct {
	padding   float64
	threshold float64
}

// NewLinesRenderer returns a renderer with the default padding and threshold.
func NewLinesRenderer(opts ...LinesOption) *LinesRenderer {
	r := &LinesRenderer{padding: DefaultPadding, threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderPage decodes page and writes it as SVG.
func (r *LinesRenderer) RenderPage(page []byte, mode Mode, template string) ([]byte, error) {
	p, err := lines.Parse(page)
	if err != nil {
		return nil, err
	}

	x, y, w, h := 0.0, 0.0, float64(lines.Width), float64(lines.Height)
	if mode == ModeCrop {
		if minX, minY, maxX, maxY, ok := p.Bounds(); ok {
			x, y = minX-r.padding, minY-r.padding
			w, h = maxX-minX+2*r.padding, maxY-minY+2*r.padding
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%s %s %s %s" width="%s" height="%s">`+"\n",
		num(x), num(y), num(w), num(h), num(w), num(h))
	renderBackground(&buf, template)

	for i, layer := range p.Layers {
		fmt.Fprintf(&buf, `<g class="layer" id="layer-%d">`+"\n", i)
		for _, s := range layer.Strokes {
			r.renderStroke(&buf, s)
		}
		buf.WriteString("</g>\n")
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

func (r *LinesRenderer) renderStroke(buf *bytes.Buffer, s lines.Stroke) {
	if s.Pen.IsEraser() || len(s.Points) == 0 {
		return
	}
	pts := simplify(s.Points, r.threshold)

	color, ok := palette[s.Color]
	if !ok {
		color = palette[lines.ColorBlack]
	}
	opacity := ""
	if s.Pen.IsHighlighter() {
		opacity = fmt.Sprintf(` stroke-opacity="%s"`, num(highlighterOpacity))
	}

	buf.WriteString(`<polyline fill="none" stroke-linecap="round" stroke-linejoin="round" points="`)
	for i, pt := range pts {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(buf, "%s,%s", num(float64(pt.X)), num(float64(pt.Y)))
	}
	fmt.Fprintf(buf, `" stroke="%s" stroke-width="%s"%s/>`+"\n", color, num(strokeWidth(s)), opacity)
}

// simplify drops points closer than threshold to the last kept point. The
// final point is always kept, and a single point is doubled so that round
// caps draw a dot.
func simplify(pts []lines.Point, threshold float64) []lines.Point {
	out := []lines.Point{pts[0]}
	for _, pt := range pts[1:] {
		last := out[len(out)-1]
		if math.Hypot(float64(pt.X-last.X), float64(pt.Y-last.Y)) >= threshold {
			out = append(out, pt)
		}
	}
	if end := pts[len(pts)-1]; len(pts) > 1 && out[len(out)-1] != end {
		out = append(out, end)
	}
	if len(out) == 1 {
		out = append(out, out[0])
	}
	return out
}

// strokeWidth is the mean sampled width, falling back to the tool width.
func strokeWidth(s lines.Stroke) float64 {
	var sum float64
	for _, pt := range s.Points {
		sum += float64(pt.Width)
	}
	if sum > 0 {
		return sum / float64(len(s.Points))
	}
	if s.Width > 0 {
		return float64(s.Width)
	}
	return 1
}

// Background template kinds derived from the template name.
const (
	bgBlank = iota
	bgLined
	bgGrid
	bgDotted
)

func templateKind(name string) int {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "grid"):
		return bgGrid
	case strings.Contains(n, "dot"):
		return bgDotted
	case strings.Contains(n, "line"):
		return bgLined
	default:
		return bgBlank
	}
}

func templateSpacing(name string) float64 {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "small") || strings.HasSuffix(n, " s"):
		return 34
	case strings.Contains(n, "large") || strings.HasSuffix(n, " l"):
		return 70
	default:
		return 52
	}
}

func renderBackground(buf *bytes.Buffer, template string) {
	kind := templateKind(template)
	if kind == bgBlank {
		return
	}
	s := num(templateSpacing(template))

	buf.WriteString("<defs>")
	fmt.Fprintf(buf, `<pattern id="template" width="%s" height="%s" patternUnits="userSpaceOnUse">`, s, s)
	switch kind {
	case bgLined:
		fmt.Fprintf(buf, `<line x1="0" y1="%s" x2="%s" y2="%s" stroke="#c8c8c8" stroke-width="1"/>`, s, s, s)
	case bgGrid:
		fmt.Fprintf(buf, `<path d="M %s 0 L 0 0 0 %s" fill="none" stroke="#c8c8c8" stroke-width="1"/>`, s, s)
	case bgDotted:
		buf.WriteString(`<circle cx="1.5" cy="1.5" r="1.5" fill="#c8c8c8"/>`)
	}
	buf.WriteString("</pattern></defs>\n")
	fmt.Fprintf(buf, `<rect class="template" x="0" y="0" width="%d" height="%d" fill="url(#template)"/>`+"\n",
		lines.Width, lines.Height)
}

// num formats a coordinate with at most two decimals and no trailing zeros.
func num(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}
