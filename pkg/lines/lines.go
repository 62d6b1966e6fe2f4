// Package lines decodes the binary page format of handwritten notebooks.
//
// A page file starts with a fixed 43-byte ASCII header naming the format
// version, followed by little-endian layers of strokes:
//
//	header   [43]byte  "reMarkable .lines file, version=5" padded with spaces
//	layers   int32
//	  strokes  int32
//	    pen      int32
//	    color    int32
//	    _        int32
//	    width    float32
//	    _        int32     (version 5 only)
//	    points   int32
//	      x, y, speed, direction, width, pressure  float32
//
// Versions 3 and 5 are supported. [Encode] writes the version 5 layout and
// exists mainly to build fixtures.
package lines

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/matzehuels/inksite/pkg/errors"
)

// Page dimensions of the device canvas, in device units.
const (
	Width  = 1404
	Height = 1872
)

const (
	headerLen    = 43
	headerPrefix = "reMarkable .lines file, version="
)

// Pen identifies the tool a stroke was drawn with.
type Pen int32

// Pen tools. The "v2" tools were introduced by later firmware and render the
// same way as their originals.
const (
	PenBrush         Pen = 0
	PenPencilTilt    Pen = 1
	PenBallpoint     Pen = 2
	PenMarker        Pen = 3
	PenFineliner     Pen = 4
	PenHighlighter   Pen = 5
	PenEraser        Pen = 6
	PenSharpPencil   Pen = 7
	PenEraseArea     Pen = 8
	PenBrushV2       Pen = 12
	PenMechPencilV2  Pen = 13
	PenPencilV2      Pen = 14
	PenBallpointV2   Pen = 15
	PenMarkerV2      Pen = 16
	PenFinelinerV2   Pen = 17
	PenHighlighterV2 Pen = 18
	PenCalligraphy   Pen = 21
)

// IsEraser reports whether strokes of p remove ink rather than add it.
func (p Pen) IsEraser() bool { return p == PenEraser || p == PenEraseArea }

// IsHighlighter reports whether p draws translucent strokes.
func (p Pen) IsHighlighter() bool { return p == PenHighlighter || p == PenHighlighterV2 }

// Color is the ink color index of a stroke.
type Color int32

// Ink colors.
const (
	ColorBlack  Color = 0
	ColorGrey   Color = 1
	ColorWhite  Color = 2
	ColorYellow Color = 3
	ColorGreen  Color = 4
	ColorPink   Color = 5
)

// Point is one sample of a stroke.
type Point struct {
	X, Y      float32
	Speed     float32
	Direction float32
	Width     float32
	Pressure  float32
}

// Stroke is a polyline drawn with a single tool.
type Stroke struct {
	Pen    Pen
	Color  Color
	Width  float32
	Points []Point
}

// Layer is an ordered list of strokes.
type Layer struct {
	Strokes []Stroke
}

// Page is a decoded page file.
type Page struct {
	Version int
	Layers  []Layer
}

// Parse decodes a page file.
func Parse(data []byte) (*Page, error) {
	if len(data) < headerLen {
		return nil, errors.New(errors.ErrCodeRender, "page too short: %d bytes", len(data))
	}
	header := strings.TrimRight(string(data[:headerLen]), " ")
	if !strings.HasPrefix(header, headerPrefix) {
		return nil, errors.New(errors.ErrCodeRender, "not a lines file: %q", header)
	}

	var version int
	switch header[len(headerPrefix):] {
	case "3":
		version = 3
	case "5":
		version = 5
	default:
		return nil, errors.New(errors.ErrCodeRender, "unsupported lines version %q", header[len(headerPrefix):])
	}

	d := &decoder{r: bytes.NewReader(data[headerLen:])}
	page := &Page{Version: version}

	// Minimum encoded sizes, used to bound counts by the bytes left.
	const layerLen, pointLen = 4, 24
	strokeLen := 20
	if version == 5 {
		strokeLen = 24
	}

	nLayers := d.count("layers", layerLen)
	for i := 0; i < nLayers && d.err == nil; i++ {
		var layer Layer
		nStrokes := d.count("strokes", strokeLen)
		for j := 0; j < nStrokes && d.err == nil; j++ {
			var s Stroke
			s.Pen = Pen(d.int32())
			s.Color = Color(d.int32())
			d.int32()
			s.Width = d.float32()
			if version == 5 {
				d.int32()
			}
			nPoints := d.count("points", pointLen)
			if d.err == nil {
				s.Points = make([]Point, nPoints)
			}
			for k := 0; k < nPoints && d.err == nil; k++ {
				s.Points[k] = Point{
					X:         d.float32(),
					Y:         d.float32(),
					Speed:     d.float32(),
					Direction: d.float32(),
					Width:     d.float32(),
					Pressure:  d.float32(),
				}
			}
			layer.Strokes = append(layer.Strokes, s)
		}
		page.Layers = append(page.Layers, layer)
	}
	if d.err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, d.err, "decode lines v%d", version)
	}
	return page, nil
}

// maxCount bounds any length prefix so a corrupt file cannot trigger a huge
// allocation.
const maxCount = 1 << 20

type decoder struct {
	r   *bytes.Reader
	err error
}

func (d *decoder) int32() int32 {
	var v int32
	if d.err == nil {
		d.err = binary.Read(d.r, binary.LittleEndian, &v)
	}
	return v
}

func (d *decoder) float32() float32 {
	var v float32
	if d.err == nil {
		d.err = binary.Read(d.r, binary.LittleEndian, &v)
	}
	return v
}

// count reads a length prefix for items of at least size bytes each. A count
// the remaining input cannot hold is an error.
func (d *decoder) count(what string, size int) int {
	n := d.int32()
	if d.err != nil {
		return 0
	}
	if n < 0 || n > maxCount {
		d.err = fmt.Errorf("invalid %s count %d", what, n)
		return 0
	}
	if need := int(n) * size; need > d.r.Len() {
		d.err = fmt.Errorf("%d %s need %d bytes, %d left", n, what, need, d.r.Len())
		return 0
	}
	return int(n)
}

// Encode writes p in the version 5 layout.
func Encode(w io.Writer, p *Page) error {
	var buf bytes.Buffer
	header := headerPrefix + "5"
	buf.WriteString(header + strings.Repeat(" ", headerLen-len(header)))

	put := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	put(int32(len(p.Layers)))
	for _, l := range p.Layers {
		put(int32(len(l.Strokes)))
		for _, s := range l.Strokes {
			put(int32(s.Pen))
			put(int32(s.Color))
			put(int32(0))
			put(s.Width)
			put(int32(0))
			put(int32(len(s.Points)))
			for _, pt := range s.Points {
				put(pt)
			}
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Bounds returns the bounding box of all inked points of p. ok is false when
// the page has no visible strokes.
func (p *Page) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, l := range p.Layers {
		for _, s := range l.Strokes {
			if s.Pen.IsEraser() {
				continue
			}
			for _, pt := range s.Points {
				minX = math.Min(minX, float64(pt.X))
				minY = math.Min(minY, float64(pt.Y))
				maxX = math.Max(maxX, float64(pt.X))
				maxY = math.Max(maxY, float64(pt.Y))
				ok = true
			}
		}
	}
	return minX, minY, maxX, maxY, ok
}
