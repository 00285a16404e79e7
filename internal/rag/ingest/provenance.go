package ingest

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
)

// Glyph is a run of text drawn on a page. X and Y are the baseline origin in PDF user space
// (bottom-left origin), W the advance width and Size the font size.
type Glyph struct {
	X    float64
	Y    float64
	W    float64
	Size float64
	S    string
}

// PageLayout describes one page. OriginX and OriginY are the lower-left corner of the media box.
type PageLayout struct {
	OriginX float64
	OriginY float64
	Width   float64
	Height  float64
	Glyphs  []Glyph
}

type rect struct {
	x0, y0, x1, y1 float64
}

// glyphRect maps a glyph into page coordinates with a top-left origin.
func (l PageLayout) glyphRect(g Glyph) rect {
	top := l.OriginY + l.Height
	return rect{
		x0: g.X - l.OriginX,
		y0: top - (g.Y + g.Size),
		x1: g.X + g.W - l.OriginX,
		y1: top - g.Y,
	}
}

// LocateBBox finds every verbatim occurrence of text on the page, ignoring whitespace, and
// returns the rectangle enclosing all of them with a top-left origin.
func LocateBBox(layout PageLayout, text string) (commonModels.BoundingBox, bool) {
	needle := stripSpace(text)
	if needle == "" || len(layout.Glyphs) == 0 {
		return commonModels.BoundingBox{}, false
	}

	var hay strings.Builder
	owner := make([]int, 0, len(layout.Glyphs))
	for gi, g := range layout.Glyphs {
		for _, r := range g.S {
			if unicode.IsSpace(r) {
				continue
			}
			hay.WriteRune(r)
			for k := 0; k < utf8.RuneLen(r); k++ {
				owner = append(owner, gi)
			}
		}
	}
	haystack := hay.String()

	found := false
	box := rect{x0: math.Inf(1), y0: math.Inf(1), x1: math.Inf(-1), y1: math.Inf(-1)}
	for from := 0; from < len(haystack); {
		idx := strings.Index(haystack[from:], needle)
		if idx < 0 {
			break
		}
		first := from + idx
		last := first + len(needle) - 1
		for gi := owner[first]; gi <= owner[last]; gi++ {
			r := layout.glyphRect(layout.Glyphs[gi])
			box.x0 = math.Min(box.x0, r.x0)
			box.y0 = math.Min(box.y0, r.y0)
			box.x1 = math.Max(box.x1, r.x1)
			box.y1 = math.Max(box.y1, r.y1)
		}
		found = true
		from = first + len(needle)
	}
	if !found {
		return commonModels.BoundingBox{}, false
	}

	return commonModels.BoundingBox{int(box.x0), int(box.y0), int(box.x1), int(box.y1)}, true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
