package ingest

import (
	"path/filepath"
	"strings"

	"github.com/akolanti/DocQA/internal/domain/commonModels"
)

// Segment is a chunk of text with its rune offsets in the source.
type Segment struct {
	Text  string
	Start int
	End   int
}

// boundaries ordered from paragraph down to word
var boundaries = []string{"\n\n", "\n", ". ", " "}

// SplitText cuts text into chunks of at most size runes. Consecutive chunks share exactly
// overlap runes. A cut lands after the last natural boundary that keeps the chunk within size,
// falling back to a hard cut.
func SplitText(text string, size, overlap int) []Segment {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	if n <= size {
		return []Segment{{Text: text, Start: 0, End: n}}
	}

	var segments []Segment
	start := 0
	for {
		if n-start <= size {
			segments = append(segments, Segment{Text: string(runes[start:]), Start: start, End: n})
			return segments
		}
		end := cutPoint(runes, start+overlap, start+size)
		segments = append(segments, Segment{Text: string(runes[start:end]), Start: start, End: end})
		start = end - overlap
	}
}

// cutPoint returns the chunk end in (low, high]. The separator stays with the chunk it closes.
func cutPoint(runes []rune, low, high int) int {
	for _, sep := range boundaries {
		s := []rune(sep)
		for end := high; end > low; end-- {
			if end-len(s) < 0 {
				break
			}
			if hasRunesAt(runes, end-len(s), s) {
				return end
			}
		}
	}
	return high
}

func hasRunesAt(runes []rune, at int, s []rune) bool {
	if at+len(s) > len(runes) {
		return false
	}
	for i, r := range s {
		if runes[at+i] != r {
			return false
		}
	}
	return true
}

func getDocType(docPath string) commonModels.DocType {
	if strings.EqualFold(filepath.Ext(docPath), ".pdf") {
		return commonModels.PDF
	}
	return commonModels.ERR
}
