package commonModels

// BoundingBox is (x0, y0, x1, y1) in PDF points with a top-left origin.
// The zero value means the passage text could not be located on its page.
type BoundingBox [4]int

func (b BoundingBox) IsZero() bool {
	return b == BoundingBox{}
}

// Passage is the atomic retrievable unit. Passages are immutable once created.
type Passage struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	Page         int         `json:"page"`
	BBox         BoundingBox `json:"bbox"`
	File         string      `json:"file"`
	FilePath     string      `json:"file_path"`
	LastModified string      `json:"last_modified"`
}

type ScoredPassage struct {
	Passage Passage `json:"passage"`
	Score   float32 `json:"score"`
	Rank    int     `json:"rank"`
}

// Turn is one question/answer exchange of a conversation.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type DocType string

var PDF DocType = "PDF"
var ERR DocType = "ERROR"

// PassagesOf strips the scores from a retrieval result, keeping its order.
func PassagesOf(scored []ScoredPassage) []Passage {
	out := make([]Passage, len(scored))
	for i, s := range scored {
		out[i] = s.Passage
	}
	return out
}

// AppendTurn returns a new history with the turn appended; the input is never modified.
func AppendTurn(history []Turn, turn Turn) []Turn {
	next := make([]Turn, len(history), len(history)+1)
	copy(next, history)
	return append(next, turn)
}
