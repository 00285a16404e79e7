package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/dslipak/pdf"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

// Loader reads a document into pages of text and glyph layout.
type Loader interface {
	Load(ctx context.Context, path string) (LoadedDocument, error)
}

type LoadedDocument struct {
	Pages   []LoadedPage
	ModDate string
}

// LoadedPage numbers start at 1, as in the PDF page tree.
type LoadedPage struct {
	Number int
	Text   string
	Layout PageLayout
}

const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

type pdfLoader struct {
	pageTimeout time.Duration
	logger      *logger_i.Logger
}

func NewPDFLoader(logger *logger_i.Logger) Loader {
	if logger == nil {
		logger = logger_i.NewLogger("PDF Loader")
	}
	return &pdfLoader{
		pageTimeout: config.PageExtractionTimeout,
		logger:      logger,
	}
}

func (l *pdfLoader) Load(ctx context.Context, path string) (doc LoadedDocument, err error) {
	log := l.logger.WithTrace(ctx)
	log.Debug("Loading pdf", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return LoadedDocument{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return LoadedDocument{}, fmt.Errorf("failed to stat pdf: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return LoadedDocument{}, fmt.Errorf("failed to read pdf: %w", err)
	}

	doc.ModDate = reader.Trailer().Key("Info").Key("ModDate").Text()

	numPages := reader.NumPage()
	log.Debug("Reading pages", "count", numPages)
	for i := 1; i <= numPages; i++ {
		if ctx.Err() != nil {
			return LoadedDocument{}, ctx.Err()
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			log.Debug("Skipping null page", "page", i)
			continue
		}

		loaded, err := l.protectExtract(ctx, page)
		if err != nil {
			log.Warn("Skipping unreadable page", "page", i, "error", err)
			continue
		}
		loaded.Number = i
		doc.Pages = append(doc.Pages, loaded)
	}

	if len(doc.Pages) == 0 {
		return LoadedDocument{}, errors.New("no readable pages")
	}
	return doc, nil
}

// protectExtract bounds a single page read by a timeout and turns library panics into errors.
func (l *pdfLoader) protectExtract(ctx context.Context, page pdf.Page) (LoadedPage, error) {
	type result struct {
		page LoadedPage
		err  error
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("page extraction panicked: %v", r)}
			}
		}()

		text, err := page.GetPlainText(nil)
		if err != nil {
			resChan <- result{err: err}
			return
		}
		resChan <- result{page: LoadedPage{Text: text, Layout: pageLayout(page)}}
	}()

	timer := time.NewTimer(l.pageTimeout)
	defer timer.Stop()

	select {
	case r := <-resChan:
		return r.page, r.err
	case <-timer.C:
		return LoadedPage{}, errors.New("timeout")
	case <-ctx.Done():
		return LoadedPage{}, ctx.Err()
	}
}

func pageLayout(page pdf.Page) PageLayout {
	x0, y0, width, height := mediaBox(page)
	layout := PageLayout{OriginX: x0, OriginY: y0, Width: width, Height: height}

	for _, t := range page.Content().Text {
		layout.Glyphs = append(layout.Glyphs, Glyph{
			X:    t.X,
			Y:    t.Y,
			W:    t.W,
			Size: t.FontSize,
			S:    t.S,
		})
	}
	estimateWidths(layout.Glyphs)
	return layout
}

// estimatedAdvance is the per-rune advance, in font size units, used when a font has no /Widths.
const estimatedAdvance = 0.5

// estimateWidths fills in advances the font does not provide. Without /Widths the text origin
// does not move either, so glyphs sharing one origin are laid out left to right.
func estimateWidths(glyphs []Glyph) {
	var originX, originY, shift float64
	tracking := false
	for i := range glyphs {
		g := &glyphs[i]
		if g.W > 0 {
			tracking = false
			continue
		}
		if tracking && g.X == originX && g.Y == originY {
			g.X += shift
		} else {
			originX, originY, shift, tracking = g.X, g.Y, 0, true
		}
		g.W = g.Size * estimatedAdvance * float64(utf8.RuneCountInString(g.S))
		shift += g.W
	}
}

// maxPageTreeDepth bounds the walk up the page tree on malformed Parent cycles.
const maxPageTreeDepth = 32

// mediaBox returns the page box origin and size. The box may be inherited from any ancestor.
func mediaBox(page pdf.Page) (x0, y0, width, height float64) {
	var box pdf.Value
	node := page.V
	for depth := 0; depth < maxPageTreeDepth && !node.IsNull(); depth++ {
		if box = node.Key("MediaBox"); !box.IsNull() {
			break
		}
		node = node.Key("Parent")
	}
	if box.Len() != 4 {
		return 0, 0, defaultPageWidth, defaultPageHeight
	}

	x0, y0 = box.Index(0).Float64(), box.Index(1).Float64()
	x1, y1 := box.Index(2).Float64(), box.Index(3).Float64()
	if x1-x0 <= 0 || y1-y0 <= 0 {
		return 0, 0, defaultPageWidth, defaultPageHeight
	}
	return x0, y0, x1 - x0, y1 - y0
}
