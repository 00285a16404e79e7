package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akolanti/DocQA/internal/config"
	"github.com/akolanti/DocQA/internal/domain/commonModels"
	"github.com/akolanti/DocQA/internal/domain/failures"
	"github.com/akolanti/DocQA/pkg/logger_i"
)

// Extractor turns PDF files into passages with page and position provenance.
type Extractor struct {
	chunkSize   int
	overlap     int
	concurrency int
	loader      Loader
	logger      *logger_i.Logger
	clock       func() time.Time
}

type ExtractorOption func(*Extractor)

func WithChunking(size, overlap int) ExtractorOption {
	return func(e *Extractor) {
		e.chunkSize = size
		e.overlap = overlap
	}
}

func WithLoader(l Loader) ExtractorOption {
	return func(e *Extractor) { e.loader = l }
}

func WithLogger(l *logger_i.Logger) ExtractorOption {
	return func(e *Extractor) { e.logger = l }
}

func WithConcurrency(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func WithClock(clock func() time.Time) ExtractorOption {
	return func(e *Extractor) { e.clock = clock }
}

func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		chunkSize:   config.DefaultChunkSize,
		overlap:     config.DefaultChunkOverlap,
		concurrency: config.ExtractionConcurrency,
		clock:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger_i.NewLogger("Passage Extractor")
	}
	if e.loader == nil {
		e.loader = NewPDFLoader(e.logger)
	}
	return e
}

type ExtractStats struct {
	Documents int `json:"documents"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
	Passages  int `json:"passages"`
	ZeroBoxes int `json:"zero_boxes"`
}

// Extract returns the passages of every valid document in input order. Rejected paths are
// reported as joined validation errors next to the passages of the accepted ones.
func (e *Extractor) Extract(ctx context.Context, paths []string) ([]commonModels.Passage, error) {
	passages, _, err := e.ExtractWithStats(ctx, paths)
	return passages, err
}

func (e *Extractor) ExtractWithStats(ctx context.Context, paths []string) ([]commonModels.Passage, ExtractStats, error) {
	log := e.logger.WithTrace(ctx)
	var stats ExtractStats

	if err := e.validatePolicy(); err != nil {
		return nil, stats, err
	}

	var invalid []error
	var accepted []string
	for _, path := range paths {
		if getDocType(path) == commonModels.ERR {
			invalid = append(invalid, &failures.ValidationError{Path: path, Extension: filepath.Ext(path)})
			continue
		}
		accepted = append(accepted, path)
	}
	stats.Rejected = len(invalid)
	stats.Documents = len(accepted)

	fileIDs := uniqueFileIDs(accepted)
	results := make([][]commonModels.Passage, len(accepted))
	zeroBoxes := make([]int, len(accepted))
	var failedMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, path := range accepted {
		g.Go(func() error {
			passages, zero, err := e.extractDocument(gctx, path, fileIDs[i])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Error("Skipping document", "error", &failures.ExtractionError{Path: path, Err: err})
				failedMu.Lock()
				stats.Failed++
				failedMu.Unlock()
				return nil
			}
			results[i] = passages
			zeroBoxes[i] = zero
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	var all []commonModels.Passage
	for i, r := range results {
		all = append(all, r...)
		stats.ZeroBoxes += zeroBoxes[i]
	}
	stats.Passages = len(all)

	log.Info("Extraction finished", "documents", stats.Documents, "rejected", stats.Rejected,
		"failed", stats.Failed, "passages", stats.Passages, "zero_boxes", stats.ZeroBoxes)

	return all, stats, errors.Join(invalid...)
}

func (e *Extractor) validatePolicy() error {
	switch {
	case e.chunkSize <= 0:
		return &failures.ValidationError{Reason: fmt.Sprintf("chunk size must be positive, got %d", e.chunkSize)}
	case e.overlap < 0:
		return &failures.ValidationError{Reason: fmt.Sprintf("chunk overlap must not be negative, got %d", e.overlap)}
	case e.overlap >= e.chunkSize:
		return &failures.ValidationError{Reason: fmt.Sprintf("chunk overlap %d must be smaller than chunk size %d", e.overlap, e.chunkSize)}
	}
	return nil
}

func (e *Extractor) extractDocument(ctx context.Context, path, fileID string) ([]commonModels.Passage, int, error) {
	log := e.logger.WithTrace(ctx).With("file", filepath.Base(path))

	doc, err := e.loader.Load(ctx, path)
	if err != nil {
		return nil, 0, err
	}

	lastModified := e.lastModified(doc.ModDate)

	var passages []commonModels.Passage
	zeroBoxes := 0
	seq := 0
	for _, page := range doc.Pages {
		for _, segment := range SplitText(page.Text, e.chunkSize, e.overlap) {
			text := strings.TrimSpace(segment.Text)
			if text == "" {
				continue
			}

			id := passageID(fileID, seq)
			seq++

			bbox, ok := LocateBBox(page.Layout, text)
			if !ok {
				zeroBoxes++
				log.Warn("Provenance recovery failed", "error", failures.ErrProvenanceRecovery,
					"passage_id", id, "page", page.Number-1)
			}

			passages = append(passages, commonModels.Passage{
				ID:           id,
				Text:         text,
				Page:         page.Number - 1,
				BBox:         bbox,
				File:         filepath.Base(path),
				FilePath:     path,
				LastModified: lastModified,
			})
		}
	}

	log.Debug("Created passages", "count", len(passages))
	return passages, zeroBoxes, nil
}

func (e *Extractor) lastModified(modDate string) string {
	if modDate != "" {
		if t, err := ParsePDFDate(modDate); err == nil {
			return FormatTimestamp(t)
		}
		e.logger.Debug("Unparsable modification date", "raw", modDate)
	}
	return FormatTimestamp(e.clock())
}

// uniqueFileIDs suffixes repeated file ids so passage ids stay unique across the batch.
func uniqueFileIDs(paths []string) []string {
	ids := make([]string, len(paths))
	seen := make(map[string]int, len(paths))
	for i, p := range paths {
		id := FileID(p)
		seen[id]++
		if n := seen[id]; n > 1 {
			id = fmt.Sprintf("%s_%d", id, n)
		}
		ids[i] = id
	}
	return ids
}
