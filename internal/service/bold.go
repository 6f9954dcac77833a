package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"bold-client-go/internal/archive"
	"bold-client-go/internal/cache"
	"bold-client-go/internal/fetcher"
	"bold-client-go/internal/model"
	"bold-client-go/internal/parser"
	"bold-client-go/internal/utils"
)

// CacheTTL default payload cache lifetime
const CacheTTL = 24 * time.Hour

// DefaultBatchLimit caps concurrent identifications in a batch
const DefaultBatchLimit = 4

// taxonMatchThreshold is the lowest name score ResolveTaxon accepts
const taxonMatchThreshold = 0.5

// Result a normalized response plus where it came from
type Result struct {
	Response   *model.Response `json:"response"`
	URL        string          `json:"url"`
	Cached     bool            `json:"cached"`
	ArchiveKey string          `json:"archive_key,omitempty"`
}

// BatchItem outcome of one sequence in IdentifyBatch
type BatchItem struct {
	Label  string  `json:"label"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
}

// BoldService runs BOLD queries: cache lookup, fetch, normalize, archive
type BoldService struct {
	fetcher    fetcher.PayloadFetcher
	cache      cache.Cache
	archiver   *archive.Archiver
	cacheTTL   time.Duration
	batchLimit int
}

// NewBoldService creates a service. cache and archiver may be nil.
func NewBoldService(f fetcher.PayloadFetcher, c cache.Cache, a *archive.Archiver, cacheTTL time.Duration) *BoldService {
	if cacheTTL <= 0 {
		cacheTTL = CacheTTL
	}
	return &BoldService{
		fetcher:    f,
		cache:      c,
		archiver:   a,
		cacheTTL:   cacheTTL,
		batchLimit: DefaultBatchLimit,
	}
}

// SetBatchLimit changes how many identifications run at once
func (s *BoldService) SetBatchLimit(n int) {
	if n > 0 {
		s.batchLimit = n
	}
}

// Query runs one BOLD call and normalizes the payload
func (s *BoldService) Query(ctx context.Context, mode model.QueryMode, q *fetcher.Query) (*Result, error) {
	reqURL, err := s.fetcher.URL(mode, q)
	if err != nil {
		return nil, err
	}

	payload, cached := s.lookup(ctx, mode, reqURL)
	if !cached {
		payload, err = s.fetcher.Fetch(ctx, mode, q)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", mode, err)
		}
	}

	resp, err := parser.Normalize(mode, payload)
	if err != nil {
		return nil, err
	}

	if !cached {
		s.store(ctx, mode, reqURL, payload)
	}

	result := &Result{Response: resp, URL: reqURL, Cached: cached}

	if resp.IsBinary() && s.archiver != nil && len(payload) > 0 {
		key, err := s.archiver.Save(ctx, payload)
		if err != nil {
			// the archive is a side output, the response is still usable
			slog.Error("[BOLD] failed to store trace archive", "error", err)
		} else {
			result.ArchiveKey = key
		}
	}

	slog.Info("[BOLD] query done", "mode", mode, "records", resp.Len(), "cached", cached, "degraded", resp.Degraded())
	return result, nil
}

func (s *BoldService) lookup(ctx context.Context, mode model.QueryMode, reqURL string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	key := cache.Key(mode, reqURL)
	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		slog.Warn("[BOLD] cache read failed", "key", key, "error", err)
		return nil, false
	}
	if entry == nil {
		slog.Debug("[BOLD] cache MISS", "mode", mode, "url", reqURL)
		return nil, false
	}
	slog.Debug("[BOLD] cache HIT", "mode", mode, "url", reqURL)
	return entry.Payload, true
}

func (s *BoldService) store(ctx context.Context, mode model.QueryMode, reqURL string, payload []byte) {
	if s.cache == nil {
		return
	}
	key := cache.Key(mode, reqURL)
	if err := s.cache.Set(ctx, key, mode, payload, s.cacheTTL); err != nil {
		slog.Warn("[BOLD] cache write failed", "key", key, "error", err)
	}
}

// IdentifyBatch identifies every sequence against db with at most
// batchLimit calls in flight. A failing sequence does not stop the others;
// its error is kept in the returned item. onDone, if set, is called as each
// sequence finishes.
func (s *BoldService) IdentifyBatch(ctx context.Context, seqs []model.SequenceRecord, db string, onDone func(BatchItem)) []BatchItem {
	items := make([]BatchItem, len(seqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)

	for i, seq := range seqs {
		items[i].Label = BatchLabel(i, seq)
		g.Go(func() error {
			res, err := s.Query(gctx, model.ModeIdentify, &fetcher.Query{Sequence: seq.Sequence, DB: db})
			items[i].Result = res
			items[i].Err = err
			if err != nil {
				slog.Warn("[BOLD] identification failed", "label", items[i].Label, "error", err)
			}
			if onDone != nil {
				onDone(items[i])
			}
			return nil
		})
	}

	g.Wait()
	return items
}

// BatchLabel names a batch job after the sequence ID, or its position
func BatchLabel(i int, seq model.SequenceRecord) string {
	if seq.ID != "" {
		return seq.ID
	}
	return fmt.Sprintf("seq-%d", i+1)
}

// ResolveTaxon searches name and returns the best scoring taxon record
func (s *BoldService) ResolveTaxon(ctx context.Context, name string, fuzzy bool) (model.Record, float64, error) {
	res, err := s.Query(ctx, model.ModeTaxonSearch, &fetcher.Query{TaxonName: name, Fuzzy: fuzzy})
	if err != nil {
		return nil, 0, err
	}

	items := res.Response.Items()
	names := make([]string, len(items))
	for i, item := range items {
		names[i], _ = item.String("taxon")
	}

	idx, score := utils.BestTaxonMatch(name, names, taxonMatchThreshold)
	if idx < 0 {
		return nil, 0, fmt.Errorf("%w: no taxon matching %q", parser.ErrNoResults, name)
	}
	return items[idx], score, nil
}

// IsInvalidQuery reports errors caused by the caller's input
func IsInvalidQuery(err error) bool {
	return errors.Is(err, fetcher.ErrInvalidQuery) || errors.Is(err, model.ErrUnknownQueryMode)
}

// IsNotFound reports errors meaning BOLD had nothing for the query
func IsNotFound(err error) bool {
	return errors.Is(err, parser.ErrNoResults) || errors.Is(err, parser.ErrEmptyResponse)
}
