package service

import (
	"context"
	"fmt"
	"log/slog"

	"bold-client-go/internal/fetcher"
	"bold-client-go/internal/model"
	"bold-client-go/internal/sse"
)

// StreamBatchSize is how many records one SSE event carries
const StreamBatchSize = 50

// Stream runs a query and pushes its progress and records over w
func (s *BoldService) Stream(ctx context.Context, mode model.QueryMode, q *fetcher.Query, w *sse.Writer) error {
	slog.Info("[BOLD] stream started", "mode", mode)

	w.SetQuery(mode, q.Summary(mode))
	if fetcher.IsExpensive(mode, q) {
		w.SetAction(5, "Large download, this may take a while...")
	} else {
		w.SetAction(5, "Querying BOLD...")
	}

	res, err := s.Query(ctx, mode, q)
	if err != nil {
		w.SendGlobalError(err.Error())
		return err
	}

	resp := res.Response
	if res.Cached {
		w.SetAction(10, "Loaded from cache")
	} else {
		w.SetAction(10, fmt.Sprintf("Received %s payload", resp.Format()))
	}

	if resp.IsBinary() {
		w.SetArchive(res.ArchiveKey, len(resp.Blob()))
		return w.Done()
	}

	w.SendWarnings(resp.Warnings())

	items := resp.Items()
	total := len(items)
	for start := 0; start < total; start += StreamBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+StreamBatchSize, total)
		if err := w.SendRecords(resp.Format(), total, items[start:end], fmt.Sprintf("Sent %d/%d records", end, total)); err != nil {
			return fmt.Errorf("failed to write event: %w", err)
		}
	}
	if total == 0 {
		w.SendRecords(resp.Format(), 0, nil, "No records")
	}

	return w.Done()
}

// StreamBatch identifies seqs and reports each finished job over w
func (s *BoldService) StreamBatch(ctx context.Context, seqs []model.SequenceRecord, db string, w *sse.Writer) error {
	labels := make([]string, len(seqs))
	for i, seq := range seqs {
		labels[i] = BatchLabel(i, seq)
	}

	w.SetQuery(model.ModeIdentify, fmt.Sprintf("%d sequences", len(seqs)))
	w.InitJobs(labels)

	s.IdentifyBatch(ctx, seqs, db, func(item BatchItem) {
		if item.Err != nil {
			w.SetJob(item.Label, &model.JobState{Status: model.StatusError, Error: item.Err.Error()}, item.Label+" failed")
			return
		}
		resp := item.Result.Response
		w.SetJob(item.Label, &model.JobState{Status: model.StatusDone, Count: resp.Len()}, item.Label+" identified")
		if resp.Len() > 0 {
			w.SendRecords(resp.Format(), resp.Len(), resp.Items(), item.Label+" matches")
		}
	})

	if err := ctx.Err(); err != nil {
		w.SendGlobalError(err.Error())
		return err
	}
	return w.Done()
}
