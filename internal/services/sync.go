package services

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
	"github.com/yungbote/campuspulse-backend/internal/data/repos"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/observability"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

// ErrReportFailed marks a sync whose entries were merged but whose weekly
// report could not be recorded. The SyncResult returned with it is valid.
var ErrReportFailed = errors.New("weekly report failed")

// SyncResult describes one merge. A sync that adds nothing is still a
// success.
type SyncResult struct {
	Added   int                 `json:"added"`
	Skipped int                 `json:"skipped"`
	Report  *pulse.WeeklyReport `json:"report,omitempty"`
}

type SyncService interface {
	Sync(ctx context.Context, entries []pulse.Entry) (SyncResult, error)
}

type syncService struct {
	log       *logger.Logger
	shared    repos.SharedEntryRepo
	locker    kv.Locker
	aggregate AggregationService
}

func NewSyncService(log *logger.Logger, shared repos.SharedEntryRepo, locker kv.Locker, aggregate AggregationService) SyncService {
	return &syncService{
		log:       log.With("service", "SyncService"),
		shared:    shared,
		locker:    locker,
		aggregate: aggregate,
	}
}

// Sync appends the entries whose timestamp is not yet in the shared store,
// then records one weekly report from the last entry it added. Calls are
// serialized per store.
func (s *syncService) Sync(ctx context.Context, entries []pulse.Entry) (SyncResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "pulse.sync")
	defer span.End()
	span.SetAttributes(attribute.Int("sync.batch", len(entries)))

	unlock, err := s.locker.Lock(ctx, repos.SharedEntriesKey)
	if err != nil {
		return SyncResult{}, fmt.Errorf("lock shared store: %w", err)
	}
	defer unlock()

	existing, err := s.shared.Load(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	survivors, skipped := dedupEntries(existing, entries)
	res := SyncResult{Added: len(survivors), Skipped: skipped}
	span.SetAttributes(attribute.Int("sync.added", res.Added), attribute.Int("sync.skipped", skipped))
	if len(survivors) == 0 {
		s.log.Debug("sync: nothing new", "skipped", skipped)
		return res, nil
	}

	merged := make([]pulse.StoredRecord, 0, len(existing)+len(survivors))
	merged = append(merged, existing...)
	for _, e := range survivors {
		merged = append(merged, pulse.NewStoredRecord(e))
	}
	if err := s.shared.Replace(ctx, merged); err != nil {
		return SyncResult{}, err
	}

	report, err := s.aggregate.GenerateWeeklyReport(ctx, survivors[len(survivors)-1])
	if err != nil {
		s.log.Error("sync: entries merged but weekly report failed", "added", res.Added, "error", err)
		span.RecordError(err)
		return res, fmt.Errorf("%w: %w", ErrReportFailed, err)
	}
	res.Report = &report
	s.log.Info("sync merged entries", "added", res.Added, "skipped", skipped, "report_id", report.ID)
	return res, nil
}

// dedupEntries keeps the entries whose key is absent from the store and from
// earlier entries in the same batch. Entries without a timestamp have no
// identity and are skipped.
func dedupEntries(existing []pulse.StoredRecord, batch []pulse.Entry) ([]pulse.Entry, int) {
	seen := make(map[string]struct{}, len(existing)+len(batch))
	for _, r := range existing {
		if k := r.Key(); k != "" {
			seen[k] = struct{}{}
		}
	}
	out := make([]pulse.Entry, 0, len(batch))
	skipped := 0
	for _, e := range batch {
		k := e.Key()
		if k == "" {
			skipped++
			continue
		}
		if _, dup := seen[k]; dup {
			skipped++
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out, skipped
}
