package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
	"github.com/yungbote/campuspulse-backend/internal/data/repos"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

const weekStartLayout = "2006-01-02"

type AggregationService interface {
	ComputeStats(ctx context.Context) (pulse.AggregateStats, error)
	GenerateWeeklyReport(ctx context.Context, trigger pulse.Entry) (pulse.WeeklyReport, error)
	ListReports(ctx context.Context) ([]pulse.WeeklyReport, error)
	// CampusWindow returns up to n of the most recent valid shared records.
	CampusWindow(ctx context.Context, n int) ([]pulse.StoredRecord, error)
}

type aggregationService struct {
	log     *logger.Logger
	shared  repos.SharedEntryRepo
	reports repos.ReportRepo
	locker  kv.Locker
	scale   pulse.Scale
	now     func() time.Time
}

func NewAggregationService(
	log *logger.Logger,
	shared repos.SharedEntryRepo,
	reports repos.ReportRepo,
	locker kv.Locker,
	scale pulse.Scale,
	now func() time.Time,
) AggregationService {
	if now == nil {
		now = time.Now
	}
	return &aggregationService{
		log:     log.With("service", "AggregationService"),
		shared:  shared,
		reports: reports,
		locker:  locker,
		scale:   scale,
		now:     now,
	}
}

func (s *aggregationService) ComputeStats(ctx context.Context) (pulse.AggregateStats, error) {
	records, err := s.shared.Load(ctx)
	if err != nil {
		return pulse.AggregateStats{}, err
	}
	return computeStats(records), nil
}

// computeStats ignores records whose mood is not a number. The top label is
// the most frequent non-empty sentiment; ties go to the label seen first.
func computeStats(records []pulse.StoredRecord) pulse.AggregateStats {
	var (
		sum    float64
		count  int
		counts = map[string]int{}
		order  []string
	)
	for _, r := range records {
		if !r.Valid() {
			continue
		}
		sum += r.Mood.Value
		count++
		label := string(r.Entry.Sentiment)
		if label == "" {
			continue
		}
		if counts[label] == 0 {
			order = append(order, label)
		}
		counts[label]++
	}
	if count == 0 {
		return pulse.EmptyStats()
	}

	top, best := pulse.NoStressor, 0
	for _, label := range order {
		if counts[label] > best {
			top, best = label, counts[label]
		}
	}
	avg := math.Round(sum/float64(count)*10) / 10
	return pulse.AggregateStats{
		AvgMood:      avg,
		AvgMoodLabel: pulse.FormatMood(avg),
		Count:        count,
		TopStressor:  top,
	}
}

func (s *aggregationService) GenerateWeeklyReport(ctx context.Context, trigger pulse.Entry) (pulse.WeeklyReport, error) {
	unlock, err := s.locker.Lock(ctx, repos.WeeklyReportsKey)
	if err != nil {
		return pulse.WeeklyReport{}, fmt.Errorf("lock report log: %w", err)
	}
	defer unlock()

	existing, err := s.reports.Load(ctx)
	if err != nil {
		return pulse.WeeklyReport{}, err
	}
	now := s.now().UTC()
	id := now.UnixMilli()
	if n := len(existing); n > 0 && existing[n-1].ID >= id {
		id = existing[n-1].ID + 1
	}
	sentiment := trigger.SentimentOrNeutral()
	report := pulse.WeeklyReport{
		ID:              id,
		WeekStart:       weekStart(now).Format(weekStartLayout),
		StudentIDHash:   uuid.NewString(),
		TrendSummary:    fmt.Sprintf("Student shows fluctuating mood with %s tendencies.", sentiment),
		DominantEmotion: string(sentiment),
		StressPeak:      trigger.Ratings.Stress > s.scale.Midpoint(),
		SuggestionID:    string(sentiment),
	}
	if err := s.reports.Replace(ctx, append(existing, report)); err != nil {
		return pulse.WeeklyReport{}, err
	}
	s.log.Info("weekly report generated", "report_id", report.ID, "dominant_emotion", report.DominantEmotion)
	return report, nil
}

// weekStart is midnight UTC on the Monday of t's week.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *aggregationService) ListReports(ctx context.Context) ([]pulse.WeeklyReport, error) {
	return s.reports.Load(ctx)
}

func (s *aggregationService) CampusWindow(ctx context.Context, n int) ([]pulse.StoredRecord, error) {
	records, err := s.shared.Load(ctx)
	if err != nil {
		return nil, err
	}
	return campusWindow(records, n), nil
}

func campusWindow(records []pulse.StoredRecord, n int) []pulse.StoredRecord {
	if n <= 0 {
		return []pulse.StoredRecord{}
	}
	out := make([]pulse.StoredRecord, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		if records[i].Valid() {
			out = append(out, records[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
