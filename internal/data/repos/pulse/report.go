package pulse

import (
	"context"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

// ReportRepo is the append-only weekly report log.
type ReportRepo interface {
	Load(ctx context.Context) ([]pulse.WeeklyReport, error)
	Replace(ctx context.Context, reports []pulse.WeeklyReport) error
}

type reportRepo struct {
	coll collection[pulse.WeeklyReport]
	log  *logger.Logger
}

func NewReportRepo(store kv.Store, baseLog *logger.Logger) ReportRepo {
	return &reportRepo{
		coll: collection[pulse.WeeklyReport]{store: store, key: WeeklyReportsKey},
		log:  baseLog.With("repo", "ReportRepo"),
	}
}

func (r *reportRepo) Load(ctx context.Context) ([]pulse.WeeklyReport, error) {
	return r.coll.load(ctx)
}

func (r *reportRepo) Replace(ctx context.Context, reports []pulse.WeeklyReport) error {
	return r.coll.replace(ctx, reports)
}
