package pulse

import (
	"context"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

// SharedEntryRepo is the anonymized pool every student syncs into.
type SharedEntryRepo interface {
	Load(ctx context.Context) ([]pulse.StoredRecord, error)
	Replace(ctx context.Context, records []pulse.StoredRecord) error
}

type sharedEntryRepo struct {
	coll collection[pulse.StoredRecord]
	log  *logger.Logger
}

func NewSharedEntryRepo(store kv.Store, baseLog *logger.Logger) SharedEntryRepo {
	return &sharedEntryRepo{
		coll: collection[pulse.StoredRecord]{store: store, key: SharedEntriesKey},
		log:  baseLog.With("repo", "SharedEntryRepo"),
	}
}

func (r *sharedEntryRepo) Load(ctx context.Context) ([]pulse.StoredRecord, error) {
	return r.coll.load(ctx)
}

func (r *sharedEntryRepo) Replace(ctx context.Context, records []pulse.StoredRecord) error {
	if err := r.coll.replace(ctx, records); err != nil {
		return err
	}
	r.log.Debug("shared store replaced", "records", len(records))
	return nil
}
