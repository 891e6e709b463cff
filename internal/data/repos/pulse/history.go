package pulse

import (
	"context"
	"fmt"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
	"github.com/yungbote/campuspulse-backend/internal/domain/pulse"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

// HistoryRepo holds each student's personal entries, keyed by the hashed
// identity. Entries are only ever appended.
type HistoryRepo interface {
	Load(ctx context.Context, studentHash string) ([]pulse.Entry, error)
	Append(ctx context.Context, studentHash string, e pulse.Entry) ([]pulse.Entry, error)
}

type historyRepo struct {
	store  kv.Store
	locker kv.Locker
	log    *logger.Logger
}

func NewHistoryRepo(store kv.Store, locker kv.Locker, baseLog *logger.Logger) HistoryRepo {
	return &historyRepo{store: store, locker: locker, log: baseLog.With("repo", "HistoryRepo")}
}

func HistoryKey(studentHash string) string { return historyKeyPrefix + studentHash }

func (r *historyRepo) coll(studentHash string) collection[pulse.Entry] {
	return collection[pulse.Entry]{store: r.store, key: HistoryKey(studentHash)}
}

func (r *historyRepo) Load(ctx context.Context, studentHash string) ([]pulse.Entry, error) {
	if studentHash == "" {
		return nil, fmt.Errorf("load history: empty student hash")
	}
	return r.coll(studentHash).load(ctx)
}

func (r *historyRepo) Append(ctx context.Context, studentHash string, e pulse.Entry) ([]pulse.Entry, error) {
	if studentHash == "" {
		return nil, fmt.Errorf("append history: empty student hash")
	}
	unlock, err := r.locker.Lock(ctx, HistoryKey(studentHash))
	if err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	defer unlock()

	c := r.coll(studentHash)
	entries, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	entries = append(entries, e)
	if err := c.replace(ctx, entries); err != nil {
		return nil, err
	}
	r.log.Debug("history appended", "student_id", studentHash, "entries", len(entries))
	return entries, nil
}
