package repos

import (
	"github.com/yungbote/campuspulse-backend/internal/data/kv"
	"github.com/yungbote/campuspulse-backend/internal/data/repos/pulse"
	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

type SharedEntryRepo = pulse.SharedEntryRepo
type ReportRepo = pulse.ReportRepo
type HistoryRepo = pulse.HistoryRepo

const (
	SharedEntriesKey = pulse.SharedEntriesKey
	WeeklyReportsKey = pulse.WeeklyReportsKey
)

var ErrCorruptCollection = pulse.ErrCorruptCollection

// Set bundles the repos one store backs. Sync and history appends share the
// locker so every read-modify-write on a key is serialized.
type Set struct {
	Store   kv.Store
	Locker  kv.Locker
	Shared  SharedEntryRepo
	Reports ReportRepo
	History HistoryRepo
}

func NewSet(store kv.Store, locker kv.Locker, log *logger.Logger) *Set {
	return &Set{
		Store:   store,
		Locker:  locker,
		Shared:  pulse.NewSharedEntryRepo(store, log),
		Reports: pulse.NewReportRepo(store, log),
		History: pulse.NewHistoryRepo(store, locker, log),
	}
}
