package pulse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yungbote/campuspulse-backend/internal/data/kv"
)

const (
	SharedEntriesKey = "campus_pulse_data"
	WeeklyReportsKey = "weekly_reports"
	historyKeyPrefix = "history:"
)

// ErrCorruptCollection is returned when a stored value is not a JSON array.
// Replacing it would discard data nobody has looked at, so callers stop.
var ErrCorruptCollection = errors.New("stored collection is not a JSON array")

// collection is one JSON array under a fixed key, read and written whole.
type collection[T any] struct {
	store kv.Store
	key   string
}

func (c collection[T]) load(ctx context.Context) ([]T, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	out := []T{}
	raw = bytes.TrimSpace(raw)
	if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("load %s: %w: %v", c.key, ErrCorruptCollection, err)
	}
	return out, nil
}

func (c collection[T]) replace(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.store.Put(ctx, c.key, b); err != nil {
		return fmt.Errorf("replace %s: %w", c.key, err)
	}
	return nil
}
