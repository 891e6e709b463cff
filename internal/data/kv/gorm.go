package kv

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/campuspulse-backend/internal/platform/logger"
)

// Row is one key of the SQL-backed store.
type Row struct {
	StoreKey  string         `gorm:"primaryKey;column:store_key;size:191" json:"store_key"`
	Value     datatypes.JSON `gorm:"column:value;not null" json:"value"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Row) TableName() string { return "kv_entries" }

type gormStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGormStore(db *gorm.DB, baseLog *logger.Logger) Store {
	return &gormStore{db: db, log: baseLog.With("repo", "GormKVStore")}
}

func (s *gormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row Row
	err := s.db.WithContext(ctx).
		Where("store_key = ?", key).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(row.Value), true, nil
}

func (s *gormStore) Put(ctx context.Context, key string, value []byte) error {
	row := Row{
		StoreKey:  key,
		Value:     datatypes.JSON(value),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "store_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&row).Error
}
