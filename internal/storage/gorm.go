package storage

import (
	"context"
	"errors"
	"fmt"

	"carelink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormKV 持久化存储，记录落在 stored_values 表
type GormKV struct {
	db     *gorm.DB
	prefix string
}

// NewGormKV; prefix namespaces keys (e.g. per gateway session owner).
func NewGormKV(db *gorm.DB, prefix string) *GormKV {
	return &GormKV{db: db, prefix: prefix}
}

func (s *GormKV) Get(ctx context.Context, key string) ([]byte, error) {
	var v models.StoredValue
	err := s.db.WithContext(ctx).Where("key = ?", s.prefix+key).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	return v.Value, nil
}

func (s *GormKV) Set(ctx context.Context, key string, value []byte) error {
	v := models.StoredValue{Key: s.prefix + key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&v).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *GormKV) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", s.prefix+key).Delete(&models.StoredValue{}).Error
}
