// Package prefs keeps the small per-user preference lists: recent searches
// and recently viewed profiles.
package prefs

import (
	"context"
	"strings"
	"time"

	"carelink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Limit 每个列表最多保留的条数
const Limit = 5

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Push 把 value 放到列表最前面：已存在的条目只更新时间，超出上限的旧条目被删除
func (s *Store) Push(ctx context.Context, owner string, kind models.RecentKind, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e := models.RecentEntry{Owner: owner, Kind: kind, Value: value, CreatedAt: s.now()}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "kind"}, {Name: "value"}},
			DoUpdates: clause.AssignmentColumns([]string{"created_at"}),
		}).Create(&e).Error; err != nil {
			return err
		}

		var stale []uint
		if err := tx.Model(&models.RecentEntry{}).
			Where("owner = ? AND kind = ?", owner, kind).
			Order("created_at DESC, id DESC").
			Limit(1000).
			Offset(Limit).
			Pluck("id", &stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		return tx.Where("id IN ?", stale).Delete(&models.RecentEntry{}).Error
	})
}

// List returns the entries most recent first.
func (s *Store) List(ctx context.Context, owner string, kind models.RecentKind) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&models.RecentEntry{}).
		Where("owner = ? AND kind = ?", owner, kind).
		Order("created_at DESC, id DESC").
		Limit(Limit).
		Pluck("value", &out).Error
	return out, err
}

func (s *Store) Clear(ctx context.Context, owner string, kind models.RecentKind) error {
	return s.db.WithContext(ctx).Where("owner = ? AND kind = ?", owner, kind).Delete(&models.RecentEntry{}).Error
}
