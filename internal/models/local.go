package models

import (
	"time"
)

// StoredValue 本地持久化键值（认证载荷等）
type StoredValue struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     []byte    `gorm:"not null" json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecentKind 最近记录列表的类型
type RecentKind string

const (
	RecentSearch  RecentKind = "search"
	RecentProfile RecentKind = "profile"
)

// RecentEntry 最近搜索 / 最近浏览的档案，每个 owner+kind 最多保留 5 条
type RecentEntry struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Owner     string     `gorm:"size:191;not null;uniqueIndex:idx_owner_kind_value" json:"owner"`
	Kind      RecentKind `gorm:"size:20;not null;uniqueIndex:idx_owner_kind_value" json:"kind"`
	Value     string     `gorm:"size:191;not null;uniqueIndex:idx_owner_kind_value" json:"value"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}
