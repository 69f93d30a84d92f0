package model

import (
	"time"
)

// BlockedUser 屏蔽关系，方向为 Blocker 屏蔽 Blocked
type BlockedUser struct {
	ID        uint64 `gorm:"primaryKey"`
	BlockerID uint64 `gorm:"uniqueIndex:idx_block_pair"`
	BlockedID uint64 `gorm:"uniqueIndex:idx_block_pair"`
	CreatedAt time.Time
}

func (BlockedUser) TableName() string {
	return "blocked_users"
}
