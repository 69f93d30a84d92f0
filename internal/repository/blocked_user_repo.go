package repository

import (
	"Harbor/internal/model"
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlockedUserRepo interface {
	Block(ctx context.Context, blockerID, blockedID uint64) error
	Unblock(ctx context.Context, blockerID, blockedID uint64) error
	IsBlockedEither(ctx context.Context, a, b uint64) (bool, error)
	ListBlocked(ctx context.Context, blockerID uint64) ([]uint64, error)
}

type BlockedUserRepoImpl struct {
	db *gorm.DB
}

func NewBlockedUserRepo(db *gorm.DB) BlockedUserRepo {
	return &BlockedUserRepoImpl{db: db}
}

// Block 重复屏蔽幂等
func (s *BlockedUserRepoImpl) Block(ctx context.Context, blockerID, blockedID uint64) error {
	rel := &model.BlockedUser{BlockerID: blockerID, BlockedID: blockedID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rel).Error
}

func (s *BlockedUserRepoImpl) Unblock(ctx context.Context, blockerID, blockedID uint64) error {
	return s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.BlockedUser{}).Error
}

// IsBlockedEither 任一方向存在屏蔽即视为不可达
func (s *BlockedUserRepoImpl) IsBlockedEither(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.BlockedUser{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *BlockedUserRepoImpl) ListBlocked(ctx context.Context, blockerID uint64) ([]uint64, error) {
	var ids []uint64
	err := s.db.WithContext(ctx).Model(&model.BlockedUser{}).
		Where("blocker_id = ?", blockerID).
		Pluck("blocked_id", &ids).Error
	return ids, err
}
