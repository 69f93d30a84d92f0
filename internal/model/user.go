package model

import (
	"time"
)

// User 员工目录条目，由 HR 主应用维护，这里只读 + 校验凭据
type User struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"type:varchar(100)"`
	Email     string `gorm:"type:varchar(120);uniqueIndex:idx_email"`
	Password  string `gorm:"type:varchar(255)"`
	AvatarURL string `gorm:"type:varchar(255)"`
	IsActive  bool   `gorm:"type:tinyint(1);default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}
