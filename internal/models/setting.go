package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppSetting stores application-wide settings as a single row.
type AppSetting struct {
	ID             string `gorm:"primaryKey;size:36" json:"id"`
	InitialBalance int64  `gorm:"not null;default:0" json:"initial_balance"`
	WeekStartDay   int    `gorm:"not null;default:1" json:"week_start_day"` // 1=周一
}

func (s *AppSetting) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
