package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category represents income/expense category.
// DisplayOrder sorts categories within the same kind.
type Category struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Icon         string    `gorm:"size:50;not null" json:"icon"`
	Color        string    `gorm:"size:20;not null" json:"color"`
	Kind         string    `gorm:"size:16;index;not null" json:"kind"` // income / expense
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
