package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Receipt 表示一张小票：同一天、同一收支类型下的一组明细
// 日期存 YYYY-MM-DD 字符串，字典序即时间序，方便范围查询
type Receipt struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Date      string    `gorm:"size:10;index;not null" json:"date"`
	Kind      string    `gorm:"size:16;index;not null" json:"kind"` // income / expense
	Memo      string    `gorm:"type:text" json:"memo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	LineItems []LineItem `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
