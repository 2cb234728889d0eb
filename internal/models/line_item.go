package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LineItem 表示小票下的一条明细
// 金额用整数存储（最小货币单位），避免浮点误差
type LineItem struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	ReceiptID  string    `gorm:"size:36;index;not null" json:"receipt_id"`
	CategoryID string    `gorm:"size:36;index;not null" json:"category_id"`
	Memo       string    `gorm:"type:text" json:"memo"`
	Amount     int64     `gorm:"not null" json:"amount"`
	CreatedAt  time.Time `json:"created_at"`

	Category Category `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}

func (l *LineItem) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}
