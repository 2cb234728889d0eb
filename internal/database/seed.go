package database

import (
	"fmt"

	"github.com/clagon/kakeibo-antigrav/internal/models"

	"gorm.io/gorm"
)

// Seed 在空库上写入默认分类和应用设置，已有数据时不做任何事
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if count == 0 {
		categories := []models.Category{
			{Name: "食費", Icon: "utensils", Color: "#ef4444", Kind: "expense", DisplayOrder: 0},
			{Name: "交通費", Icon: "train-front", Color: "#3b82f6", Kind: "expense", DisplayOrder: 1},
			{Name: "住居費", Icon: "house", Color: "#8b5cf6", Kind: "expense", DisplayOrder: 2},
			{Name: "光熱費", Icon: "lightbulb", Color: "#f59e0b", Kind: "expense", DisplayOrder: 3},
			{Name: "衣服", Icon: "shirt", Color: "#ec4899", Kind: "expense", DisplayOrder: 4},
			{Name: "医療", Icon: "heart-pulse", Color: "#10b981", Kind: "expense", DisplayOrder: 5},
			{Name: "通信費", Icon: "smartphone", Color: "#06b6d4", Kind: "expense", DisplayOrder: 6},
			{Name: "娯楽", Icon: "gamepad-2", Color: "#f97316", Kind: "expense", DisplayOrder: 7},
			{Name: "教育", Icon: "book-open", Color: "#6366f1", Kind: "expense", DisplayOrder: 8},
			{Name: "その他", Icon: "package", Color: "#64748b", Kind: "expense", DisplayOrder: 9},
			{Name: "給与", Icon: "wallet", Color: "#3b82f6", Kind: "income", DisplayOrder: 0},
			{Name: "副収入", Icon: "trending-up", Color: "#10b981", Kind: "income", DisplayOrder: 1},
			{Name: "ボーナス", Icon: "gift", Color: "#f59e0b", Kind: "income", DisplayOrder: 2},
			{Name: "その他", Icon: "circle-plus", Color: "#64748b", Kind: "income", DisplayOrder: 3},
		}
		if err := db.Create(&categories).Error; err != nil {
			return fmt.Errorf("seed categories: %w", err)
		}
	}

	if err := db.Model(&models.AppSetting{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count settings: %w", err)
	}
	if count == 0 {
		if err := db.Create(&models.AppSetting{InitialBalance: 0, WeekStartDay: 1}).Error; err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}
	return nil
}
