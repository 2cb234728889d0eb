package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/clagon/kakeibo-antigrav/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SearchHandler 负责备注关键字搜索接口
type SearchHandler struct {
	DB *gorm.DB
}

func NewSearchHandler(db *gorm.DB) *SearchHandler {
	return &SearchHandler{DB: db}
}

// Search 在小票备注和明细备注里做关键字匹配，按小票分组返回
// 只有命中的明细会出现在对应小票下（小票备注命中时带全部明细）
func (h *SearchHandler) Search(c *gin.Context) {
	keyword := strings.TrimSpace(c.Query("q"))
	if keyword == "" {
		util.Success(c, util.Response{
			"receipts": []receiptResp{},
		})
		return
	}
	pattern := "%" + keyword + "%"

	type searchRow struct {
		ReceiptID     string
		Date          string
		Kind          string
		ReceiptMemo   string
		CreatedAt     time.Time
		UpdatedAt     time.Time
		ItemID        *string
		CategoryID    *string
		CategoryName  *string
		CategoryIcon  *string
		CategoryColor *string
		ItemMemo      *string
		Amount        *int64
	}
	var rows []searchRow
	err := h.DB.Table("receipts").
		Select("receipts.id AS receipt_id, receipts.date AS date, receipts.kind AS kind, "+
			"receipts.memo AS receipt_memo, receipts.created_at AS created_at, receipts.updated_at AS updated_at, "+
			"line_items.id AS item_id, categories.id AS category_id, categories.name AS category_name, "+
			"categories.icon AS category_icon, categories.color AS category_color, "+
			"line_items.memo AS item_memo, line_items.amount AS amount").
		Joins("LEFT JOIN line_items ON line_items.receipt_id = receipts.id").
		Joins("LEFT JOIN categories ON categories.id = line_items.category_id").
		Where("receipts.memo LIKE ? OR line_items.memo LIKE ?", pattern, pattern).
		Order("receipts.date DESC, receipts.created_at DESC, line_items.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "搜索失败")
		return
	}

	// 按小票分组，保持日期降序；LEFT JOIN 可能重复命中，按明细 ID 去重
	var receipts []receiptResp
	index := make(map[string]int)
	seen := make(map[string]bool)

	for _, row := range rows {
		ri, ok := index[row.ReceiptID]
		if !ok {
			ri = len(receipts)
			index[row.ReceiptID] = ri
			receipts = append(receipts, receiptResp{
				ID:        row.ReceiptID,
				Date:      row.Date,
				Kind:      row.Kind,
				Memo:      row.ReceiptMemo,
				CreatedAt: row.CreatedAt,
				UpdatedAt: row.UpdatedAt,
				Items:     []receiptItemResp{},
			})
		}

		if row.ItemID == nil || seen[*row.ItemID] {
			continue
		}
		seen[*row.ItemID] = true
		receipts[ri].Items = append(receipts[ri].Items, receiptItemResp{
			ID:            *row.ItemID,
			CategoryID:    *row.CategoryID,
			CategoryName:  *row.CategoryName,
			CategoryIcon:  *row.CategoryIcon,
			CategoryColor: *row.CategoryColor,
			Memo:          *row.ItemMemo,
			Amount:        *row.Amount,
		})
	}

	if receipts == nil {
		receipts = []receiptResp{}
	}
	util.Success(c, util.Response{
		"receipts": receipts,
	})
}
