package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/clagon/kakeibo-antigrav/internal/models"
	"github.com/clagon/kakeibo-antigrav/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReceiptHandler 负责小票相关接口
type ReceiptHandler struct {
	DB *gorm.DB
}

func NewReceiptHandler(db *gorm.DB) *ReceiptHandler {
	return &ReceiptHandler{DB: db}
}

// ---------- 请求/响应结构 ----------

type receiptItemReq struct {
	CategoryID string `json:"category_id" binding:"required"`
	Memo       string `json:"memo"`
	Amount     int64  `json:"amount"`
}

type receiptReq struct {
	Date  string           `json:"date" binding:"required"`
	Kind  string           `json:"kind" binding:"required,oneof=income expense"`
	Memo  string           `json:"memo"`
	Items []receiptItemReq `json:"items" binding:"required,min=1,dive"`
}

type receiptItemResp struct {
	ID            string `json:"id"`
	CategoryID    string `json:"category_id"`
	CategoryName  string `json:"category_name"`
	CategoryIcon  string `json:"category_icon"`
	CategoryColor string `json:"category_color"`
	Memo          string `json:"memo"`
	Amount        int64  `json:"amount"`
}

type receiptResp struct {
	ID        string            `json:"id"`
	Date      string            `json:"date"`
	Kind      string            `json:"kind"`
	Memo      string            `json:"memo"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Items     []receiptItemResp `json:"items"`
}

// queryReceiptItems 取若干小票的明细（含分类信息），按创建顺序排列
func (h *ReceiptHandler) queryReceiptItems(receiptIDs []string) (map[string][]receiptItemResp, error) {
	type itemRow struct {
		ReceiptID     string
		ID            string
		CategoryID    string
		CategoryName  string
		CategoryIcon  string
		CategoryColor string
		Memo          string
		Amount        int64
	}
	var rows []itemRow
	err := h.DB.Table("line_items").
		Select("line_items.receipt_id AS receipt_id, line_items.id AS id, "+
			"categories.id AS category_id, categories.name AS category_name, "+
			"categories.icon AS category_icon, categories.color AS category_color, "+
			"line_items.memo AS memo, line_items.amount AS amount").
		Joins("JOIN categories ON categories.id = line_items.category_id").
		Where("line_items.receipt_id IN ?", receiptIDs).
		Order("line_items.created_at ASC, line_items.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byReceipt := make(map[string][]receiptItemResp, len(receiptIDs))
	for _, r := range rows {
		byReceipt[r.ReceiptID] = append(byReceipt[r.ReceiptID], receiptItemResp{
			ID:            r.ID,
			CategoryID:    r.CategoryID,
			CategoryName:  r.CategoryName,
			CategoryIcon:  r.CategoryIcon,
			CategoryColor: r.CategoryColor,
			Memo:          r.Memo,
			Amount:        r.Amount,
		})
	}
	return byReceipt, nil
}

// CreateReceipt 新建小票和明细（单个事务）
func (h *ReceiptHandler) CreateReceipt(c *gin.Context) {
	var req receiptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := util.ValidateDate(req.Date); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "日期格式错误，应为 YYYY-MM-DD")
		return
	}

	receipt := models.Receipt{
		Date: req.Date,
		Kind: req.Kind,
		Memo: req.Memo,
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&receipt).Error; err != nil {
			return err
		}
		for _, item := range req.Items {
			li := models.LineItem{
				ReceiptID:  receipt.ID,
				CategoryID: item.CategoryID,
				Memo:       item.Memo,
				Amount:     item.Amount,
			}
			if err := tx.Create(&li).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"receipt": gin.H{
			"id":         receipt.ID,
			"date":       receipt.Date,
			"kind":       receipt.Kind,
			"memo":       receipt.Memo,
			"created_at": receipt.CreatedAt,
		},
	})
}

// GetReceipt 返回单张小票及其明细
func (h *ReceiptHandler) GetReceipt(c *gin.Context) {
	id := c.Param("id")

	var receipt models.Receipt
	if err := h.DB.First(&receipt, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "小票不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	items, err := h.queryReceiptItems([]string{receipt.ID})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	resp := receiptResp{
		ID:        receipt.ID,
		Date:      receipt.Date,
		Kind:      receipt.Kind,
		Memo:      receipt.Memo,
		CreatedAt: receipt.CreatedAt,
		UpdatedAt: receipt.UpdatedAt,
		Items:     items[receipt.ID],
	}
	if resp.Items == nil {
		resp.Items = []receiptItemResp{}
	}

	util.Success(c, util.Response{
		"receipt": resp,
	})
}

// UpdateReceipt 更新小票：先改本体，再删旧明细、插入新明细（单个事务）
func (h *ReceiptHandler) UpdateReceipt(c *gin.Context) {
	id := c.Param("id")

	var req receiptReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := util.ValidateDate(req.Date); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "日期格式错误，应为 YYYY-MM-DD")
		return
	}

	var receipt models.Receipt
	if err := h.DB.First(&receipt, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "小票不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&receipt).Updates(map[string]interface{}{
			"date": req.Date,
			"kind": req.Kind,
			"memo": req.Memo,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("receipt_id = ?", id).Delete(&models.LineItem{}).Error; err != nil {
			return err
		}
		for _, item := range req.Items {
			li := models.LineItem{
				ReceiptID:  id,
				CategoryID: item.CategoryID,
				Memo:       item.Memo,
				Amount:     item.Amount,
			}
			if err := tx.Create(&li).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"message": "更新成功",
	})
}

// DeleteReceipt 删除小票，明细随外键级联删除
func (h *ReceiptHandler) DeleteReceipt(c *gin.Context) {
	id := c.Param("id")

	result := h.DB.Delete(&models.Receipt{}, "id = ?", id)
	if result.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}
	if result.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "小票不存在")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}

// ListMonthReceipts 返回指定月份的全部小票（含明细），日期降序
func (h *ReceiptHandler) ListMonthReceipts(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil || year <= 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "year 参数缺失或不合法")
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil || month < 1 || month > 12 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "month 参数缺失或不合法")
		return
	}

	startDate := fmt.Sprintf("%04d-%02d-01", year, month)
	endDate := fmt.Sprintf("%04d-%02d-%02d", year, month, daysInMonth(year, month))

	var receipts []models.Receipt
	if err := h.DB.
		Where("date >= ? AND date <= ?", startDate, endDate).
		Order("date DESC, created_at DESC").
		Find(&receipts).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	resp := make([]receiptResp, 0, len(receipts))
	if len(receipts) > 0 {
		ids := make([]string, 0, len(receipts))
		for _, r := range receipts {
			ids = append(ids, r.ID)
		}
		itemsByReceipt, err := h.queryReceiptItems(ids)
		if err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
			return
		}

		for _, r := range receipts {
			items := itemsByReceipt[r.ID]
			if items == nil {
				items = []receiptItemResp{}
			}
			resp = append(resp, receiptResp{
				ID:        r.ID,
				Date:      r.Date,
				Kind:      r.Kind,
				Memo:      r.Memo,
				CreatedAt: r.CreatedAt,
				UpdatedAt: r.UpdatedAt,
				Items:     items,
			})
		}
	}

	util.Success(c, util.Response{
		"receipts": resp,
	})
}
