package handler

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/clagon/kakeibo-antigrav/internal/models"
	"github.com/clagon/kakeibo-antigrav/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CategoryHandler 负责分类相关接口
type CategoryHandler struct {
	DB *gorm.DB
}

func NewCategoryHandler(db *gorm.DB) *CategoryHandler {
	return &CategoryHandler{DB: db}
}

// ---------- 请求结构 ----------

type createCategoryReq struct {
	Name  string `json:"name" binding:"required,max=100"`
	Kind  string `json:"kind" binding:"required,oneof=income expense"`
	Icon  string `json:"icon" binding:"max=50"`
	Color string `json:"color" binding:"max=20"`
}

type updateCategoryReq struct {
	Name         *string `json:"name"`
	Icon         *string `json:"icon"`
	Color        *string `json:"color"`
	DisplayOrder *int    `json:"display_order"`
}

// ListCategories 按 display_order 升序返回分类，可按 kind 过滤
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	q := h.DB.Model(&models.Category{})

	if kind := c.Query("kind"); kind != "" {
		if util.ValidateKind(kind) != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "kind 必须是 expense 或 income")
			return
		}
		q = q.Where("kind = ?", kind)
	}

	var categories []models.Category
	if err := q.Order("display_order ASC, created_at ASC").Find(&categories).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"categories": categories,
	})
}

// CreateCategory 新建分类，display_order 追加到同类型末尾
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req createCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "请输入分类名称")
		return
	}
	if req.Icon == "" {
		req.Icon = "circle"
	}
	if req.Color == "" {
		req.Color = "#94a3b8"
	}

	var maxOrder sql.NullInt64
	if err := h.DB.Model(&models.Category{}).
		Where("kind = ?", req.Kind).
		Select("MAX(display_order)").
		Scan(&maxOrder).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	order := 0
	if maxOrder.Valid {
		order = int(maxOrder.Int64) + 1
	}

	cat := models.Category{
		Name:         req.Name,
		Kind:         req.Kind,
		Icon:         req.Icon,
		Color:        req.Color,
		DisplayOrder: order,
	}
	if err := h.DB.Create(&cat).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"category": cat,
	})
}

// UpdateCategory 部分更新分类（名称/图标/颜色/排序）
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id := c.Param("id")

	var req updateCategoryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "分类名称不能为空")
			return
		}
		updates["name"] = name
	}
	if req.Icon != nil {
		updates["icon"] = *req.Icon
	}
	if req.Color != nil {
		updates["color"] = *req.Color
	}
	if req.DisplayOrder != nil {
		updates["display_order"] = *req.DisplayOrder
	}
	if len(updates) == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "没有需要更新的字段")
		return
	}

	var cat models.Category
	if err := h.DB.First(&cat, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			util.Error(c, http.StatusNotFound, util.CodeNotFound, "分类不存在")
		} else {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		}
		return
	}

	if err := h.DB.Model(&cat).Updates(updates).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
		return
	}

	util.Success(c, util.Response{
		"category": cat,
	})
}

// DeleteCategory 删除分类，仍被明细引用时返回 409
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id := c.Param("id")

	var inUse int64
	if err := h.DB.Model(&models.LineItem{}).
		Where("category_id = ?", id).
		Count(&inUse).Error; err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}
	if inUse > 0 {
		util.Error(c, http.StatusConflict, util.CodeConflict,
			fmt.Sprintf("该分类正被 %d 条明细使用，无法删除", inUse))
		return
	}

	result := h.DB.Delete(&models.Category{}, "id = ?", id)
	if result.Error != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}
	if result.RowsAffected == 0 {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "分类不存在")
		return
	}

	util.Success(c, util.Response{
		"message": "删除成功",
	})
}
