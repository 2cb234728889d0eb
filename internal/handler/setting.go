package handler

import (
	"net/http"

	"github.com/clagon/kakeibo-antigrav/internal/models"
	"github.com/clagon/kakeibo-antigrav/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SettingHandler 负责应用设置接口
type SettingHandler struct {
	DB *gorm.DB
}

func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{DB: db}
}

type updateSettingReq struct {
	InitialBalance *int64 `json:"initial_balance"`
	WeekStartDay   *int   `json:"week_start_day"`
}

// getOrCreate 取设置单行，不存在时创建默认值
func (h *SettingHandler) getOrCreate() (*models.AppSetting, error) {
	var setting models.AppSetting
	err := h.DB.First(&setting).Error
	if err == gorm.ErrRecordNotFound {
		setting = models.AppSetting{InitialBalance: 0, WeekStartDay: 1}
		if err := h.DB.Create(&setting).Error; err != nil {
			return nil, err
		}
		return &setting, nil
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// GetSettings 返回应用设置
func (h *SettingHandler) GetSettings(c *gin.Context) {
	setting, err := h.getOrCreate()
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	util.Success(c, util.Response{
		"settings": setting,
	})
}

// UpdateSettings 部分更新应用设置
func (h *SettingHandler) UpdateSettings(c *gin.Context) {
	var req updateSettingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}

	setting, err := h.getOrCreate()
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	updates := map[string]interface{}{}
	if req.InitialBalance != nil {
		updates["initial_balance"] = *req.InitialBalance
	}
	if req.WeekStartDay != nil {
		if *req.WeekStartDay < 0 || *req.WeekStartDay > 6 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "week_start_day 必须在 0-6 之间")
			return
		}
		updates["week_start_day"] = *req.WeekStartDay
	}

	if len(updates) > 0 {
		if err := h.DB.Model(setting).Updates(updates).Error; err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "保存失败，请重试")
			return
		}
	}

	util.Success(c, util.Response{
		"settings": setting,
	})
}
