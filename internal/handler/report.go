package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/clagon/kakeibo-antigrav/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReportHandler 负责统计报表接口
type ReportHandler struct {
	DB *gorm.DB
}

func NewReportHandler(db *gorm.DB) *ReportHandler {
	return &ReportHandler{DB: db}
}

// ---------- 请求/响应结构 ----------

type breakdownItem struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Icon       string  `json:"icon"`
	Color      string  `json:"color"`
	Amount     int64   `json:"amount"`
	Percent    float64 `json:"percent"`
}

type seriesItem struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

type categoryRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type drillLineItem struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	ReceiptID string      `json:"receipt_id"`
	Memo      string      `json:"memo"`
	Amount    int64       `json:"amount"`
	Category  categoryRef `json:"category"`
}

// reportParams 是校验后的报表查询条件
type reportParams struct {
	kind      string
	mode      string // month / year / all
	year      int
	month     int
	startDate string // all 模式下为空，表示不做日期过滤
	endDate   string
}

// daysInMonth 返回某月天数（闰年由 time 包处理）
func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// parseReportParams 解析并校验报表参数，失败时写好错误响应并返回 false
func parseReportParams(c *gin.Context) (reportParams, bool) {
	var p reportParams

	p.kind = c.Query("type")
	p.mode = c.Query("mode")
	if util.ValidateKind(p.kind) != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "type 必须是 expense 或 income")
		return p, false
	}
	if p.mode != "month" && p.mode != "year" && p.mode != "all" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "mode 必须是 month、year 或 all")
		return p, false
	}

	if p.mode == "month" || p.mode == "year" {
		year, err := strconv.Atoi(c.Query("year"))
		if err != nil || year <= 0 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "year 参数缺失或不合法")
			return p, false
		}
		p.year = year
	}
	if p.mode == "month" {
		month, err := strconv.Atoi(c.Query("month"))
		if err != nil || month < 1 || month > 12 {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "month 参数缺失或不合法")
			return p, false
		}
		p.month = month
	}

	switch p.mode {
	case "month":
		p.startDate = fmt.Sprintf("%04d-%02d-01", p.year, p.month)
		p.endDate = fmt.Sprintf("%04d-%02d-%02d", p.year, p.month, daysInMonth(p.year, p.month))
	case "year":
		p.startDate = fmt.Sprintf("%04d-01-01", p.year)
		p.endDate = fmt.Sprintf("%04d-12-31", p.year)
	}
	return p, true
}

// itemsQuery 构造明细基础查询：按收支类型、可选分类、可选日期范围过滤
func (h *ReportHandler) itemsQuery(p reportParams, categoryID string) *gorm.DB {
	q := h.DB.Table("line_items").
		Joins("JOIN receipts ON receipts.id = line_items.receipt_id").
		Where("receipts.kind = ?", p.kind)
	if categoryID != "" {
		q = q.Where("line_items.category_id = ?", categoryID)
	}
	if p.startDate != "" {
		q = q.Where("receipts.date >= ? AND receipts.date <= ?", p.startDate, p.endDate)
	}
	return q
}

// dailyRow 是按日期预聚合后的一行
type dailyRow struct {
	Date   string
	Amount int64
}

// queryDailySums 按日期分组求和，折叠进时间桶之前的第一遍聚合
func (h *ReportHandler) queryDailySums(p reportParams, categoryID string) ([]dailyRow, error) {
	var rows []dailyRow
	err := h.itemsQuery(p, categoryID).
		Select("receipts.date AS date, SUM(line_items.amount) AS amount").
		Group("receipts.date").
		Order("receipts.date ASC").
		Scan(&rows).Error
	return rows, err
}

// weeklySeries 把每日合计折叠进周桶：第 N 桶覆盖第 (N-1)*7+1 到 N*7 天，
// 不足一周的天数并入最后一桶
func weeklySeries(year, month int, daily []dailyRow) []seriesItem {
	weekCount := (daysInMonth(year, month) + 6) / 7
	amounts := make([]int64, weekCount)

	for _, d := range daily {
		if len(d.Date) < 10 {
			continue
		}
		day, err := strconv.Atoi(d.Date[8:10])
		if err != nil || day < 1 {
			continue
		}
		idx := (day+6)/7 - 1
		if idx > weekCount-1 {
			idx = weekCount - 1
		}
		amounts[idx] += d.Amount
	}

	series := make([]seriesItem, weekCount)
	for i, amount := range amounts {
		series[i] = seriesItem{Label: fmt.Sprintf("第%d週", i+1), Amount: amount}
	}
	return series
}

// monthlySeries 把每日合计折叠进 12 个月桶
func monthlySeries(daily []dailyRow) []seriesItem {
	var amounts [12]int64
	for _, d := range daily {
		if len(d.Date) < 7 {
			continue
		}
		m, err := strconv.Atoi(d.Date[5:7])
		if err != nil || m < 1 || m > 12 {
			continue
		}
		amounts[m-1] += d.Amount
	}

	series := make([]seriesItem, 12)
	for i, amount := range amounts {
		series[i] = seriesItem{Label: fmt.Sprintf("%d月", i+1), Amount: amount}
	}
	return series
}

// yearlySeries 按年份分组求和，只包含实际出现过的年份，升序排列
func (h *ReportHandler) yearlySeries(p reportParams, categoryID string) ([]seriesItem, error) {
	type yearRow struct {
		Year   string
		Amount int64
	}
	var rows []yearRow
	err := h.itemsQuery(p, categoryID).
		Select("substr(receipts.date, 1, 4) AS year, SUM(line_items.amount) AS amount").
		Group("substr(receipts.date, 1, 4)").
		Order("substr(receipts.date, 1, 4) ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	series := make([]seriesItem, 0, len(rows))
	for _, r := range rows {
		series = append(series, seriesItem{Label: r.Year + "年", Amount: r.Amount})
	}
	return series, nil
}

// buildTimeSeries 按模式生成时间序列
func (h *ReportHandler) buildTimeSeries(p reportParams, categoryID string) ([]seriesItem, error) {
	switch p.mode {
	case "month":
		daily, err := h.queryDailySums(p, categoryID)
		if err != nil {
			return nil, err
		}
		return weeklySeries(p.year, p.month, daily), nil
	case "year":
		daily, err := h.queryDailySums(p, categoryID)
		if err != nil {
			return nil, err
		}
		return monthlySeries(daily), nil
	default:
		return h.yearlySeries(p, categoryID)
	}
}

// GetReport 返回整体报表：分类占比 + 时间序列
func (h *ReportHandler) GetReport(c *gin.Context) {
	p, ok := parseReportParams(c)
	if !ok {
		return
	}

	var rows []breakdownItem
	err := h.itemsQuery(p, "").
		Joins("JOIN categories ON categories.id = line_items.category_id").
		Select("categories.id AS category_id, categories.name AS name, categories.icon AS icon, " +
			"categories.color AS color, SUM(line_items.amount) AS amount").
		Group("categories.id, categories.name, categories.icon, categories.color").
		Order("SUM(line_items.amount) DESC").
		Scan(&rows).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	var total int64
	for _, r := range rows {
		total += r.Amount
	}
	// total 为 0 时所有占比都为 0，避免除零
	for i := range rows {
		if total > 0 {
			rows[i].Percent = math.Round(float64(rows[i].Amount)/float64(total)*1000) / 10
		}
	}

	series, err := h.buildTimeSeries(p, "")
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	if rows == nil {
		rows = []breakdownItem{}
	}
	util.Success(c, util.Response{
		"total":              total,
		"category_breakdown": rows,
		"time_series":        series,
	})
}

// GetCategoryReport 返回单个分类的下钻视图：时间序列 + 明细列表
func (h *ReportHandler) GetCategoryReport(c *gin.Context) {
	p, ok := parseReportParams(c)
	if !ok {
		return
	}
	categoryID := c.Query("category_id")
	if categoryID == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "category_id 参数缺失")
		return
	}

	series, err := h.buildTimeSeries(p, categoryID)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	type drillRow struct {
		ID            string
		Date          string
		ReceiptID     string
		Memo          string
		Amount        int64
		CategoryID    string
		CategoryName  string
		CategoryIcon  string
		CategoryColor string
	}
	var rows []drillRow
	err = h.itemsQuery(p, categoryID).
		Joins("JOIN categories ON categories.id = line_items.category_id").
		Select("line_items.id AS id, receipts.date AS date, receipts.id AS receipt_id, " +
			"line_items.memo AS memo, line_items.amount AS amount, " +
			"categories.id AS category_id, categories.name AS category_name, " +
			"categories.icon AS category_icon, categories.color AS category_color").
		Order("receipts.date DESC, line_items.created_at ASC, line_items.id ASC").
		Scan(&rows).Error
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	items := make([]drillLineItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, drillLineItem{
			ID:        r.ID,
			Date:      r.Date,
			ReceiptID: r.ReceiptID,
			Memo:      r.Memo,
			Amount:    r.Amount,
			Category: categoryRef{
				ID:    r.CategoryID,
				Name:  r.CategoryName,
				Icon:  r.CategoryIcon,
				Color: r.CategoryColor,
			},
		})
	}

	util.Success(c, util.Response{
		"time_series": series,
		"line_items":  items,
	})
}
