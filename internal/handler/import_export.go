package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clagon/kakeibo-antigrav/internal/models"
	"github.com/clagon/kakeibo-antigrav/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ImportExportHandler 负责 CSV 导入和 CSV/XLSX 导出接口
type ImportExportHandler struct {
	DB         *gorm.DB
	FilePrefix string
}

func NewImportExportHandler(db *gorm.DB, filePrefix string) *ImportExportHandler {
	if filePrefix == "" {
		filePrefix = "kakeibo_export"
	}
	return &ImportExportHandler{
		DB:         db,
		FilePrefix: filePrefix,
	}
}

// ---------- 导入 ----------

// importRow 是通过校验后的一行导入数据
type importRow struct {
	receiptKey  string // 可为空；为空表示单独成票
	date        string
	kind        string
	receiptMemo string
	categoryID  string
	amount      int64
	memo        string
}

// parseImportRows 逐行校验并解析数据行。不合法的行静默跳过：
// 少于 7 列、日期为空或格式错误、类型不是 expense/income、金额不是整数
func parseImportRows(rows [][]string, resolver *categoryResolver) ([]importRow, error) {
	items := make([]importRow, 0, len(rows))
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}

		date := strings.TrimSpace(row[1])
		kind := strings.TrimSpace(row[2])
		if util.ValidateDate(date) != nil || util.ValidateKind(kind) != nil {
			continue
		}
		amount, err := util.ParseAmount(strings.TrimSpace(row[5]))
		if err != nil {
			continue
		}

		categoryID, err := resolver.Resolve(row[4], kind)
		if err != nil {
			return nil, err
		}

		items = append(items, importRow{
			receiptKey:  strings.TrimSpace(row[0]),
			date:        date,
			kind:        kind,
			receiptMemo: strings.TrimSpace(row[3]),
			categoryID:  categoryID,
			amount:      amount,
			memo:        strings.TrimSpace(row[6]),
		})
	}
	return items, nil
}

// groupImportRows 按小票分组：带小票 ID 的行用 id:<key> 合并，
// 不带的行每行单独分配 single:<行号>，互相不会合并。保持首次出现的顺序
func groupImportRows(items []importRow) [][]importRow {
	var groups [][]importRow
	index := make(map[string]int)

	for i, item := range items {
		key := "single:" + strconv.Itoa(i)
		if item.receiptKey != "" {
			key = "id:" + item.receiptKey
		}
		if gi, ok := index[key]; ok {
			groups[gi] = append(groups[gi], item)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, []importRow{item})
	}
	return groups
}

// writeGroups 在一个事务里写入全部小票和明细，任何一笔失败则整体回滚
func writeGroups(db *gorm.DB, groups [][]importRow) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, items := range groups {
			// 日期和类型取组内第一行；小票备注取组内第一条非空的
			first := items[0]
			memo := ""
			for _, item := range items {
				if item.receiptMemo != "" {
					memo = item.receiptMemo
					break
				}
			}

			receipt := models.Receipt{
				Date: first.date,
				Kind: first.kind,
				Memo: memo,
			}
			if err := tx.Create(&receipt).Error; err != nil {
				return err
			}

			for _, item := range items {
				li := models.LineItem{
					ReceiptID:  receipt.ID,
					CategoryID: item.categoryID,
					Memo:       item.memo,
					Amount:     item.amount,
				}
				if err := tx.Create(&li).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ImportCSV 导入 CSV 账本数据
func (h *ImportExportHandler) ImportCSV(c *gin.Context) {
	var payload []byte
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "无法读取上传文件")
			return
		}
		defer f.Close()
		payload, err = io.ReadAll(f)
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "无法读取上传文件")
			return
		}
	} else {
		raw, err := c.GetRawData()
		if err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "无法读取上传文件")
			return
		}
		payload = raw
	}

	text := strings.TrimPrefix(string(payload), util.UTF8BOM)
	if strings.TrimSpace(text) == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "文件为空")
		return
	}

	rows := util.DecodeCSV(text)
	if len(rows) < 2 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "数据不足或格式错误")
		return
	}

	// 第一行是表头，跳过
	resolver := newCategoryResolver(h.DB)
	items, err := parseImportRows(rows[1:], resolver)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "导入处理失败")
		return
	}
	if len(items) == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "没有可导入的有效数据")
		return
	}

	if err := writeGroups(h.DB, groupImportRows(items)); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "导入失败，已回滚")
		return
	}

	util.Success(c, util.Response{
		"count":   len(items),
		"message": fmt.Sprintf("成功导入 %d 条明细", len(items)),
	})
}

// ---------- 导出 ----------

// exportRow 是按明细展开、带小票和分类信息的导出投影
type exportRow struct {
	ReceiptID    string
	Date         string
	Kind         string
	ReceiptMemo  string
	CategoryName string
	Amount       int64
	Memo         string
}

// queryExportRows 按小票日期升序取全部明细，同日按创建顺序排列
func (h *ImportExportHandler) queryExportRows() ([]exportRow, error) {
	var rows []exportRow
	err := h.DB.Table("line_items").
		Select("receipts.id AS receipt_id, receipts.date AS date, receipts.kind AS kind, " +
			"receipts.memo AS receipt_memo, categories.name AS category_name, " +
			"line_items.amount AS amount, line_items.memo AS memo").
		Joins("JOIN receipts ON receipts.id = line_items.receipt_id").
		Joins("JOIN categories ON categories.id = line_items.category_id").
		Order("receipts.date ASC, receipts.created_at ASC, line_items.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExportCSV 导出账本为 CSV
func (h *ImportExportHandler) ExportCSV(c *gin.Context) {
	rows, err := h.queryExportRows()
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.ReceiptID,
			r.Date,
			r.Kind,
			r.ReceiptMemo,
			r.CategoryName,
			strconv.FormatInt(r.Amount, 10),
			r.Memo,
		})
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s_%s.csv\"",
		h.FilePrefix, time.Now().Format("20060102")))

	// UTF-8 BOM（让 Excel 正确识别编码）
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(util.UTF8BOM+util.EncodeCSV(records)))
}

// ExportXLSX 导出账本为 XLSX，列与 CSV 完全一致
func (h *ImportExportHandler) ExportXLSX(c *gin.Context) {
	rows, err := h.queryExportRows()
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	f := excelize.NewFile()
	sheetName := "明細"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "创建工作表失败")
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := strings.Split(util.CSVHeader, ",")
	for i, name := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, name)
	}

	for idx, r := range rows {
		row := idx + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.ReceiptID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.Date)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.Kind)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.ReceiptMemo)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), r.CategoryName)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), r.Amount)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), r.Memo)
	}

	f.SetColWidth(sheetName, "A", "A", 38)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "D", "E", 20)
	f.SetColWidth(sheetName, "G", "G", 30)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s_%s.xlsx\"",
		h.FilePrefix, time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "导出失败")
	}
}
