package handler

import (
	"encoding/json"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/clagon/kakeibo-antigrav/internal/models"
	"github.com/clagon/kakeibo-antigrav/internal/util"
)

// TestImportCSV_ExampleRow 没有小票 ID 的一行单独成票
func TestImportCSV_ExampleRow(t *testing.T) {
	db := newTestDB(t)

	w := doImport(db, util.CSVHeader+"\n,2026-02-22,expense,,食費,800,ランチ\n")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeResp(t, w)
	var count int
	if err := json.Unmarshal(resp.Data["count"], &count); err != nil || count != 1 {
		t.Errorf("count = %d (err %v), want 1", count, err)
	}

	var receipt models.Receipt
	if err := db.First(&receipt).Error; err != nil {
		t.Fatalf("load receipt: %v", err)
	}
	if receipt.Date != "2026-02-22" || receipt.Kind != "expense" || receipt.Memo != "" {
		t.Errorf("receipt = %+v, want date 2026-02-22 kind expense empty memo", receipt)
	}

	var item models.LineItem
	if err := db.First(&item).Error; err != nil {
		t.Fatalf("load line item: %v", err)
	}
	if item.ReceiptID != receipt.ID || item.Amount != 800 || item.Memo != "ランチ" {
		t.Errorf("line item = %+v, want receipt %s amount 800 memo ランチ", item, receipt.ID)
	}

	var cat models.Category
	if err := db.First(&cat, "id = ?", item.CategoryID).Error; err != nil {
		t.Fatalf("load category: %v", err)
	}
	if cat.Name != "食費" || cat.Kind != "expense" {
		t.Errorf("category = %+v, want 食費/expense", cat)
	}
}

// TestImportCSV_GroupsByReceiptKey 相同小票 ID 的行合并为一张小票
func TestImportCSV_GroupsByReceiptKey(t *testing.T) {
	db := newTestDB(t)

	csv := util.CSVHeader + "\n" +
		"r1,2026-01-10,expense,,食費,500,パン\n" +
		"r1,2026-01-10,expense,スーパー,食費,300,牛乳\n" +
		",2026-01-11,expense,,交通費,200,バス\n" +
		",2026-01-11,expense,,交通費,200,バス\n"

	w := doImport(db, csv)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	if got := mustCount(t, db, &models.Receipt{}); got != 3 {
		t.Errorf("receipts = %d, want 3 (1 merged + 2 singles)", got)
	}
	if got := mustCount(t, db, &models.LineItem{}); got != 4 {
		t.Errorf("line items = %d, want 4", got)
	}

	// 合并的小票有 2 条明细，备注取组内第一条非空的
	var merged models.Receipt
	if err := db.First(&merged, "date = ?", "2026-01-10").Error; err != nil {
		t.Fatalf("load merged receipt: %v", err)
	}
	var itemCount int64
	db.Model(&models.LineItem{}).Where("receipt_id = ?", merged.ID).Count(&itemCount)
	if itemCount != 2 {
		t.Errorf("merged receipt items = %d, want 2", itemCount)
	}
	if merged.Memo != "スーパー" {
		t.Errorf("merged receipt memo = %q, want スーパー", merged.Memo)
	}
}

// TestImportCSV_CategoryMemoized 同一个新分类只创建一次
func TestImportCSV_CategoryMemoized(t *testing.T) {
	db := newTestDB(t)

	var sb strings.Builder
	sb.WriteString(util.CSVHeader + "\n")
	for i := 0; i < 10; i++ {
		sb.WriteString(",2026-03-01,expense,,雑費,100,\n")
	}

	w := doImport(db, sb.String())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	if got := mustCount(t, db, &models.Category{}); got != 1 {
		t.Errorf("categories = %d, want 1", got)
	}
	if got := mustCount(t, db, &models.LineItem{}); got != 10 {
		t.Errorf("line items = %d, want 10", got)
	}
}

// TestImportCSV_ExistingCategoryReused 已有分类按（名称, 类型）复用
func TestImportCSV_ExistingCategoryReused(t *testing.T) {
	db := newTestDB(t)
	existing := mustCreateCategory(t, db, "食費", "expense")
	// 同名不同类型是另一个分类
	mustCreateCategory(t, db, "食費", "income")

	w := doImport(db, util.CSVHeader+"\n,2026-02-22,expense,,食費,800,ランチ\n")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	if got := mustCount(t, db, &models.Category{}); got != 2 {
		t.Errorf("categories = %d, want 2 (no new category)", got)
	}
	var item models.LineItem
	if err := db.First(&item).Error; err != nil {
		t.Fatalf("load line item: %v", err)
	}
	if item.CategoryID != existing.ID {
		t.Errorf("category id = %s, want existing %s", item.CategoryID, existing.ID)
	}
}

// TestImportCSV_EmptyCategoryFallsBack 分类名为空时落到默认分类
func TestImportCSV_EmptyCategoryFallsBack(t *testing.T) {
	db := newTestDB(t)

	w := doImport(db, util.CSVHeader+"\n,2026-02-22,expense,,,800,\n")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var cat models.Category
	if err := db.First(&cat).Error; err != nil {
		t.Fatalf("load category: %v", err)
	}
	if cat.Name != "未分類" {
		t.Errorf("category name = %q, want 未分類", cat.Name)
	}
}

// TestImportCSV_InvalidRowsSkipped 不合法的行静默跳过，不影响其他行
func TestImportCSV_InvalidRowsSkipped(t *testing.T) {
	db := newTestDB(t)

	csv := util.CSVHeader + "\n" +
		",2026-02-22,transfer,,食費,800,\n" + // 类型不合法
		",2026-02-22,expense,,食費,8oo,\n" + // 金额不是整数
		",,expense,,食費,800,\n" + // 日期为空
		",2026-02-30,expense,,食費,800,\n" + // 日期不存在
		"short,row\n" + // 列数不足
		",2026-02-22,expense,,食費,800,ランチ\n" // 唯一合法行

	w := doImport(db, csv)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	resp := decodeResp(t, w)
	var count int
	if err := json.Unmarshal(resp.Data["count"], &count); err != nil || count != 1 {
		t.Errorf("count = %d (err %v), want 1", count, err)
	}
	if got := mustCount(t, db, &models.Receipt{}); got != 1 {
		t.Errorf("receipts = %d, want 1", got)
	}
}

// TestImportCSV_NoValidRows 全部行都不合法时拒绝导入
func TestImportCSV_NoValidRows(t *testing.T) {
	db := newTestDB(t)

	csv := util.CSVHeader + "\n" +
		",2026-02-22,transfer,,食費,800,\n" +
		",2026-02-22,expense,,食費,abc,\n"

	w := doImport(db, csv)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (body: %s)", w.Code, w.Body.String())
	}
	if got := mustCount(t, db, &models.Receipt{}); got != 0 {
		t.Errorf("receipts = %d, want 0", got)
	}
	if got := mustCount(t, db, &models.Category{}); got != 0 {
		t.Errorf("categories = %d, want 0", got)
	}
}

// TestImportCSV_EmptyFile 空文件直接拒绝
func TestImportCSV_EmptyFile(t *testing.T) {
	db := newTestDB(t)

	for _, payload := range []string{"", "   \n  "} {
		w := doImport(db, payload)
		if w.Code != http.StatusBadRequest {
			t.Errorf("import(%q) status = %d, want 400", payload, w.Code)
		}
	}
}

// TestImportCSV_QuotedFields 引号字段里的逗号和引号要正确解析
func TestImportCSV_QuotedFields(t *testing.T) {
	db := newTestDB(t)

	w := doImport(db, util.CSVHeader+"\n,2026-02-22,expense,\"买,菜\",食費,800,\"说\"\"你好\"\"\"\n")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}

	var receipt models.Receipt
	if err := db.First(&receipt).Error; err != nil {
		t.Fatalf("load receipt: %v", err)
	}
	if receipt.Memo != "买,菜" {
		t.Errorf("receipt memo = %q, want 买,菜", receipt.Memo)
	}
	var item models.LineItem
	if err := db.First(&item).Error; err != nil {
		t.Fatalf("load line item: %v", err)
	}
	if item.Memo != `说"你好"` {
		t.Errorf("item memo = %q, want 说\"你好\"", item.Memo)
	}
}

// TestExportCSV_HeaderAndBOM 导出带 BOM、表头和正确的 Content-Type
func TestExportCSV_HeaderAndBOM(t *testing.T) {
	db := newTestDB(t)
	cat := mustCreateCategory(t, db, "食費", "expense")
	mustCreateReceipt(t, db, "2026-02-22", "expense", "", []models.LineItem{
		{CategoryID: cat.ID, Amount: 800, Memo: "ランチ"},
	})

	w := doExportCSV(db)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("Content-Type = %q, want text/csv; charset=utf-8", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "kakeibo_export_") {
		t.Errorf("Content-Disposition = %q, want filename with kakeibo_export_", cd)
	}

	body := w.Body.String()
	if !strings.HasPrefix(body, util.UTF8BOM) {
		t.Error("export body missing UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimPrefix(body, util.UTF8BOM), "\n")
	if lines[0] != util.CSVHeader {
		t.Errorf("header = %q, want %q", lines[0], util.CSVHeader)
	}
	if len(lines) != 2 {
		t.Fatalf("export has %d lines, want 2", len(lines))
	}
}

// exportTuples 把导出内容规约为 (日期, 类型, 分类, 金额, 明细备注) 元组集合
func exportTuples(t *testing.T, body string) []string {
	t.Helper()
	rows := util.DecodeCSV(strings.TrimPrefix(body, util.UTF8BOM))
	tuples := make([]string, 0, len(rows))
	for _, row := range rows[1:] {
		if len(row) < 7 {
			t.Fatalf("export row too short: %v", row)
		}
		// 去掉小票 ID，导入后会重新生成
		tuples = append(tuples, strings.Join([]string{row[1], row[2], row[4], row[5], row[6]}, "|"))
	}
	sort.Strings(tuples)
	return tuples
}

// TestExportImport_RoundTrip 导出再导入应得到等价的数据集合
func TestExportImport_RoundTrip(t *testing.T) {
	db := newTestDB(t)

	csv := util.CSVHeader + "\n" +
		"r1,2026-01-10,expense,スーパー,食費,500,\"パン,牛乳\"\n" +
		"r1,2026-01-10,expense,,日用品,300,洗剤\n" +
		",2026-01-15,income,,給与,210000,\n"
	if w := doImport(db, csv); w.Code != http.StatusOK {
		t.Fatalf("first import failed: %d %s", w.Code, w.Body.String())
	}

	first := doExportCSV(db)
	if first.Code != http.StatusOK {
		t.Fatalf("export failed: %d", first.Code)
	}

	// 导入到一个全新的库，再导出比较
	db2 := newTestDB(t)
	if w := doImport(db2, strings.TrimPrefix(first.Body.String(), util.UTF8BOM)); w.Code != http.StatusOK {
		t.Fatalf("second import failed: %d %s", w.Code, w.Body.String())
	}
	second := doExportCSV(db2)
	if second.Code != http.StatusOK {
		t.Fatalf("second export failed: %d", second.Code)
	}

	got := exportTuples(t, second.Body.String())
	want := exportTuples(t, first.Body.String())
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip tuples = %v, want %v", got, want)
	}

	// 小票分组也要保持：r1 的两行仍在同一张小票下
	var receiptCount int64
	db2.Model(&models.Receipt{}).Count(&receiptCount)
	if receiptCount != 2 {
		t.Errorf("receipts after round trip = %d, want 2", receiptCount)
	}
}

// TestGroupImportRows_Order 分组保持首次出现的顺序
func TestGroupImportRows_Order(t *testing.T) {
	items := []importRow{
		{receiptKey: "a", date: "2026-01-01"},
		{receiptKey: "", date: "2026-01-02"},
		{receiptKey: "a", date: "2026-01-01"},
		{receiptKey: "b", date: "2026-01-03"},
	}

	groups := groupImportRows(items)
	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0].receiptKey != "a" {
		t.Errorf("group 0 = %v, want two rows of key a", groups[0])
	}
	if len(groups[1]) != 1 || groups[1][0].date != "2026-01-02" {
		t.Errorf("group 1 = %v, want keyless single row", groups[1])
	}
	if len(groups[2]) != 1 || groups[2][0].receiptKey != "b" {
		t.Errorf("group 2 = %v, want key b", groups[2])
	}
}
