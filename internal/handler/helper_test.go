package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clagon/kakeibo-antigrav/internal/database"
	"github.com/clagon/kakeibo-antigrav/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestDB 建一个内存数据库并执行迁移
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	// 内存库必须单连接，否则每个新连接都是一个空库
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// apiResp 是统一响应信封
type apiResp struct {
	Code    int                        `json:"code"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

func decodeResp(t *testing.T, w *httptest.ResponseRecorder) apiResp {
	t.Helper()
	var resp apiResp
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, w.Body.String())
	}
	return resp
}

// doImport 用原始请求体调用导入接口
func doImport(db *gorm.DB, text string) *httptest.ResponseRecorder {
	r := gin.New()
	h := NewImportExportHandler(db, "kakeibo_export")
	r.POST("/api/import", h.ImportCSV)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(text))
	r.ServeHTTP(w, req)
	return w
}

// doExportCSV 调用 CSV 导出接口
func doExportCSV(db *gorm.DB) *httptest.ResponseRecorder {
	r := gin.New()
	h := NewImportExportHandler(db, "kakeibo_export")
	r.GET("/api/export/csv", h.ExportCSV)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/export/csv", nil)
	r.ServeHTTP(w, req)
	return w
}

// doGet 对任意只读接口发 GET
func doGet(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

// doJSON 发送 JSON 请求体
func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// mustCount 统计某张表的行数
func mustCount(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return count
}

// mustCreateCategory 直接建一个分类供测试使用
func mustCreateCategory(t *testing.T, db *gorm.DB, name, kind string) models.Category {
	t.Helper()
	cat := models.Category{Name: name, Kind: kind, Icon: "circle", Color: "#94a3b8"}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return cat
}

// mustCreateReceipt 直接建一张小票和明细供测试使用
func mustCreateReceipt(t *testing.T, db *gorm.DB, date, kind, memo string, items []models.LineItem) models.Receipt {
	t.Helper()
	receipt := models.Receipt{Date: date, Kind: kind, Memo: memo}
	if err := db.Create(&receipt).Error; err != nil {
		t.Fatalf("create receipt: %v", err)
	}
	for i := range items {
		items[i].ReceiptID = receipt.ID
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("create line item: %v", err)
		}
	}
	return receipt
}
