package router

import (
	"github.com/clagon/kakeibo-antigrav/internal/config"
	"github.com/clagon/kakeibo-antigrav/internal/handler"
	"github.com/clagon/kakeibo-antigrav/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter configures Gin engine and API routes.
func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// ====== API ======
	api := r.Group("/api")
	api.Use(middleware.AuditMiddleware(db))

	categoryHandler := handler.NewCategoryHandler(db)
	api.GET("/categories", categoryHandler.ListCategories)
	api.POST("/categories", categoryHandler.CreateCategory)
	api.PATCH("/categories/:id", categoryHandler.UpdateCategory)
	api.DELETE("/categories/:id", categoryHandler.DeleteCategory)

	receiptHandler := handler.NewReceiptHandler(db)
	api.POST("/receipts", receiptHandler.CreateReceipt)
	api.GET("/receipts/month", receiptHandler.ListMonthReceipts)
	api.GET("/receipts/:id", receiptHandler.GetReceipt)
	api.PUT("/receipts/:id", receiptHandler.UpdateReceipt)
	api.DELETE("/receipts/:id", receiptHandler.DeleteReceipt)

	reportHandler := handler.NewReportHandler(db)
	api.GET("/report", reportHandler.GetReport)
	api.GET("/report/category", reportHandler.GetCategoryReport)

	importExportHandler := handler.NewImportExportHandler(db, cfg.App.ExportFilePrefix)
	api.POST("/import", importExportHandler.ImportCSV)
	api.GET("/export/csv", importExportHandler.ExportCSV)
	api.GET("/export/xlsx", importExportHandler.ExportXLSX)

	searchHandler := handler.NewSearchHandler(db)
	api.GET("/search", searchHandler.Search)

	settingHandler := handler.NewSettingHandler(db)
	api.GET("/settings", settingHandler.GetSettings)
	api.PATCH("/settings", settingHandler.UpdateSettings)

	return r
}
