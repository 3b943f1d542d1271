package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deliciouskitchen/frontend/internal/models"
	"deliciouskitchen/frontend/internal/services"
)

// AnalyticsController - дашборд продаж (все расчеты на бэкенде)
type AnalyticsController struct {
	backend *services.BackendClient
}

// NewAnalyticsController создает контроллер аналитики
func NewAnalyticsController(backend *services.BackendClient) *AnalyticsController {
	return &AnalyticsController{backend: backend}
}

// GetSales возвращает аналитику и строки для графика/таблицы
// GET /api/v1/analytics/sales?from=&to=&groupBy=&product=
func (ac *AnalyticsController) GetSales(c *gin.Context) {
	filter, ok := bindSalesFilter(c)
	if !ok {
		return
	}

	analytics, err := ac.backend.GetSalesAnalytics(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "Ошибка получения аналитики", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analytics": analytics,
		"rows":      services.BuildChartRows(analytics.Series, analytics.Cancelled),
	})
}

// ExportSales выгружает аналитику в CSV или XLSX
// GET /api/v1/analytics/sales/export?format=csv|xlsx
func (ac *AnalyticsController) ExportSales(c *gin.Context) {
	filter, ok := bindSalesFilter(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный формат", "details": format})
		return
	}

	analytics, err := ac.backend.GetSalesAnalytics(c.Request.Context(), filter)
	if err != nil {
		respondError(c, "Ошибка получения аналитики", err)
		return
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "xlsx":
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = services.ExportSalesXLSX(&buf, analytics)
	default:
		contentType = "text/csv; charset=utf-8"
		err = services.ExportSalesCSV(&buf, services.BuildChartRows(analytics.Series, analytics.Cancelled))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка выгрузки", "details": err.Error()})
		return
	}

	filename := fmt.Sprintf("sales_%s.%s", time.Now().Format("2006-01-02"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func bindSalesFilter(c *gin.Context) (models.SalesAnalyticsFilter, bool) {
	var filter models.SalesAnalyticsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверные параметры запроса", "details": err.Error()})
		return filter, false
	}
	for _, d := range []string{filter.From, filter.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты (ожидается YYYY-MM-DD)", "details": d})
			return filter, false
		}
	}
	return filter, true
}
