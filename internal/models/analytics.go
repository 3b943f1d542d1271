package models

import (
	"github.com/shopspring/decimal"
)

// SalesSummary - итоговые показатели за период (считаются на бэкенде)
type SalesSummary struct {
	TotalOrders        int              `json:"totalOrders"`
	TotalOrdersChange  *decimal.Decimal `json:"totalOrdersChange"`
	TotalCancelled     int              `json:"totalCancelled"`
	TotalRevenue       decimal.Decimal  `json:"totalRevenue"`
	TotalRevenueChange *decimal.Decimal `json:"totalRevenueChange"`
	LostRevenue        decimal.Decimal  `json:"lostRevenue"`
}

// SalesPoint - точка временного ряда продаж
type SalesPoint struct {
	Period       string          `json:"period"`
	TotalOrders  int             `json:"totalOrders"`
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	AvgPrepTime  float64         `json:"avgPrepTime,omitempty"` // Минуты
}

// CancelledPoint - отмены за период
type CancelledPoint struct {
	Period         string          `json:"period"`
	TotalCancelled int             `json:"totalCancelled"`
	LostRevenue    decimal.Decimal `json:"lostRevenue"`
}

// ProductSales - продажи по позиции меню
type ProductSales struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// SalesAnalytics - ответ эндпоинта аналитики продаж
type SalesAnalytics struct {
	Summary     SalesSummary     `json:"summary"`
	Series      []SalesPoint     `json:"series"`
	Cancelled   []CancelledPoint `json:"cancelledSeries"`
	TopProducts []ProductSales   `json:"topProducts,omitempty"`
}

// SalesChartRow - строка графика/экспорта: ряд продаж с отменами за тот же период
type SalesChartRow struct {
	Period         string          `json:"period"`
	TotalOrders    int             `json:"totalOrders"`
	TotalCancelled int             `json:"totalCancelled"`
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	LostRevenue    decimal.Decimal `json:"lostRevenue"`
	AvgPrepTime    float64         `json:"avgPrepTime,omitempty"`
}

// SalesAnalyticsFilter - параметры запроса аналитики
type SalesAnalyticsFilter struct {
	From    string `form:"from"`    // 2006-01-02
	To      string `form:"to"`      // 2006-01-02
	GroupBy string `form:"groupBy"` // day / week / month
	Product string `form:"product"`
}
