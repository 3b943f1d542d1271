package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"deliciouskitchen/frontend/internal/models"
)

// salesExportHeader - колонки выгрузки по периодам
var salesExportHeader = []string{"period", "totalOrders", "totalCancelled", "totalRevenue", "lostRevenue", "avgPrepTime"}

// BuildChartRows объединяет ряд продаж с отменами по периоду
// Период без отмен получает нули, периоды только с отменами не добавляются
func BuildChartRows(series []models.SalesPoint, cancelled []models.CancelledPoint) []models.SalesChartRow {
	byPeriod := make(map[string]models.CancelledPoint, len(cancelled))
	for _, c := range cancelled {
		byPeriod[c.Period] = c
	}

	rows := make([]models.SalesChartRow, 0, len(series))
	for _, point := range series {
		c, ok := byPeriod[point.Period]
		if !ok {
			c = models.CancelledPoint{Period: point.Period, LostRevenue: decimal.Zero}
		}
		rows = append(rows, models.SalesChartRow{
			Period:         point.Period,
			TotalOrders:    point.TotalOrders,
			TotalCancelled: c.TotalCancelled,
			TotalRevenue:   point.TotalRevenue,
			LostRevenue:    c.LostRevenue,
			AvgPrepTime:    point.AvgPrepTime,
		})
	}
	return rows
}

// ExportSalesCSV пишет строки по периодам в CSV
func ExportSalesCSV(w io.Writer, rows []models.SalesChartRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(salesExportHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Period,
			strconv.Itoa(r.TotalOrders),
			strconv.Itoa(r.TotalCancelled),
			r.TotalRevenue.StringFixed(2),
			r.LostRevenue.StringFixed(2),
			strconv.FormatFloat(r.AvgPrepTime, 'f', 1, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", r.Period, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

const (
	summarySheet = "Summary"
	periodsSheet = "Periods"
)

// ExportSalesXLSX пишет книгу Excel: лист итогов и лист по периодам
func ExportSalesXLSX(w io.Writer, analytics *models.SalesAnalytics) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("ошибка создания листа итогов: %w", err)
	}

	s := analytics.Summary
	summary := [][]any{
		{"metric", "value"},
		{"totalOrders", s.TotalOrders},
		{"totalOrdersChange", decimalOrEmpty(s.TotalOrdersChange)},
		{"totalCancelled", s.TotalCancelled},
		{"totalRevenue", s.TotalRevenue.InexactFloat64()},
		{"totalRevenueChange", decimalOrEmpty(s.TotalRevenueChange)},
		{"lostRevenue", s.LostRevenue.InexactFloat64()},
	}
	for i, row := range summary {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("ошибка записи итогов: %w", err)
		}
	}

	if _, err := f.NewSheet(periodsSheet); err != nil {
		return fmt.Errorf("ошибка создания листа периодов: %w", err)
	}
	header := make([]any, len(salesExportHeader))
	for i, h := range salesExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(periodsSheet, "A1", &header); err != nil {
		return fmt.Errorf("ошибка записи заголовка: %w", err)
	}

	for i, r := range BuildChartRows(analytics.Series, analytics.Cancelled) {
		row := []any{
			r.Period,
			r.TotalOrders,
			r.TotalCancelled,
			r.TotalRevenue.InexactFloat64(),
			r.LostRevenue.InexactFloat64(),
			r.AvgPrepTime,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(periodsSheet, cell, &row); err != nil {
			return fmt.Errorf("ошибка записи периода %s: %w", r.Period, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("ошибка записи XLSX: %w", err)
	}
	return nil
}

func decimalOrEmpty(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}
