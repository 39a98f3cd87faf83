package reports

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/swiftpdv/pdv-backend/internal/sales"
	"github.com/xuri/excelize/v2"
)

type stubLister struct {
	summaries []sales.SaleSummary
	err       error
}

func (s stubLister) ListSales(context.Context) ([]sales.SaleSummary, error) {
	return s.summaries, s.err
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	require.Equal(t, SalesSheet, f.GetSheetName(f.GetActiveSheetIndex()))
	rows, err := f.GetRows(SalesSheet)
	require.NoError(t, err)
	return rows
}

func TestExportSalesWritesRowsAndTotals(t *testing.T) {
	at := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	summaries := []sales.SaleSummary{
		{
			ID:        2,
			Total:     decimal.RequireFromString("21.5"),
			CreatedAt: at,
			User:      sales.UserSummary{ID: 1, Name: "Ana"},
			Customer:  &sales.CustomerSummary{ID: 9, Name: "Bruno", CPF: "52998224725"},
			Lines: []sales.LineSummary{
				{ProductID: 1, Quantity: 2},
				{ProductID: 3, Quantity: 1},
			},
		},
		{
			ID:        1,
			Total:     decimal.RequireFromString("10"),
			CreatedAt: at.Add(-time.Hour),
			User:      sales.UserSummary{ID: 1, Name: "Ana"},
			Lines:     []sales.LineSummary{{ProductID: 1, Quantity: 4}},
		},
	}

	exp, err := NewExporter(stubLister{summaries: summaries})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, exp.ExportSales(context.Background(), &buf))

	rows := readRows(t, buf.Bytes())
	require.Len(t, rows, 4)
	require.Equal(t, []string{"ID", "Date", "Operator", "Customer", "CPF", "Items", "Total"}, rows[0])
	require.Equal(t, []string{"2", "2026-03-04 10:30:00", "Ana", "Bruno", "52998224725", "3", "21.5"}, rows[1])
	require.Equal(t, []string{"1", "2026-03-04 09:30:00", "Ana", "", "", "4", "10"}, rows[2])
	require.Equal(t, []string{"Total", "", "", "", "", "7", "31.5"}, rows[3])
}

func TestExportSalesEmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSalesWorkbook(&buf, nil))

	rows := readRows(t, buf.Bytes())
	require.Len(t, rows, 2)
	require.Equal(t, []string{"Total", "", "", "", "", "0", "0"}, rows[1])
}

func TestExportSalesPropagatesListError(t *testing.T) {
	boom := errors.New("boom")
	exp, err := NewExporter(stubLister{err: boom})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.ErrorIs(t, exp.ExportSales(context.Background(), &buf), boom)
	require.Zero(t, buf.Len())
}

func TestFileNameUsesClock(t *testing.T) {
	exp, err := NewExporter(stubLister{})
	require.NoError(t, err)
	exp.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.Equal(t, "sales_20260102_030405.xlsx", exp.FileName())
}

func TestNewExporterRequiresLister(t *testing.T) {
	_, err := NewExporter(nil)
	require.Error(t, err)
}
