package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/swiftpdv/pdv-backend/internal/sales"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	SalesSheet  = "Sales"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	dateLayout  = "2006-01-02 15:04:05"
)

var salesHeader = []any{"ID", "Date", "Operator", "Customer", "CPF", "Items", "Total"}

type salesLister interface {
	ListSales(ctx context.Context) ([]sales.SaleSummary, error)
}

// Exporter renders the sales history as a spreadsheet.
type Exporter struct {
	sales salesLister
	now   func() time.Time
}

func NewExporter(lister salesLister) (*Exporter, error) {
	if lister == nil {
		return nil, fmt.Errorf("sales lister required")
	}
	return &Exporter{sales: lister, now: time.Now}, nil
}

// FileName is the attachment name offered to browsers.
func (e *Exporter) FileName() string {
	return fmt.Sprintf("sales_%s.xlsx", e.now().UTC().Format("20060102_150405"))
}

func (e *Exporter) ExportSales(ctx context.Context, w io.Writer) error {
	summaries, err := e.sales.ListSales(ctx)
	if err != nil {
		return err
	}
	return WriteSalesWorkbook(w, summaries)
}

// WriteSalesWorkbook writes one row per sale followed by a totals row.
func WriteSalesWorkbook(w io.Writer, summaries []sales.SaleSummary) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SalesSheet); err != nil {
		return workbookError(err, "rename sheet")
	}

	header := salesHeader
	if err := f.SetSheetRow(SalesSheet, "A1", &header); err != nil {
		return workbookError(err, "write header")
	}

	row := 2
	items := 0
	total := decimal.Zero
	for _, s := range summaries {
		count := itemCount(s.Lines)
		customer, cpf := "", ""
		if s.Customer != nil {
			customer = s.Customer.Name
			cpf = s.Customer.CPF
		}
		values := []any{
			s.ID,
			s.CreatedAt.UTC().Format(dateLayout),
			s.User.Name,
			customer,
			cpf,
			count,
			s.Total.InexactFloat64(),
		}
		if err := setRow(f, row, values); err != nil {
			return err
		}
		items += count
		total = total.Add(s.Total)
		row++
	}

	totals := []any{"Total", "", "", "", "", items, total.InexactFloat64()}
	if err := setRow(f, row, totals); err != nil {
		return err
	}

	if err := f.SetColWidth(SalesSheet, "B", "D", 22); err != nil {
		return workbookError(err, "size columns")
	}
	if err := f.Write(w); err != nil {
		return workbookError(err, "write workbook")
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return workbookError(err, "resolve cell")
	}
	if err := f.SetSheetRow(SalesSheet, cell, &values); err != nil {
		return workbookError(err, "write row")
	}
	return nil
}

func itemCount(lines []sales.LineSummary) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

func workbookError(err error, step string) error {
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sales export: "+step)
}
