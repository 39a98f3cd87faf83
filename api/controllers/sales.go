package controllers

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/swiftpdv/pdv-backend/api/middleware"
	"github.com/swiftpdv/pdv-backend/api/responses"
	"github.com/swiftpdv/pdv-backend/api/validators"
	"github.com/swiftpdv/pdv-backend/internal/reports"
	"github.com/swiftpdv/pdv-backend/internal/sales"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

type createSaleRequest struct {
	CustomerID *uint             `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Lines      []saleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type saleLineRequest struct {
	ProductID uint `json:"product_id" validate:"required,gt=0"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

// SalesExporter renders the sale history as a downloadable workbook.
type SalesExporter interface {
	ExportSales(ctx context.Context, w io.Writer) error
	FileName() string
}

// SaleCreate rings up a sale for the authenticated operator.
func SaleCreate(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		if userID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := sales.CreateSaleInput{
			UserID:     userID,
			CustomerID: payload.CustomerID,
			Lines:      make([]sales.LineInput, 0, len(payload.Lines)),
		}
		for _, line := range payload.Lines {
			input.Lines = append(input.Lines, sales.LineInput{ProductID: line.ProductID, Quantity: line.Quantity})
		}

		sale, err := svc.CreateSale(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sales.NewReceipt(sale))
	}
}

func SaleList(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListSales(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func SaleListByUser(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListSalesByUser(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func SaleListByCustomer(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListSalesByCustomer(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SaleDelete reverses a sale and answers with its confirmation message.
func SaleDelete(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.DeleteSale(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SaleExport(exporter SalesExporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := exporter.ExportSales(r.Context(), &buf); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteFile(w, reports.ContentType, exporter.FileName(), buf.Bytes())
	}
}
