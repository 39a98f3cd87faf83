package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/swiftpdv/pdv-backend/api/responses"
	"github.com/swiftpdv/pdv-backend/api/validators"
	productsvc "github.com/swiftpdv/pdv-backend/internal/products"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
)

type createProductRequest struct {
	Barcode     string          `json:"barcode" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    string          `json:"category" validate:"required,max=100"`
	Unit        string          `json:"unit" validate:"required"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	CostPrice   decimal.Decimal `json:"cost_price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	MinStock    int             `json:"min_stock" validate:"gte=0"`
}

func (r createProductRequest) toInput() (productsvc.CreateProductInput, error) {
	unit, err := enums.ParseUnitOfMeasure(r.Unit)
	if err != nil {
		return productsvc.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
	}
	return productsvc.CreateProductInput{
		Barcode:     strings.TrimSpace(r.Barcode),
		Name:        strings.TrimSpace(r.Name),
		Description: r.Description,
		Category:    strings.TrimSpace(r.Category),
		Unit:        unit,
		SalePrice:   r.SalePrice,
		CostPrice:   r.CostPrice,
		Stock:       r.Stock,
		MinStock:    r.MinStock,
	}, nil
}

type updateProductRequest struct {
	Barcode     *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Name        *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Unit        *string          `json:"unit,omitempty"`
	SalePrice   *decimal.Decimal `json:"sale_price,omitempty"`
	CostPrice   *decimal.Decimal `json:"cost_price,omitempty"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	MinStock    *int             `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
}

func (r updateProductRequest) toInput() (productsvc.UpdateProductInput, error) {
	input := productsvc.UpdateProductInput{
		Barcode:     r.Barcode,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		SalePrice:   r.SalePrice,
		CostPrice:   r.CostPrice,
		Stock:       r.Stock,
		MinStock:    r.MinStock,
	}
	if r.Unit != nil {
		unit, err := enums.ParseUnitOfMeasure(*r.Unit)
		if err != nil {
			return productsvc.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
		}
		input.Unit = &unit
	}
	return input, nil
}

func ProductList(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListProducts(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// ProductLowStock lists products at or below their minimum level.
func ProductLowStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ListLowStock(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func ProductGet(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductGetByBarcode serves register lookups from a scanned code.
func ProductGetByBarcode(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barcode := validators.TextParam(r, "barcode", 64)
		if barcode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "barcode is required"))
			return
		}
		product, err := svc.GetProductByBarcode(r.Context(), barcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductCreate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func ProductUpdate(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ProductDelete(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeleteProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
