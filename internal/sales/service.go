package sales

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/internal/inventory"
	dbpkg "github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/metrics"
	"github.com/swiftpdv/pdv-backend/pkg/outbox"
)

const (
	stageValidate = "validate"
	stageCommit   = "commit"
)

// Service records sales against the catalog and reverses them.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error)
	DeleteSale(ctx context.Context, saleID uint) (*DeleteResult, error)
	ListSales(ctx context.Context) ([]SaleSummary, error)
	ListSalesByUser(ctx context.Context, userID uint) ([]SaleSummary, error)
	ListSalesByCustomer(ctx context.Context, customerID uint) ([]SaleSummary, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockApplier interface {
	Apply(ctx context.Context, tx *gorm.DB, adj inventory.Adjustment) (*models.InventoryMovement, error)
}

type fieldCipher interface {
	DecryptSafe(encoded string) string
}

// ServiceParams lists the collaborators of the sales service.
type ServiceParams struct {
	Repository Repository
	Inventory  stockApplier
	Tx         txRunner
	Outbox     outbox.Emitter
	Cipher     fieldCipher
	Metrics    *metrics.SaleMetrics
	Logger     *logger.Logger
}

type service struct {
	repo      Repository
	inventory stockApplier
	tx        txRunner
	outbox    outbox.Emitter
	cipher    fieldCipher
	metrics   *metrics.SaleMetrics
	logg      *logger.Logger
}

// NewService wires the sales service. Metrics are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Cipher == nil {
		return nil, fmt.Errorf("field cipher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repository,
		inventory: params.Inventory,
		tx:        params.Tx,
		outbox:    params.Outbox,
		cipher:    params.Cipher,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// pricedLine is a request line resolved against the catalog.
type pricedLine struct {
	product   *models.Product
	quantity  int
	unitPrice decimal.Decimal
	subtotal  decimal.Decimal
}

// CreateSale validates every line before writing anything, then persists the
// header, lines, stock decrements and OUT movements in one transaction.
func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*models.Sale, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindUser(ctx, input.UserID); err != nil {
		return nil, lookupError(err, "user", input.UserID)
	}
	if input.CustomerID != nil {
		if _, err := s.repo.FindCustomer(ctx, *input.CustomerID); err != nil {
			return nil, lookupError(err, "customer", *input.CustomerID)
		}
	}

	lines := make([]pricedLine, 0, len(input.Lines))
	requested := make(map[uint]int, len(input.Lines))
	total := decimal.Zero
	for _, req := range input.Lines {
		product, err := s.repo.FindProduct(ctx, req.ProductID)
		if err != nil {
			return nil, lookupError(err, "product", req.ProductID)
		}
		prior := requested[product.ID]
		if req.Quantity > product.Stock-prior {
			s.metrics.IncInsufficientStock(stageValidate)
			return nil, insufficientStock(product, product.Stock, saturatingAdd(prior, req.Quantity))
		}
		requested[product.ID] = prior + req.Quantity
		subtotal := product.SalePrice.Mul(decimal.NewFromInt(int64(req.Quantity)))
		total = total.Add(subtotal)
		lines = append(lines, pricedLine{
			product:   product,
			quantity:  req.Quantity,
			unitPrice: product.SalePrice,
			subtotal:  subtotal,
		})
	}

	sale := &models.Sale{
		UserID:     input.UserID,
		CustomerID: input.CustomerID,
		Total:      total,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateSale(ctx, sale); err != nil {
			return err
		}

		saleID := sale.ID
		created := make([]models.SaleLine, 0, len(lines))
		for _, line := range lines {
			row := models.SaleLine{
				SaleID:    saleID,
				ProductID: line.product.ID,
				Quantity:  line.quantity,
				UnitPrice: line.unitPrice,
				Subtotal:  line.subtotal,
			}
			if err := repo.CreateLine(ctx, &row); err != nil {
				return err
			}
			_, err := s.inventory.Apply(ctx, tx, inventory.Adjustment{
				ProductID: line.product.ID,
				Type:      enums.MovementOut,
				Quantity:  line.quantity,
				Note:      inventory.SaleNote(saleID),
				SaleID:    &saleID,
			})
			if errors.Is(err, inventory.ErrInsufficientStock) {
				// another sale took the stock after validation; the level
				// read earlier is stale so report nothing available
				s.metrics.IncInsufficientStock(stageCommit)
				return insufficientStock(line.product, 0, requested[line.product.ID])
			}
			if err != nil {
				return err
			}
			created = append(created, row)
		}
		sale.Lines = created

		return s.outbox.Emit(ctx, tx, outbox.Event{
			Type:        enums.EventSaleCreated,
			Aggregate:   enums.AggregateSale,
			AggregateID: saleID,
			ActorID:     input.UserID,
			Version:     outbox.SaleCreatedVersion,
			Data:        saleCreatedPayload(sale),
		})
	})
	if err != nil {
		return nil, transactionError(err, "create sale")
	}

	s.metrics.ObserveCreated(sale.Total)
	logCtx := s.logg.WithSaleID(ctx, sale.ID)
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"total": sale.Total.StringFixed(2),
		"lines": len(sale.Lines),
	})
	s.logg.Info(logCtx, "sale created")
	return sale, nil
}

// DeleteSale restores the stock taken by a sale, records IN movements and
// removes its lines and header together.
func (s *service) DeleteSale(ctx context.Context, saleID uint) (*DeleteResult, error) {
	if saleID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}

	sale, err := s.repo.FindSaleWithLines(ctx, saleID)
	if err != nil {
		return nil, lookupError(err, "sale", saleID)
	}

	ids := make([]uint, 0, len(sale.Lines))
	for _, line := range sale.Lines {
		ids = append(ids, line.ProductID)
	}
	existing, err := s.repo.ExistingProductIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale products")
	}
	for _, id := range ids {
		if !existing[id] {
			return nil, pkgerrors.NotFound("product", id)
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		id := sale.ID
		for _, line := range sale.Lines {
			_, err := s.inventory.Apply(ctx, tx, inventory.Adjustment{
				ProductID: line.ProductID,
				Type:      enums.MovementIn,
				Quantity:  line.Quantity,
				Note:      inventory.ReversalNote(id),
				SaleID:    &id,
			})
			if errors.Is(err, inventory.ErrProductMissing) {
				return pkgerrors.NotFound("product", line.ProductID)
			}
			if err != nil {
				return err
			}
		}

		repo := s.repo.WithTx(tx)
		if err := repo.DeleteLines(ctx, id); err != nil {
			return err
		}
		deleted, err := repo.DeleteSale(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return pkgerrors.NotFound("sale", id)
		}

		return s.outbox.Emit(ctx, tx, outbox.Event{
			Type:        enums.EventSaleDeleted,
			Aggregate:   enums.AggregateSale,
			AggregateID: id,
			Version:     outbox.SaleDeletedVersion,
			Data:        saleDeletedPayload(sale),
		})
	})
	if err != nil {
		return nil, transactionError(err, "delete sale")
	}

	s.metrics.IncDeleted()
	s.logg.Info(s.logg.WithSaleID(ctx, sale.ID), "sale deleted")
	return &DeleteResult{Message: fmt.Sprintf("Sale #%d deleted", sale.ID)}, nil
}

func (s *service) ListSales(ctx context.Context) ([]SaleSummary, error) {
	return s.list(ctx, ListFilter{})
}

func (s *service) ListSalesByUser(ctx context.Context, userID uint) ([]SaleSummary, error) {
	if userID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.list(ctx, ListFilter{UserID: &userID})
}

func (s *service) ListSalesByCustomer(ctx context.Context, customerID uint) ([]SaleSummary, error) {
	if customerID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.list(ctx, ListFilter{CustomerID: &customerID})
}

func (s *service) list(ctx context.Context, filter ListFilter) ([]SaleSummary, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	out := make([]SaleSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, newSaleSummary(row, s.cipher))
	}
	return out, nil
}

func validateCreateInput(input CreateSaleInput) error {
	if input.UserID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.CustomerID != nil && *input.CustomerID == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id must be positive")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one line")
	}
	for i, line := range input.Lines {
		if line.ProductID == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: product id is required", i+1))
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: quantity must be positive", i+1))
		}
	}
	return nil
}

// saturatingAdd sums two non-negative ints, clamping at math.MaxInt.
func saturatingAdd(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

func lookupError(err error, resource string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.NotFound(resource, id)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+resource)
}

func insufficientStock(product *models.Product, available, requested int) error {
	details := InsufficientStockDetails{
		ProductID: product.ID,
		Name:      product.Name,
		Available: available,
		Requested: requested,
	}
	return pkgerrors.New(pkgerrors.CodeInsufficient, fmt.Sprintf("insufficient stock for %s", product.Name)).
		WithDetails(details)
}

func transactionError(err error, op string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if field, ok := dbpkg.UniqueViolationField(err); ok {
		return pkgerrors.ConstraintViolation(err, field)
	}
	if field, ok := dbpkg.ForeignKeyViolationField(err); ok {
		return pkgerrors.ReferenceViolation(err, field)
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, op)
}

func saleCreatedPayload(sale *models.Sale) outbox.SaleCreatedEvent {
	return outbox.SaleCreatedEvent{
		SaleID:     sale.ID,
		UserID:     sale.UserID,
		CustomerID: sale.CustomerID,
		Total:      sale.Total,
		Lines:      linePayloads(sale.Lines),
	}
}

func saleDeletedPayload(sale *models.Sale) outbox.SaleDeletedEvent {
	return outbox.SaleDeletedEvent{
		SaleID:   sale.ID,
		Restored: linePayloads(sale.Lines),
	}
}

func linePayloads(lines []models.SaleLine) []outbox.SaleLinePayload {
	out := make([]outbox.SaleLinePayload, 0, len(lines))
	for _, line := range lines {
		out = append(out, outbox.SaleLinePayload{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  line.Subtotal,
		})
	}
	return out
}
