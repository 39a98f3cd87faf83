package sales

import (
	"context"
	"errors"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/swiftpdv/pdv-backend/internal/inventory"
	"github.com/swiftpdv/pdv-backend/pkg/config"
	"github.com/swiftpdv/pdv-backend/pkg/db"
	"github.com/swiftpdv/pdv-backend/pkg/db/models"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
	pkgerrors "github.com/swiftpdv/pdv-backend/pkg/errors"
	"github.com/swiftpdv/pdv-backend/pkg/logger"
	"github.com/swiftpdv/pdv-backend/pkg/metrics"
	"github.com/swiftpdv/pdv-backend/pkg/outbox"
	"github.com/swiftpdv/pdv-backend/pkg/security"
)

type harness struct {
	conn   *gorm.DB
	svc    Service
	cipher *security.FieldCipher
	reg    *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithTx(t, nil)
}

// newHarnessWithTx lets a test wrap the transaction runner.
func newHarnessWithTx(t *testing.T, wrap func(txRunner) txRunner) *harness {
	t.Helper()
	dsn := "file:sales_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	client := db.NewFromGorm(conn)
	require.NoError(t, client.AutoMigrate(context.Background()))

	cipher, err := security.NewFieldCipher(config.CryptoConfig{
		AESKey: "00112233445566778899aabbccddeeff",
		AESIV:  "ffeeddccbbaa99887766554433221100",
	})
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "sales-test", Output: io.Discard})
	inv, err := inventory.NewService(inventory.NewRepository(conn))
	require.NoError(t, err)

	var runner txRunner = client
	if wrap != nil {
		runner = wrap(client)
	}
	reg := prometheus.NewRegistry()
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Inventory:  inv,
		Tx:         runner,
		Outbox:     outbox.NewWriter(outbox.NewRepository(conn), logg),
		Cipher:     cipher,
		Metrics:    metrics.NewSaleMetrics(reg),
		Logger:     logg,
	})
	require.NoError(t, err)

	return &harness{conn: conn, svc: svc, cipher: cipher, reg: reg}
}

func (h *harness) user(t *testing.T, name, surname string) *models.User {
	t.Helper()
	enc := h.cipher.Encrypt(surname)
	u := &models.User{
		Name:         h.cipher.Encrypt(name),
		Surname:      &enc,
		Username:     h.cipher.Encrypt(uuid.NewString()),
		PasswordHash: "hash",
		Role:         "Caixa",
		AccessLevel:  enums.AccessLevelOperator,
		IsActive:     true,
	}
	require.NoError(t, h.conn.Create(u).Error)
	return u
}

func (h *harness) customer(t *testing.T, name, surname, cpf string) *models.Customer {
	t.Helper()
	c := &models.Customer{
		Name:    h.cipher.Encrypt(name),
		Surname: h.cipher.Encrypt(surname),
		CPF:     h.cipher.Encrypt(cpf),
	}
	require.NoError(t, h.conn.Create(c).Error)
	return c
}

func (h *harness) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Barcode:   uuid.NewString(),
		Name:      name,
		Category:  "Grãos",
		Unit:      enums.UnitKilogram,
		SalePrice: decimal.RequireFromString(price),
		CostPrice: decimal.RequireFromString("1.00"),
		Stock:     stock,
	}
	require.NoError(t, h.conn.Create(p).Error)
	return p
}

func (h *harness) stock(t *testing.T, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, h.conn.First(&p, id).Error)
	return p.Stock
}

func (h *harness) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := h.conn.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (h *harness) movements(t *testing.T, saleID uint) []models.InventoryMovement {
	t.Helper()
	var rows []models.InventoryMovement
	require.NoError(t, h.conn.Where("sale_id = ?", saleID).Order("id ASC").Find(&rows).Error)
	return rows
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error: %v", err)
	return typed
}

func TestCreateSaleDecrementsStockAndRecordsMovement(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "Ana", "Souza")
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)

	sale, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: user.ID,
		Lines:  []LineInput{{ProductID: a.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	require.NotZero(t, sale.ID)
	require.False(t, sale.CreatedAt.IsZero())
	require.True(t, sale.Total.Equal(decimal.RequireFromString("15.00")), "total %s", sale.Total)
	require.Len(t, sale.Lines, 1)
	require.True(t, sale.Lines[0].UnitPrice.Equal(decimal.RequireFromString("5")))

	require.Equal(t, 7, h.stock(t, a.ID))
	moves := h.movements(t, sale.ID)
	require.Len(t, moves, 1)
	require.Equal(t, enums.MovementOut, moves[0].Type)
	require.Equal(t, 3, moves[0].Quantity)
	require.Equal(t, "Sale #1", moves[0].Note)

	require.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventSaleCreated))
	require.Equal(t, float64(1), counterValue(t, h.reg, "pdv_sales_created_total"))
}

func TestCreateSaleRejectsInsufficientStockWithoutWrites(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "Ana", "Souza")
	b := h.product(t, "Feijão Carioca", "7.00", 2)

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: user.ID,
		Lines:  []LineInput{{ProductID: b.ID, Quantity: 5}},
	})
	typed := requireCode(t, err, pkgerrors.CodeInsufficient)
	details, ok := typed.Details().(InsufficientStockDetails)
	require.True(t, ok)
	require.Equal(t, b.ID, details.ProductID)
	require.Equal(t, "Feijão Carioca", details.Name)
	require.Equal(t, 2, details.Available)
	require.Equal(t, 5, details.Requested)
	require.Contains(t, typed.Message(), "Feijão Carioca")

	require.Equal(t, 2, h.stock(t, b.ID))
	require.Zero(t, h.count(t, &models.Sale{}, ""))
	require.Zero(t, h.count(t, &models.InventoryMovement{}, ""))
	require.Zero(t, h.count(t, &models.OutboxEvent{}, ""))
}

func TestDeleteSaleRestoresStock(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "Ana", "Souza")
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)

	sale, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: user.ID,
		Lines:  []LineInput{{ProductID: a.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	res, err := h.svc.DeleteSale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Equal(t, "Sale #1 deleted", res.Message)
	require.Equal(t, float64(1), counterValue(t, h.reg, "pdv_sales_deleted_total"))

	require.Equal(t, 10, h.stock(t, a.ID))
	moves := h.movements(t, sale.ID)
	require.Len(t, moves, 2)
	require.Equal(t, enums.MovementIn, moves[1].Type)
	require.Equal(t, 3, moves[1].Quantity)
	require.Equal(t, "Reversal of sale #1", moves[1].Note)

	require.Zero(t, h.count(t, &models.Sale{}, ""))
	require.Zero(t, h.count(t, &models.SaleLine{}, ""))
	require.EqualValues(t, 1, h.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventSaleDeleted))
}

func TestCreateSaleUnknownUserWritesNothing(t *testing.T) {
	h := newHarness(t)
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: 999,
		Lines:  []LineInput{{ProductID: a.ID, Quantity: 1}},
	})
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	require.Equal(t, "user not found", typed.Message())
	require.Equal(t, 10, h.stock(t, a.ID))
	require.Zero(t, h.count(t, &models.Sale{}, ""))
}

func TestCreateSaleUnknownCustomer(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "Ana", "Souza")
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)
	missing := uint(42)

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID:     user.ID,
		CustomerID: &missing,
		Lines:      []LineInput{{ProductID: a.ID, Quantity: 1}},
	})
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	require.Equal(t, "customer not found", typed.Message())
}

func TestCreateSaleChecksCumulativeQuantityPerProduct(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "Ana", "Souza")
	customer := h.customer(t, "Bruno", "Lima", "52998224725")
	a := h.product(t, "Arroz Tipo 1", "5.00", 2)

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID:     user.ID,
		CustomerID: &customer.ID,
		Lines:      []LineInput{{ProductID: a.ID, Quantity: 1}, {ProductID: a.ID, Quantity: 2}},
	})
	typed := requireCode(t, err, pkgerrors.CodeInsufficient)
	details := typed.Details().(InsufficientStockDetails)
	require.Equal(t, 3, details.Requested)
	require.Equal(t, 2, h.stock(t, a.ID))

	require.NoError(t, h.conn.Model(&models.Product{}).Where("id = ?", a.ID).Update("stock", 10).Error)
	sale, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID:     user.ID,
		CustomerID: &customer.ID,
		Lines:      []LineInput{{ProductID: a.ID, Quantity: 1}, {ProductID: a.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, sale.Lines, 2)
	require.True(t, sale.Total.Equal(decimal.RequireFromString("15")))
	require.Equal(t, 7, h.stock(t, a.ID))
	require.Len(t, h.movements(t, sale.ID), 2)
}

type countingRunner struct {
	inner txRunner
	calls *int
}

func (c countingRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	*c.calls++
	return c.inner.WithTx(ctx, fn)
}

func TestCreateSaleRejectsOverflowingQuantityBeforeWriting(t *testing.T) {
	txCalls := 0
	h := newHarnessWithTx(t, func(inner txRunner) txRunner {
		return countingRunner{inner: inner, calls: &txCalls}
	})
	user := h.user(t, "Ana", "Souza")
	a := h.product(t, "Arroz", "5.00", 10)

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: user.ID,
		Lines:  []LineInput{{ProductID: a.ID, Quantity: 1}, {ProductID: a.ID, Quantity: math.MaxInt}},
	})
	typed := requireCode(t, err, pkgerrors.CodeInsufficient)
	details := typed.Details().(InsufficientStockDetails)
	require.Equal(t, 10, details.Available)
	require.Equal(t, math.MaxInt, details.Requested)

	require.Zero(t, txCalls)
	require.Equal(t, 10, h.stock(t, a.ID))
	expected := `
# HELP pdv_sale_insufficient_stock_total Sales rejected because a product lacked stock.
# TYPE pdv_sale_insufficient_stock_total counter
pdv_sale_insufficient_stock_total{stage="validate"} 1
`
	require.NoError(t, testutil.GatherAndCompare(h.reg, strings.NewReader(expected), "pdv_sale_insufficient_stock_total"))
}

func TestCreateSaleFailsFastOnFirstBadLine(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "Ana", "Souza")
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)
	b := h.product(t, "Feijão Carioca", "7.00", 1)

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: user.ID,
		Lines: []LineInput{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: 777, Quantity: 1},
			{ProductID: b.ID, Quantity: 5},
		},
	})
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	require.Equal(t, "product not found", typed.Message())
	require.Equal(t, 10, h.stock(t, a.ID))
	require.Equal(t, 1, h.stock(t, b.ID))
	require.Zero(t, h.count(t, &models.Sale{}, ""))
	require.Zero(t, h.count(t, &models.SaleLine{}, ""))
	require.Zero(t, h.count(t, &models.InventoryMovement{}, ""))
}

// stockThief drops a product's stock inside the transaction, the way a
// concurrent sale would between validation and commit.
type stockThief struct {
	inner     txRunner
	productID *uint
}

func (s stockThief) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.inner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.Product{}).Where("id = ?", *s.productID).Update("stock", 1).Error; err != nil {
			return err
		}
		return fn(tx)
	})
}

func TestCreateSaleGuardedDecrementRollsBack(t *testing.T) {
	var productID uint
	h := newHarnessWithTx(t, func(inner txRunner) txRunner {
		return stockThief{inner: inner, productID: &productID}
	})
	user := h.user(t, "Ana", "Souza")
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)
	b := h.product(t, "Café Torrado", "20.00", 10)
	productID = b.ID

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: user.ID,
		Lines:  []LineInput{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 4}},
	})
	typed := requireCode(t, err, pkgerrors.CodeInsufficient)
	require.Equal(t, b.ID, typed.Details().(InsufficientStockDetails).ProductID)

	require.Equal(t, 10, h.stock(t, a.ID))
	require.Equal(t, 10, h.stock(t, b.ID))
	require.Zero(t, h.count(t, &models.Sale{}, ""))
	require.Zero(t, h.count(t, &models.SaleLine{}, ""))
	require.Zero(t, h.count(t, &models.InventoryMovement{}, ""))
	require.Zero(t, h.count(t, &models.OutboxEvent{}, ""))

	expected := `
# HELP pdv_sale_insufficient_stock_total Sales rejected because a product lacked stock.
# TYPE pdv_sale_insufficient_stock_total counter
pdv_sale_insufficient_stock_total{stage="commit"} 1
`
	require.NoError(t, testutil.GatherAndCompare(h.reg, strings.NewReader(expected), "pdv_sale_insufficient_stock_total"))
}

func TestCreateSaleValidatesInput(t *testing.T) {
	h := newHarness(t)
	zero := uint(0)
	cases := map[string]CreateSaleInput{
		"missing user":      {Lines: []LineInput{{ProductID: 1, Quantity: 1}}},
		"zero customer":     {UserID: 1, CustomerID: &zero, Lines: []LineInput{{ProductID: 1, Quantity: 1}}},
		"no lines":          {UserID: 1},
		"zero product":      {UserID: 1, Lines: []LineInput{{Quantity: 1}}},
		"zero quantity":     {UserID: 1, Lines: []LineInput{{ProductID: 1}}},
		"negative quantity": {UserID: 1, Lines: []LineInput{{ProductID: 1, Quantity: -2}}},
	}
	for name, input := range cases {
		_, err := h.svc.CreateSale(context.Background(), input)
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "%s: got %v", name, err)
	}
}

func TestDeleteSaleNotFound(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.DeleteSale(context.Background(), 55)
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	require.Equal(t, "sale not found", typed.Message())

	_, err = h.svc.DeleteSale(context.Background(), 0)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDeleteSaleWithRemovedProductWritesNothing(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "Ana", "Souza")
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)
	b := h.product(t, "Bacon", "25.00", 10)

	sale, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: user.ID,
		Lines:  []LineInput{{ProductID: a.ID, Quantity: 1}, {ProductID: b.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.NoError(t, h.conn.Delete(&models.Product{}, b.ID).Error)

	_, err = h.svc.DeleteSale(context.Background(), sale.ID)
	typed := requireCode(t, err, pkgerrors.CodeNotFound)
	require.Equal(t, "product not found", typed.Message())

	require.Equal(t, 9, h.stock(t, a.ID))
	require.EqualValues(t, 1, h.count(t, &models.Sale{}, ""))
	require.EqualValues(t, 2, h.count(t, &models.SaleLine{}, ""))
	require.Len(t, h.movements(t, sale.ID), 2)
}

func TestCreateThenDeleteIsSymmetric(t *testing.T) {
	h := newHarness(t)
	user := h.user(t, "Ana", "Souza")
	products := []*models.Product{
		h.product(t, "Arroz Tipo 1", "5.50", 200),
		h.product(t, "Feijão Carioca", "7.00", 150),
		h.product(t, "Café Torrado", "20.00", 100),
	}
	before := map[uint]int{}
	for _, p := range products {
		before[p.ID] = p.Stock
	}

	lines := []LineInput{
		{ProductID: products[0].ID, Quantity: 4},
		{ProductID: products[1].ID, Quantity: 1},
		{ProductID: products[2].ID, Quantity: 3},
		{ProductID: products[0].ID, Quantity: 2},
	}
	sale, err := h.svc.CreateSale(context.Background(), CreateSaleInput{UserID: user.ID, Lines: lines})
	require.NoError(t, err)

	want := decimal.RequireFromString("5.50").Mul(decimal.NewFromInt(6)).
		Add(decimal.RequireFromString("7.00")).
		Add(decimal.RequireFromString("60.00"))
	require.True(t, sale.Total.Equal(want), "total %s want %s", sale.Total, want)

	sum := decimal.Zero
	for _, line := range sale.Lines {
		sum = sum.Add(line.Subtotal)
	}
	require.True(t, sum.Equal(sale.Total))
	require.Len(t, h.movements(t, sale.ID), len(lines))

	_, err = h.svc.DeleteSale(context.Background(), sale.ID)
	require.NoError(t, err)
	for id, stock := range before {
		require.Equal(t, stock, h.stock(t, id))
	}

	moves := h.movements(t, sale.ID)
	require.Len(t, moves, 2*len(lines))
	var in, out int
	for _, m := range moves {
		switch m.Type {
		case enums.MovementIn:
			in++
		case enums.MovementOut:
			out++
		}
	}
	require.Equal(t, len(lines), in)
	require.Equal(t, len(lines), out)
}

func TestListSalesProjection(t *testing.T) {
	h := newHarness(t)
	ana := h.user(t, "Ana", "Souza")
	caio := h.user(t, "Caio", "Alves")
	customer := h.customer(t, "Bruno", "Lima", "52998224725")
	a := h.product(t, "Arroz Tipo 1", "5.00", 50)
	b := h.product(t, "Queijo Mussarela", "25.00", 50)

	first, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: ana.ID,
		Lines:  []LineInput{{ProductID: a.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	second, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID:     caio.ID,
		CustomerID: &customer.ID,
		Lines:      []LineInput{{ProductID: b.ID, Quantity: 1}, {ProductID: a.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	// later price changes must not leak into history
	require.NoError(t, h.conn.Model(&models.Product{}).Where("id = ?", a.ID).Update("sale_price", decimal.RequireFromString("9.99")).Error)

	all, err := h.svc.ListSales(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, second.ID, all[0].ID)
	require.Equal(t, first.ID, all[1].ID)

	latest := all[0]
	require.Equal(t, "Caio Alves", latest.User.Name)
	require.NotNil(t, latest.Customer)
	require.Equal(t, "Bruno Lima", latest.Customer.Name)
	require.Equal(t, "52998224725", latest.Customer.CPF)
	require.Len(t, latest.Lines, 2)
	require.Equal(t, "Queijo Mussarela", latest.Lines[0].ProductName)
	require.Equal(t, "Arroz Tipo 1", latest.Lines[1].ProductName)
	require.True(t, latest.Lines[1].UnitPrice.Equal(decimal.RequireFromString("5.00")))
	require.Nil(t, all[1].Customer)

	byUser, err := h.svc.ListSalesByUser(context.Background(), ana.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	require.Equal(t, first.ID, byUser[0].ID)

	byCustomer, err := h.svc.ListSalesByCustomer(context.Background(), customer.ID)
	require.NoError(t, err)
	require.Len(t, byCustomer, 1)
	require.Equal(t, second.ID, byCustomer[0].ID)

	none, err := h.svc.ListSalesByCustomer(context.Background(), 9999)
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = h.svc.ListSalesByUser(context.Background(), 0)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestTransactionErrorMapping(t *testing.T) {
	typed := pkgerrors.NotFound("sale", 1)
	require.Same(t, typed, pkgerrors.As(transactionError(typed, "op")))

	err := transactionError(errors.New("database is closed"), "create sale")
	typedErr := requireCode(t, err, pkgerrors.CodeTransaction)
	require.Equal(t, "create sale", typedErr.Message())

	unique := transactionError(errors.New("UNIQUE constraint failed: products.barcode"), "create sale")
	conflict := requireCode(t, unique, pkgerrors.CodeConflict)
	require.Equal(t, "barcode already in use", conflict.Message())

	missing := transactionError(errors.New("FOREIGN KEY constraint failed"), "create sale")
	requireCode(t, missing, pkgerrors.CodeStateConflict)
}

func TestCreateSaleReportsVanishedReference(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", Detail: `Key (customer_id)=(5) is not present in table "customers".`}
	h := newHarnessWithTx(t, func(txRunner) txRunner {
		return failingRunner{err: fk}
	})
	user := h.user(t, "Ana", "Souza")
	customer := h.customer(t, "Bruno", "Lima", "52998224725")
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID:     user.ID,
		CustomerID: &customer.ID,
		Lines:      []LineInput{{ProductID: a.ID, Quantity: 1}},
	})
	typed := requireCode(t, err, pkgerrors.CodeStateConflict)
	require.Equal(t, map[string]any{"field": "customer_id"}, typed.Details())
	require.ErrorIs(t, err, fk)
	require.Equal(t, 10, h.stock(t, a.ID))
}

type failingRunner struct{ err error }

func (f failingRunner) WithTx(context.Context, func(tx *gorm.DB) error) error { return f.err }

func TestCreateSaleSurfacesTransactionFailure(t *testing.T) {
	h := newHarnessWithTx(t, func(txRunner) txRunner {
		return failingRunner{err: errors.New("commit failed")}
	})
	user := h.user(t, "Ana", "Souza")
	a := h.product(t, "Arroz Tipo 1", "5.00", 10)

	_, err := h.svc.CreateSale(context.Background(), CreateSaleInput{
		UserID: user.ID,
		Lines:  []LineInput{{ProductID: a.ID, Quantity: 1}},
	})
	requireCode(t, err, pkgerrors.CodeTransaction)
	require.Equal(t, 10, h.stock(t, a.ID))
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Repository: NewRepository(nil)})
	require.Error(t, err)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}
