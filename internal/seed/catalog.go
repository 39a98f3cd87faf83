package seed

import (
	"github.com/shopspring/decimal"

	product "github.com/swiftpdv/pdv-backend/internal/products"
	"github.com/swiftpdv/pdv-backend/pkg/enums"
)

type catalogEntry struct {
	barcode     string
	name        string
	description string
	category    string
	unit        enums.UnitOfMeasure
	salePrice   string
	costPrice   string
	stock       int
	minStock    int
}

var defaultCatalog = []catalogEntry{
	{"7891000000001", "Arroz Tipo 1", "Arroz branco tipo 1", "Grãos", enums.UnitKilogram, "5.50", "3.00", 200, 50},
	{"7891000000002", "Feijão Carioca", "Feijão carioca tipo 1", "Grãos", enums.UnitKilogram, "7.00", "4.50", 150, 40},
	{"7891000000003", "Café Torrado", "Café torrado e moído", "Bebidas", enums.UnitKilogram, "20.00", "12.00", 100, 30},
	{"7891000000004", "Óleo de Soja", "Óleo de soja refinado", "Óleos e Gorduras", enums.UnitLiter, "6.00", "3.50", 80, 20},
	{"7891000000005", "Açúcar Cristal", "Açúcar cristal refinado", "Doces", enums.UnitKilogram, "4.50", "2.50", 120, 30},
	{"7891000000006", "Sal Refinado", "Sal refinado iodado", "Temperos", enums.UnitKilogram, "2.00", "1.00", 150, 40},
	{"7891000000007", "Macarrão Espaguete", "Macarrão tipo espaguete", "Massas", enums.UnitKilogram, "3.00", "1.80", 200, 50},
	{"7891000000008", "Molho de Tomate", "Molho de tomate pronto", "Condimentos", enums.UnitLiter, "5.00", "3.00", 100, 30},
	{"7891000000009", "Farinha de Trigo", "Farinha de trigo refinada", "Farinha", enums.UnitKilogram, "3.50", "2.00", 150, 40},
	{"7891000000010", "Leite Longa Vida", "Leite UHT", "Laticínios", enums.UnitLiter, "4.00", "2.50", 120, 30},
	{"7891000000011", "Queijo Mussarela", "Queijo mussarela fatiado", "Laticínios", enums.UnitKilogram, "25.00", "15.00", 80, 20},
	{"7891000000012", "Presunto", "Presunto fatiado", "Carnes Frias", enums.UnitKilogram, "20.00", "12.00", 100, 30},
	{"7891000000013", "Salsicha", "Salsicha tipo hot dog", "Carnes", enums.UnitKilogram, "8.00", "5.00", 150, 40},
	{"7891000000014", "Presunto de Peru", "Presunto de peru fatiado", "Carnes Frias", enums.UnitKilogram, "22.00", "13.00", 90, 25},
	{"7891000000015", "Peito de Frango", "Peito de frango congelado", "Carnes", enums.UnitKilogram, "15.00", "10.00", 200, 50},
	{"7891000000016", "Linguiça Toscana", "Linguiça toscana suína", "Carnes", enums.UnitKilogram, "18.00", "12.00", 80, 20},
	{"7891000000017", "Bacon", "Bacon defumado", "Carnes", enums.UnitKilogram, "25.00", "18.00", 60, 15},
	{"7891000000018", "Peixe Congelado", "Peixe congelado (ex: tilápia)", "Peixes", enums.UnitKilogram, "30.00", "20.00", 70, 20},
	{"7891000000019", "Camarão Congelado", "Camarão congelado", "Frutos do Mar", enums.UnitKilogram, "50.00", "35.00", 50, 15},
}

func (e catalogEntry) input() product.CreateProductInput {
	description := e.description
	return product.CreateProductInput{
		Barcode:     e.barcode,
		Name:        e.name,
		Description: &description,
		Category:    e.category,
		Unit:        e.unit,
		SalePrice:   decimal.RequireFromString(e.salePrice),
		CostPrice:   decimal.RequireFromString(e.costPrice),
		Stock:       e.stock,
		MinStock:    e.minStock,
	}
}

func catalogBarcodes() []string {
	out := make([]string, 0, len(defaultCatalog))
	for _, e := range defaultCatalog {
		out = append(out, e.barcode)
	}
	return out
}
