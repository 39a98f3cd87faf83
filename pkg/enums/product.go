package enums

import (
	"fmt"
	"strings"
)

// UnitOfMeasure is the selling unit of a catalog product.
type UnitOfMeasure string

const (
	UnitEach       UnitOfMeasure = "UN"
	UnitKilogram   UnitOfMeasure = "KG"
	UnitGram       UnitOfMeasure = "G"
	UnitLiter      UnitOfMeasure = "L"
	UnitMilliliter UnitOfMeasure = "ML"
	UnitBox        UnitOfMeasure = "CX"
	UnitPack       UnitOfMeasure = "PCT"
)

var validUnits = []UnitOfMeasure{
	UnitEach,
	UnitKilogram,
	UnitGram,
	UnitLiter,
	UnitMilliliter,
	UnitBox,
	UnitPack,
}

// String implements fmt.Stringer.
func (u UnitOfMeasure) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UnitOfMeasure.
func (u UnitOfMeasure) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnitOfMeasure converts raw input into a UnitOfMeasure. Matching ignores case.
func ParseUnitOfMeasure(value string) (UnitOfMeasure, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validUnits {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit of measure %q", value)
}
