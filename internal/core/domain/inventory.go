package domain

import (
	"errors"
	"strings"
)

type Product string

const (
	ProductGold    Product = "Gold"
	ProductSilver  Product = "Silver"
	ProductUnknown Product = "Unknown"
)

// DefaultUnit is used when a sheet does not declare its unit.
const DefaultUnit = "Troy Ounces"

// InventoryRecord is one depository's holdings of one product on one activity date.
type InventoryRecord struct {
	ActivityDate Date     `json:"activity_date"`
	Product      Product  `json:"product"`
	Depository   string   `json:"depository"`
	Registered   *float64 `json:"registered"`
	Eligible     *float64 `json:"eligible"`
	Total        *float64 `json:"total"`
	Unit         string   `json:"unit"`
	ReportDate   Date     `json:"report_date"`
}

// InventoryKey is the identity under which inventory rows are upserted.
type InventoryKey struct {
	ActivityDate Date
	Product      Product
	Depository   string
}

func (r InventoryRecord) Key() InventoryKey {
	return InventoryKey{ActivityDate: r.ActivityDate, Product: r.Product, Depository: r.Depository}
}

func (r InventoryRecord) Validate() error {
	if r.ActivityDate.IsZero() {
		return WrapError(ErrInvalidInput, "validate inventory record", errors.New("activity date is required"))
	}
	if strings.TrimSpace(r.Depository) == "" {
		return WrapError(ErrInvalidInput, "validate inventory record", errors.New("depository is required"))
	}
	if r.Product == "" {
		return WrapError(ErrInvalidInput, "validate inventory record", errors.New("product is required"))
	}
	return nil
}

// InventoryFilter narrows inventory queries. Zero fields are ignored.
type InventoryFilter struct {
	Product Product
	From    Date
	To      Date
	Limit   int
}
