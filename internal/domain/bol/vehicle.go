package bol

import (
	"fmt"
	"unicode/utf8"

	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Vehicle is a billable line item of a bill of lading
type Vehicle struct {
	Year    string          `json:"year"`
	Make    string          `json:"make"`
	Model   string          `json:"model"`
	VIN     string          `json:"vin"` // usually 17 characters, not enforced
	Mileage string          `json:"mileage"`
	Price   decimal.Decimal `json:"price"`
}

// TotalPrice sums the prices of the given vehicles
func TotalPrice(vehicles []Vehicle) decimal.Decimal {
	total := decimal.Zero
	for _, v := range vehicles {
		total = total.Add(v.Price)
	}
	return total
}

func validateVehicles(vehicles []Vehicle) error {
	if len(vehicles) == 0 {
		return shared.ValidationError{Field: "vehicles", Reason: "at least one vehicle is required"}
	}
	for i, v := range vehicles {
		if v.Price.IsNegative() {
			return shared.ValidationError{
				Field:  fmt.Sprintf("vehicles[%d].price", i),
				Reason: "must not be negative",
			}
		}
		for _, f := range []struct {
			name  string
			value string
			limit int
		}{
			{"year", v.Year, maxYearLen},
			{"make", v.Make, maxMakeLen},
			{"model", v.Model, maxModelLen},
			{"vin", v.VIN, maxVINLen},
			{"mileage", v.Mileage, maxMileageLen},
		} {
			if err := checkLength(fmt.Sprintf("vehicles[%d].%s", i, f.name), f.value, f.limit); err != nil {
				return err
			}
		}
	}
	if RoundMoney(TotalPrice(vehicles)).GreaterThan(MaxAmount) {
		return shared.ValidationError{Field: "vehicles", Reason: "total exceeds " + MaxAmount.StringFixed(MoneyPlaces)}
	}
	return nil
}

// Column widths of the bills_of_lading and bol_vehicles tables
const (
	maxWorkOrderNoLen = 64
	maxDriverNameLen  = 255
	maxYearLen        = 8
	maxMakeLen        = 64
	maxModelLen       = 64
	maxVINLen         = 32
	maxMileageLen     = 32
)

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return shared.ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", limit)}
	}
	return nil
}

// normalizeVehicles rounds prices to cents so stored totals match the sum of stored prices
func normalizeVehicles(vehicles []Vehicle) []Vehicle {
	out := make([]Vehicle, len(vehicles))
	for i, v := range vehicles {
		v.Price = RoundMoney(v.Price)
		out[i] = v
	}
	return out
}
