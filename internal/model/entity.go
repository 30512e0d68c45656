// Package model defines the catalog entities extracted from the FIPE API
// and the identity-based merge semantics shared by the in-memory
// accumulation path and the on-disk consolidation path.
package model

import (
	"strconv"
	"strings"
)

// ReferencePeriod is a catalog month-year snapshot. Period is the canonical
// "MM/yyyy" display string; Code is the server-assigned lookup code.
type ReferencePeriod struct {
	Period string
	Code   int
}

// PeriodKey identifies a ReferencePeriod by its display string alone.
// Codes are server-assigned and excluded from identity.
type PeriodKey string

// Key returns the identity key of the period.
func (p ReferencePeriod) Key() PeriodKey { return PeriodKey(p.Period) }

// PeriodOrdinal converts a "MM/yyyy" period string into a sortable ordinal
// (year*100 + month). Malformed periods yield 0, which sorts before any
// valid period.
func PeriodOrdinal(period string) int {
	parts := strings.Split(period, "/")
	if len(parts) != 2 {
		return 0
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return year*100 + month
}

// Brand is a vehicle manufacturer within one vehicle type.
type Brand struct {
	Name        string
	Code        int
	VehicleType VehicleType

	// InitialPeriod is the earliest period the brand was observed in.
	// Only populated by the historical discovery strategy.
	InitialPeriod string
}

// BrandKey identifies a Brand by (name, vehicleType).
type BrandKey struct {
	Name        string
	VehicleType VehicleType
}

// Key returns the identity key of the brand.
func (b *Brand) Key() BrandKey {
	return BrandKey{Name: b.Name, VehicleType: b.VehicleType}
}

// Model is a vehicle model. FipeCode starts empty and is backfilled in
// place by the value extractor once a value lookup succeeds; it is never
// rewritten by merges.
type Model struct {
	Name        string
	Code        int
	FipeCode    string
	Brand       *Brand
	VehicleType VehicleType
}

// ModelKey identifies a Model by stable fields only: (vehicleType,
// brand name, model name). The mutable FipeCode is deliberately excluded
// so that a model observed before and after its code was resolved keeps a
// single identity, and unresolved models never collide with each other.
type ModelKey struct {
	VehicleType VehicleType
	BrandName   string
	Name        string
}

// Key returns the identity key of the model.
func (m *Model) Key() ModelKey {
	k := ModelKey{VehicleType: m.VehicleType, Name: m.Name}
	if m.Brand != nil {
		k.BrandName = m.Brand.Name
	}
	return k
}

// YearModel is one (model year, fuel) variant of a model. Authentication
// starts empty and is backfilled from a successful value lookup.
type YearModel struct {
	Description    string
	YearCode       string
	Authentication string
	Model          *Model
}

// YearModelKey identifies a YearModel by its owning model's key plus the
// stable year code, not by the mutable authentication token.
type YearModelKey struct {
	Model    ModelKey
	YearCode string
}

// Key returns the identity key of the year-model.
func (y *YearModel) Key() YearModelKey {
	k := YearModelKey{YearCode: y.YearCode}
	if y.Model != nil {
		k.Model = y.Model.Key()
	}
	return k
}

// FipeValue is one priced (model, year, fuel, period) entry. Values are
// only created from successful lookups, so Authentication is resolved by
// construction.
type FipeValue struct {
	YearModel       *YearModel
	Price           string
	QueryTimestamp  string
	ReferencePeriod string
	FipeCode        string
	Fuel            string
}

// ValueKey identifies a FipeValue by (authentication, referencePeriod).
type ValueKey struct {
	Authentication  string
	ReferencePeriod string
}

// Key returns the identity key of the value.
func (v *FipeValue) Key() ValueKey {
	k := ValueKey{ReferencePeriod: v.ReferencePeriod}
	if v.YearModel != nil {
		k.Authentication = v.YearModel.Authentication
	}
	return k
}
