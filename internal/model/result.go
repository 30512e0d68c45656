package model

// ExtractionResult groups the five entity collections produced by one or
// more extraction tasks. It is the unit of accumulation, merge, and
// persistence.
type ExtractionResult struct {
	ReferencePeriods []ReferencePeriod
	Brands           []*Brand
	Models           []*Model
	YearModels       []*YearModel
	FipeValues       []*FipeValue
}

// Merge adds every entity from other whose identity key is not already
// present in r. First-seen wins: an incoming entity with a key already in r
// is discarded even if it carries additional resolved attributes, so merge
// order affects retained attributes but never final membership. Merge is
// idempotent.
func (r *ExtractionResult) Merge(other *ExtractionResult) {
	if other == nil {
		return
	}

	seenPeriods := make(map[PeriodKey]struct{}, len(r.ReferencePeriods))
	for _, p := range r.ReferencePeriods {
		seenPeriods[p.Key()] = struct{}{}
	}
	for _, p := range other.ReferencePeriods {
		if _, ok := seenPeriods[p.Key()]; !ok {
			r.ReferencePeriods = append(r.ReferencePeriods, p)
			seenPeriods[p.Key()] = struct{}{}
		}
	}

	seenBrands := make(map[BrandKey]struct{}, len(r.Brands))
	for _, b := range r.Brands {
		seenBrands[b.Key()] = struct{}{}
	}
	for _, b := range other.Brands {
		if _, ok := seenBrands[b.Key()]; !ok {
			r.Brands = append(r.Brands, b)
			seenBrands[b.Key()] = struct{}{}
		}
	}

	seenModels := make(map[ModelKey]struct{}, len(r.Models))
	for _, m := range r.Models {
		seenModels[m.Key()] = struct{}{}
	}
	for _, m := range other.Models {
		if _, ok := seenModels[m.Key()]; !ok {
			r.Models = append(r.Models, m)
			seenModels[m.Key()] = struct{}{}
		}
	}

	seenYears := make(map[YearModelKey]struct{}, len(r.YearModels))
	for _, y := range r.YearModels {
		seenYears[y.Key()] = struct{}{}
	}
	for _, y := range other.YearModels {
		if _, ok := seenYears[y.Key()]; !ok {
			r.YearModels = append(r.YearModels, y)
			seenYears[y.Key()] = struct{}{}
		}
	}

	seenValues := make(map[ValueKey]struct{}, len(r.FipeValues))
	for _, v := range r.FipeValues {
		seenValues[v.Key()] = struct{}{}
	}
	for _, v := range other.FipeValues {
		if _, ok := seenValues[v.Key()]; !ok {
			r.FipeValues = append(r.FipeValues, v)
			seenValues[v.Key()] = struct{}{}
		}
	}
}

// Counts reports the size of each entity collection, for logging.
func (r *ExtractionResult) Counts() (periods, brands, models, yearModels, values int) {
	return len(r.ReferencePeriods), len(r.Brands), len(r.Models), len(r.YearModels), len(r.FipeValues)
}
