// Package snapshot persists extraction results as batch-indexed partial
// files and consolidates them into the final catalog artifact. The nested
// entity graph (brand, model, year-model, value) is encoded and
// reconstructed here and nowhere else.
package snapshot

import (
	"github.com/openfipe/fipe-harvester/internal/model"
)

// documentVersion is bumped whenever the partial file schema changes.
const documentVersion = 1

type periodDoc struct {
	Period string `json:"period"`
	Code   int    `json:"code"`
}

type valueDoc struct {
	Price           string `json:"price"`
	QueryTimestamp  string `json:"queryTimestamp"`
	ReferencePeriod string `json:"referencePeriod"`
	FipeCode        string `json:"fipeCode"`
	Fuel            string `json:"fuel"`
}

type yearModelDoc struct {
	Description    string     `json:"description"`
	YearCode       string     `json:"yearCode"`
	Authentication string     `json:"authentication,omitempty"`
	Values         []valueDoc `json:"values,omitempty"`
}

type modelDoc struct {
	Name       string          `json:"name"`
	Code       int             `json:"code"`
	FipeCode   string          `json:"fipeCode,omitempty"`
	YearModels []*yearModelDoc `json:"yearModels,omitempty"`
}

type brandDoc struct {
	Name          string      `json:"name"`
	Code          int         `json:"code"`
	VehicleType   string      `json:"vehicleType"`
	InitialPeriod string      `json:"initialPeriod,omitempty"`
	Models        []*modelDoc `json:"models,omitempty"`
}

type catalogDoc struct {
	ReferencePeriods []periodDoc `json:"referencePeriods"`
	Brands           []*brandDoc `json:"brands"`
}

// partialDocument is the on-disk shape of one cumulative batch snapshot.
type partialDocument struct {
	Version int        `json:"version"`
	Batch   int        `json:"batch"`
	SavedAt string     `json:"savedAt"`
	Data    catalogDoc `json:"data"`
}

// encode nests a flat extraction result into the document graph. Entities
// whose owner is missing from the result are skipped: the harvester always
// appends a brand before its models, so in practice nothing is lost.
func encode(result *model.ExtractionResult) catalogDoc {
	doc := catalogDoc{
		ReferencePeriods: make([]periodDoc, 0, len(result.ReferencePeriods)),
		Brands:           make([]*brandDoc, 0, len(result.Brands)),
	}

	for _, p := range result.ReferencePeriods {
		doc.ReferencePeriods = append(doc.ReferencePeriods, periodDoc{Period: p.Period, Code: p.Code})
	}

	brandDocs := make(map[model.BrandKey]*brandDoc, len(result.Brands))
	for _, b := range result.Brands {
		bd := &brandDoc{
			Name:          b.Name,
			Code:          b.Code,
			VehicleType:   string(b.VehicleType),
			InitialPeriod: b.InitialPeriod,
		}
		doc.Brands = append(doc.Brands, bd)
		brandDocs[b.Key()] = bd
	}

	modelDocs := make(map[model.ModelKey]*modelDoc, len(result.Models))
	for _, m := range result.Models {
		if m.Brand == nil {
			continue
		}
		bd, ok := brandDocs[m.Brand.Key()]
		if !ok {
			continue
		}
		md := &modelDoc{Name: m.Name, Code: m.Code, FipeCode: m.FipeCode}
		bd.Models = append(bd.Models, md)
		modelDocs[m.Key()] = md
	}

	yearModelDocs := make(map[model.YearModelKey]*yearModelDoc, len(result.YearModels))
	for _, y := range result.YearModels {
		if y.Model == nil {
			continue
		}
		md, ok := modelDocs[y.Model.Key()]
		if !ok {
			continue
		}
		yd := &yearModelDoc{
			Description:    y.Description,
			YearCode:       y.YearCode,
			Authentication: y.Authentication,
		}
		md.YearModels = append(md.YearModels, yd)
		yearModelDocs[y.Key()] = yd
	}

	for _, v := range result.FipeValues {
		if v.YearModel == nil {
			continue
		}
		yd, ok := yearModelDocs[v.YearModel.Key()]
		if !ok {
			continue
		}
		yd.Values = append(yd.Values, valueDoc{
			Price:           v.Price,
			QueryTimestamp:  v.QueryTimestamp,
			ReferencePeriod: v.ReferencePeriod,
			FipeCode:        v.FipeCode,
			Fuel:            v.Fuel,
		})
	}

	return doc
}

// decode reconstructs the flat extraction result from the document graph.
// Pointer sharing is rebuilt while walking: every model points at the one
// decoded brand instance, every year-model at the one decoded model.
func decode(doc catalogDoc) *model.ExtractionResult {
	result := &model.ExtractionResult{
		ReferencePeriods: make([]model.ReferencePeriod, 0, len(doc.ReferencePeriods)),
		Brands:           make([]*model.Brand, 0, len(doc.Brands)),
	}

	for _, p := range doc.ReferencePeriods {
		result.ReferencePeriods = append(result.ReferencePeriods, model.ReferencePeriod{Period: p.Period, Code: p.Code})
	}

	for _, bd := range doc.Brands {
		brand := &model.Brand{
			Name:          bd.Name,
			Code:          bd.Code,
			VehicleType:   model.VehicleType(bd.VehicleType),
			InitialPeriod: bd.InitialPeriod,
		}
		result.Brands = append(result.Brands, brand)

		for _, md := range bd.Models {
			mdl := &model.Model{
				Name:        md.Name,
				Code:        md.Code,
				FipeCode:    md.FipeCode,
				Brand:       brand,
				VehicleType: brand.VehicleType,
			}
			result.Models = append(result.Models, mdl)

			for _, yd := range md.YearModels {
				ym := &model.YearModel{
					Description:    yd.Description,
					YearCode:       yd.YearCode,
					Authentication: yd.Authentication,
					Model:          mdl,
				}
				result.YearModels = append(result.YearModels, ym)

				for _, vd := range yd.Values {
					result.FipeValues = append(result.FipeValues, &model.FipeValue{
						YearModel:       ym,
						Price:           vd.Price,
						QueryTimestamp:  vd.QueryTimestamp,
						ReferencePeriod: vd.ReferencePeriod,
						FipeCode:        vd.FipeCode,
						Fuel:            vd.Fuel,
					})
				}
			}
		}
	}

	return result
}
