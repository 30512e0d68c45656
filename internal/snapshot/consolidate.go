package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfipe/fipe-harvester/internal/model"
)

// Flat record shapes of the consolidated artifact. Unlike the partial
// documents, the final file is write-only output, so ownership is
// denormalized into each record instead of nested.

type consolidatedBrand struct {
	Name          string `json:"name"`
	Code          int    `json:"code"`
	VehicleType   string `json:"vehicleType"`
	InitialPeriod string `json:"initialPeriod,omitempty"`
}

type consolidatedModel struct {
	Name        string `json:"name"`
	Code        int    `json:"code"`
	FipeCode    string `json:"fipeCode,omitempty"`
	BrandName   string `json:"brandName"`
	VehicleType string `json:"vehicleType"`
}

type consolidatedYearModel struct {
	Description    string `json:"description"`
	YearCode       string `json:"yearCode"`
	Authentication string `json:"authentication,omitempty"`
	BrandName      string `json:"brandName"`
	ModelName      string `json:"modelName"`
	VehicleType    string `json:"vehicleType"`
}

type consolidatedValue struct {
	Price           string `json:"price"`
	QueryTimestamp  string `json:"queryTimestamp"`
	ReferencePeriod string `json:"referencePeriod"`
	FipeCode        string `json:"fipeCode"`
	Fuel            string `json:"fuel"`
	Authentication  string `json:"authentication"`
	BrandName       string `json:"brandName"`
	ModelName       string `json:"modelName"`
	YearCode        string `json:"yearCode"`
	VehicleType     string `json:"vehicleType"`
}

type consolidatedDocument struct {
	Version          int                     `json:"version"`
	ConsolidatedAt   string                  `json:"consolidatedAt"`
	SourceFiles      int                     `json:"sourceFiles"`
	ReferencePeriods []periodDoc             `json:"referencePeriods"`
	Brands           []consolidatedBrand     `json:"brands"`
	Models           []consolidatedModel     `json:"models"`
	YearModels       []consolidatedYearModel `json:"yearModels"`
	FipeValues       []consolidatedValue     `json:"fipeValues"`
}

// Merged loads every partial file in filename order and merges them, first
// file wins. Errors when the output directory holds no partials.
func (s *Store) Merged() (*model.ExtractionResult, int, error) {
	paths, err := s.ListPartials()
	if err != nil {
		return nil, 0, err
	}
	if len(paths) == 0 {
		return nil, 0, eris.New("snapshot: no partial files to consolidate")
	}

	merged := &model.ExtractionResult{}
	for _, path := range paths {
		result, err := s.LoadPartial(path)
		if err != nil {
			return nil, 0, err
		}
		merged.Merge(result)
	}
	return merged, len(paths), nil
}

// Consolidate merges every partial file in filename order, first file wins,
// sorts the result, and writes the final artifact. Partial files are left in
// place; CleanupPartials removes them on request. Returns the artifact path.
func (s *Store) Consolidate() (string, error) {
	merged, sources, err := s.Merged()
	if err != nil {
		return "", err
	}

	sortResult(merged)

	doc := buildConsolidated(merged)
	doc.SourceFiles = sources

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "snapshot: marshal consolidated document")
	}

	path := filepath.Join(s.dir, consolidatedName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "snapshot: write %s", path)
	}

	zap.L().Info("consolidation complete",
		zap.String("path", path),
		zap.Int("source_files", sources),
		zap.Int("periods", len(doc.ReferencePeriods)),
		zap.Int("brands", len(doc.Brands)),
		zap.Int("models", len(doc.Models)),
		zap.Int("year_models", len(doc.YearModels)),
		zap.Int("values", len(doc.FipeValues)),
	)
	return path, nil
}

// sortResult applies the canonical artifact ordering: periods newest first
// by parsed (year, month), brands by (vehicleType, name), models by
// (vehicleType, brand name, name).
func sortResult(r *model.ExtractionResult) {
	sort.SliceStable(r.ReferencePeriods, func(i, j int) bool {
		return model.PeriodOrdinal(r.ReferencePeriods[i].Period) > model.PeriodOrdinal(r.ReferencePeriods[j].Period)
	})
	sort.SliceStable(r.Brands, func(i, j int) bool {
		a, b := r.Brands[i], r.Brands[j]
		if a.VehicleType != b.VehicleType {
			return a.VehicleType < b.VehicleType
		}
		return a.Name < b.Name
	})
	sort.SliceStable(r.Models, func(i, j int) bool {
		a, b := r.Models[i].Key(), r.Models[j].Key()
		if a.VehicleType != b.VehicleType {
			return a.VehicleType < b.VehicleType
		}
		if a.BrandName != b.BrandName {
			return a.BrandName < b.BrandName
		}
		return a.Name < b.Name
	})
}

func buildConsolidated(r *model.ExtractionResult) consolidatedDocument {
	doc := consolidatedDocument{
		Version:          documentVersion,
		ConsolidatedAt:   time.Now().UTC().Format(time.RFC3339),
		ReferencePeriods: make([]periodDoc, 0, len(r.ReferencePeriods)),
		Brands:           make([]consolidatedBrand, 0, len(r.Brands)),
		Models:           make([]consolidatedModel, 0, len(r.Models)),
		YearModels:       make([]consolidatedYearModel, 0, len(r.YearModels)),
		FipeValues:       make([]consolidatedValue, 0, len(r.FipeValues)),
	}

	for _, p := range r.ReferencePeriods {
		doc.ReferencePeriods = append(doc.ReferencePeriods, periodDoc{Period: p.Period, Code: p.Code})
	}
	for _, b := range r.Brands {
		doc.Brands = append(doc.Brands, consolidatedBrand{
			Name:          b.Name,
			Code:          b.Code,
			VehicleType:   string(b.VehicleType),
			InitialPeriod: b.InitialPeriod,
		})
	}
	for _, m := range r.Models {
		rec := consolidatedModel{
			Name:        m.Name,
			Code:        m.Code,
			FipeCode:    m.FipeCode,
			VehicleType: string(m.VehicleType),
		}
		if m.Brand != nil {
			rec.BrandName = m.Brand.Name
		}
		doc.Models = append(doc.Models, rec)
	}
	for _, y := range r.YearModels {
		rec := consolidatedYearModel{
			Description:    y.Description,
			YearCode:       y.YearCode,
			Authentication: y.Authentication,
		}
		if y.Model != nil {
			rec.ModelName = y.Model.Name
			rec.VehicleType = string(y.Model.VehicleType)
			if y.Model.Brand != nil {
				rec.BrandName = y.Model.Brand.Name
			}
		}
		doc.YearModels = append(doc.YearModels, rec)
	}
	for _, v := range r.FipeValues {
		rec := consolidatedValue{
			Price:           v.Price,
			QueryTimestamp:  v.QueryTimestamp,
			ReferencePeriod: v.ReferencePeriod,
			FipeCode:        v.FipeCode,
			Fuel:            v.Fuel,
		}
		if ym := v.YearModel; ym != nil {
			rec.Authentication = ym.Authentication
			rec.YearCode = ym.YearCode
			if ym.Model != nil {
				rec.ModelName = ym.Model.Name
				rec.VehicleType = string(ym.Model.VehicleType)
				if ym.Model.Brand != nil {
					rec.BrandName = ym.Model.Brand.Name
				}
			}
		}
		doc.FipeValues = append(doc.FipeValues, rec)
	}

	return doc
}
