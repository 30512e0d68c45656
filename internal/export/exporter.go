// Package export loads a consolidated catalog into PostgreSQL. Dimension
// tables are upserted on their identity keys; the value table is truncated
// and reloaded via COPY, which dominates export volume.
package export

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfipe/fipe-harvester/internal/db"
	"github.com/openfipe/fipe-harvester/internal/model"
)

const migration = `
CREATE TABLE IF NOT EXISTS reference_periods (
	period TEXT PRIMARY KEY,
	code   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS brands (
	name           TEXT NOT NULL,
	code           INTEGER NOT NULL,
	vehicle_type   TEXT NOT NULL,
	initial_period TEXT,
	PRIMARY KEY (name, vehicle_type)
);

CREATE TABLE IF NOT EXISTS models (
	vehicle_type TEXT NOT NULL,
	brand_name   TEXT NOT NULL,
	name         TEXT NOT NULL,
	code         INTEGER NOT NULL,
	fipe_code    TEXT,
	PRIMARY KEY (vehicle_type, brand_name, name)
);

CREATE TABLE IF NOT EXISTS year_models (
	vehicle_type   TEXT NOT NULL,
	brand_name     TEXT NOT NULL,
	model_name     TEXT NOT NULL,
	year_code      TEXT NOT NULL,
	description    TEXT NOT NULL,
	authentication TEXT,
	PRIMARY KEY (vehicle_type, brand_name, model_name, year_code)
);

CREATE TABLE IF NOT EXISTS fipe_values (
	authentication   TEXT NOT NULL,
	reference_period TEXT NOT NULL,
	price            TEXT NOT NULL,
	fipe_code        TEXT,
	fuel             TEXT,
	query_timestamp  TEXT,
	brand_name       TEXT,
	model_name       TEXT,
	year_code        TEXT,
	vehicle_type     TEXT
);

CREATE INDEX IF NOT EXISTS idx_fipe_values_period ON fipe_values(reference_period);
CREATE INDEX IF NOT EXISTS idx_fipe_values_fipe_code ON fipe_values(fipe_code);
`

// Stats reports how many rows each table received.
type Stats struct {
	Periods    int64
	Brands     int64
	Models     int64
	YearModels int64
	Values     int64
}

// Exporter writes a catalog into PostgreSQL through a shared pool.
type Exporter struct {
	pool db.Pool
}

// NewExporter creates an exporter on the given pool.
func NewExporter(pool db.Pool) *Exporter {
	return &Exporter{pool: pool}
}

// Migrate creates the catalog tables.
func (e *Exporter) Migrate(ctx context.Context) error {
	_, err := e.pool.Exec(ctx, migration)
	return eris.Wrap(err, "export: migrate")
}

// Export loads the full catalog. Re-running an export upserts dimensions in
// place and replaces the value table wholesale.
func (e *Exporter) Export(ctx context.Context, result *model.ExtractionResult) (Stats, error) {
	var stats Stats

	n, err := db.BulkUpsert(ctx, e.pool, db.UpsertConfig{
		Table:        "reference_periods",
		Columns:      []string{"period", "code"},
		ConflictKeys: []string{"period"},
	}, periodRows(result))
	if err != nil {
		return stats, err
	}
	stats.Periods = n

	n, err = db.BulkUpsert(ctx, e.pool, db.UpsertConfig{
		Table:        "brands",
		Columns:      []string{"name", "code", "vehicle_type", "initial_period"},
		ConflictKeys: []string{"name", "vehicle_type"},
	}, brandRows(result))
	if err != nil {
		return stats, err
	}
	stats.Brands = n

	n, err = db.BulkUpsert(ctx, e.pool, db.UpsertConfig{
		Table:        "models",
		Columns:      []string{"vehicle_type", "brand_name", "name", "code", "fipe_code"},
		ConflictKeys: []string{"vehicle_type", "brand_name", "name"},
	}, modelRows(result))
	if err != nil {
		return stats, err
	}
	stats.Models = n

	n, err = db.BulkUpsert(ctx, e.pool, db.UpsertConfig{
		Table:        "year_models",
		Columns:      []string{"vehicle_type", "brand_name", "model_name", "year_code", "description", "authentication"},
		ConflictKeys: []string{"vehicle_type", "brand_name", "model_name", "year_code"},
	}, yearModelRows(result))
	if err != nil {
		return stats, err
	}
	stats.YearModels = n

	if _, err := e.pool.Exec(ctx, "TRUNCATE fipe_values"); err != nil {
		return stats, eris.Wrap(err, "export: truncate fipe_values")
	}
	n, err = db.CopyFrom(ctx, e.pool, "fipe_values",
		[]string{"authentication", "reference_period", "price", "fipe_code", "fuel", "query_timestamp", "brand_name", "model_name", "year_code", "vehicle_type"},
		valueRows(result))
	if err != nil {
		return stats, err
	}
	stats.Values = n

	zap.L().Info("catalog exported",
		zap.Int64("periods", stats.Periods),
		zap.Int64("brands", stats.Brands),
		zap.Int64("models", stats.Models),
		zap.Int64("year_models", stats.YearModels),
		zap.Int64("values", stats.Values),
	)
	return stats, nil
}

func periodRows(r *model.ExtractionResult) [][]any {
	rows := make([][]any, 0, len(r.ReferencePeriods))
	for _, p := range r.ReferencePeriods {
		rows = append(rows, []any{p.Period, p.Code})
	}
	return rows
}

func brandRows(r *model.ExtractionResult) [][]any {
	rows := make([][]any, 0, len(r.Brands))
	for _, b := range r.Brands {
		rows = append(rows, []any{b.Name, b.Code, string(b.VehicleType), b.InitialPeriod})
	}
	return rows
}

func modelRows(r *model.ExtractionResult) [][]any {
	rows := make([][]any, 0, len(r.Models))
	for _, m := range r.Models {
		brandName := ""
		if m.Brand != nil {
			brandName = m.Brand.Name
		}
		rows = append(rows, []any{string(m.VehicleType), brandName, m.Name, m.Code, m.FipeCode})
	}
	return rows
}

func yearModelRows(r *model.ExtractionResult) [][]any {
	rows := make([][]any, 0, len(r.YearModels))
	for _, y := range r.YearModels {
		var brandName, modelName, vehicleType string
		if y.Model != nil {
			modelName = y.Model.Name
			vehicleType = string(y.Model.VehicleType)
			if y.Model.Brand != nil {
				brandName = y.Model.Brand.Name
			}
		}
		rows = append(rows, []any{vehicleType, brandName, modelName, y.YearCode, y.Description, y.Authentication})
	}
	return rows
}

func valueRows(r *model.ExtractionResult) [][]any {
	rows := make([][]any, 0, len(r.FipeValues))
	for _, v := range r.FipeValues {
		var auth, brandName, modelName, yearCode, vehicleType string
		if ym := v.YearModel; ym != nil {
			auth = ym.Authentication
			yearCode = ym.YearCode
			if ym.Model != nil {
				modelName = ym.Model.Name
				vehicleType = string(ym.Model.VehicleType)
				if ym.Model.Brand != nil {
					brandName = ym.Model.Brand.Name
				}
			}
		}
		rows = append(rows, []any{auth, v.ReferencePeriod, v.Price, v.FipeCode, v.Fuel, v.QueryTimestamp, brandName, modelName, yearCode, vehicleType})
	}
	return rows
}
