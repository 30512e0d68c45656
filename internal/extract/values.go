package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfipe/fipe-harvester/internal/model"
	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

// YearModelQuery selects the year-model variants of one model in one period.
type YearModelQuery struct {
	Period model.ReferencePeriod
	Model  *model.Model
}

// ValueExtractor extracts year-model candidates and their priced entries.
// It is the only extractor that mutates entities: a successful value lookup
// backfills Authentication into the year-model and FipeCode into the model,
// the latter only while still empty.
type ValueExtractor struct {
	client fipe.Client
}

var _ Extractor[YearModelQuery, *model.YearModel] = (*ValueExtractor)(nil)

// NewValueExtractor creates a value extractor on the given client.
func NewValueExtractor(client fipe.Client) *ValueExtractor {
	return &ValueExtractor{client: client}
}

// Extract lists the year-model candidates of the queried model. Candidates
// come back without a resolved authentication token.
func (e *ValueExtractor) Extract(ctx context.Context, q YearModelQuery) ([]*model.YearModel, error) {
	brand := q.Model.Brand
	if brand == nil {
		return nil, eris.Errorf("extract: model %s has no brand", q.Model.Name)
	}

	raw, err := e.client.YearModels(ctx, q.Period.Code, q.Model.VehicleType.Code(), brand.Code, q.Model.Code)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: year-models of %s %s in period %s", brand.Name, q.Model.Name, q.Period.Period)
	}

	yearModels := make([]*model.YearModel, 0, len(raw))
	for _, item := range raw {
		yearModels = append(yearModels, &model.YearModel{
			Description: item.Label,
			YearCode:    item.Value,
			Model:       q.Model,
		})
	}

	return yearModels, nil
}

// Value looks up the priced entry for one year-model. On success it
// backfills the year-model's authentication token and, if still empty, the
// owning model's FipeCode, then returns the new value. A failed lookup is
// logged and reported as (nil, nil): one bad unit never aborts the caller's
// loop.
func (e *ValueExtractor) Value(ctx context.Context, period model.ReferencePeriod, ym *model.YearModel) (*model.FipeValue, error) {
	mdl := ym.Model
	if mdl == nil {
		return nil, eris.Errorf("extract: year-model %s has no model", ym.Description)
	}
	brand := mdl.Brand
	if brand == nil {
		return nil, eris.Errorf("extract: model %s has no brand", mdl.Name)
	}

	resp, err := e.client.Value(ctx, fipe.ValueQuery{
		TableCode:   period.Code,
		VehicleType: mdl.VehicleType.Code(),
		BrandCode:   brand.Code,
		ModelCode:   mdl.Code,
		YearCode:    ym.YearCode,
	})
	if err != nil {
		zap.L().Warn("value lookup failed, skipping unit",
			zap.String("brand", brand.Name),
			zap.String("model", mdl.Name),
			zap.String("year_code", ym.YearCode),
			zap.String("period", period.Period),
			zap.Error(err),
		)
		return nil, nil
	}

	ym.Authentication = resp.Authentication
	if mdl.FipeCode == "" && resp.FipeCode != "" {
		mdl.FipeCode = resp.FipeCode
	}

	return &model.FipeValue{
		YearModel:       ym,
		Price:           resp.Price,
		QueryTimestamp:  time.Now().UTC().Format(time.RFC3339),
		ReferencePeriod: period.Period,
		FipeCode:        resp.FipeCode,
		Fuel:            resp.Fuel,
	}, nil
}
