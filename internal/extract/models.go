package extract

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/openfipe/fipe-harvester/internal/model"
	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

// ModelQuery selects the models of one brand in one period.
type ModelQuery struct {
	Period model.ReferencePeriod
	Brand  *model.Brand
}

// ModelExtractor extracts vehicle models. Models come back without a
// resolved FipeCode; the value extractor backfills it later.
type ModelExtractor struct {
	client fipe.Client
}

var _ Extractor[ModelQuery, *model.Model] = (*ModelExtractor)(nil)

// NewModelExtractor creates a model extractor on the given client.
func NewModelExtractor(client fipe.Client) *ModelExtractor {
	return &ModelExtractor{client: client}
}

// Extract lists the models of the queried brand and period.
func (e *ModelExtractor) Extract(ctx context.Context, q ModelQuery) ([]*model.Model, error) {
	resp, err := e.client.Models(ctx, q.Period.Code, q.Brand.VehicleType.Code(), q.Brand.Code)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: models of brand %s in period %s", q.Brand.Name, q.Period.Period)
	}

	models := make([]*model.Model, 0, len(resp.Models))
	for _, item := range resp.Models {
		code, _ := strconv.Atoi(item.Value)
		models = append(models, &model.Model{
			Name:        item.Label,
			Code:        code,
			Brand:       q.Brand,
			VehicleType: q.Brand.VehicleType,
		})
	}

	return models, nil
}
