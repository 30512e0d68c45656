package harvest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfipe/fipe-harvester/internal/extract"
	"github.com/openfipe/fipe-harvester/internal/model"
	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

// runTask extracts the full catalog fragment of one (period, brand) pair:
// the brand's models, their year-model variants, and the priced entry of
// each variant. A model whose FipeCode never resolves contributed nothing,
// so it is dropped along with its variants. The brand itself is always part
// of the fragment.
func runTask(ctx context.Context, client fipe.Client, task Task) (*model.ExtractionResult, error) {
	log := zap.L().With(
		zap.String("task_id", task.ID),
		zap.String("period", task.Period.Period),
		zap.String("brand", task.Brand.Name),
		zap.String("vehicle_type", string(task.Brand.VehicleType)),
	)

	modelExtractor := extract.NewModelExtractor(client)
	valueExtractor := extract.NewValueExtractor(client)

	fragment := &model.ExtractionResult{
		Brands: []*model.Brand{task.Brand},
	}

	models, err := modelExtractor.Extract(ctx, extract.ModelQuery{Period: task.Period, Brand: task.Brand})
	if err != nil {
		return nil, eris.Wrapf(err, "harvest: task %s: list models", task.ID)
	}

	for _, mdl := range models {
		yearModels, err := valueExtractor.Extract(ctx, extract.YearModelQuery{Period: task.Period, Model: mdl})
		if err != nil {
			return nil, eris.Wrapf(err, "harvest: task %s: list year-models of %s", task.ID, mdl.Name)
		}

		var values []*model.FipeValue
		for _, ym := range yearModels {
			val, err := valueExtractor.Value(ctx, task.Period, ym)
			if err != nil {
				return nil, eris.Wrapf(err, "harvest: task %s: value of %s %s", task.ID, mdl.Name, ym.YearCode)
			}
			if val != nil {
				values = append(values, val)
			}
		}

		if mdl.FipeCode == "" {
			log.Debug("model never resolved, dropping", zap.String("model", mdl.Name))
			continue
		}

		fragment.Models = append(fragment.Models, mdl)
		fragment.YearModels = append(fragment.YearModels, yearModels...)
		fragment.FipeValues = append(fragment.FipeValues, values...)
	}

	_, _, nModels, nYears, nValues := fragment.Counts()
	log.Info("task complete",
		zap.Int("models", nModels),
		zap.Int("year_models", nYears),
		zap.Int("values", nValues),
	)
	return fragment, nil
}
