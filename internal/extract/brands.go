package extract

import (
	"context"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfipe/fipe-harvester/internal/model"
	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

// BrandQuery selects the brands of one period and vehicle type.
type BrandQuery struct {
	Period      model.ReferencePeriod
	VehicleType model.VehicleType
}

// BrandExtractor extracts vehicle brands. Two discovery strategies coexist:
// Extract takes a single-period snapshot (used by the default orchestration,
// which assumes brand identity is stable across periods), and Historical
// walks every period oldest to newest to record each brand's initial period.
type BrandExtractor struct {
	client fipe.Client
}

var _ Extractor[BrandQuery, *model.Brand] = (*BrandExtractor)(nil)

// NewBrandExtractor creates a brand extractor on the given client.
func NewBrandExtractor(client fipe.Client) *BrandExtractor {
	return &BrandExtractor{client: client}
}

// Extract lists the brands of one period and vehicle type, deduplicated by
// (name, vehicleType) within the response.
func (e *BrandExtractor) Extract(ctx context.Context, q BrandQuery) ([]*model.Brand, error) {
	raw, err := e.client.Brands(ctx, q.Period.Code, q.VehicleType.Code())
	if err != nil {
		return nil, eris.Wrapf(err, "extract: brands for period %s type %s", q.Period.Period, q.VehicleType)
	}

	brands := make([]*model.Brand, 0, len(raw))
	seen := make(map[model.BrandKey]struct{}, len(raw))
	for _, item := range raw {
		brand := brandFromResponse(item, q.VehicleType)
		if _, ok := seen[brand.Key()]; ok {
			continue
		}
		seen[brand.Key()] = struct{}{}
		brands = append(brands, brand)
	}

	return brands, nil
}

// Historical walks all periods oldest to newest and returns every brand ever
// observed for the vehicle type, with InitialPeriod set to the first period
// the brand name appeared in. Per-period lookup failures are logged and
// skipped. This strategy is independent of the default orchestration path.
func (e *BrandExtractor) Historical(ctx context.Context, periods []model.ReferencePeriod, vt model.VehicleType) ([]*model.Brand, error) {
	ordered := make([]model.ReferencePeriod, len(periods))
	copy(ordered, periods)
	sort.Slice(ordered, func(i, j int) bool {
		return model.PeriodOrdinal(ordered[i].Period) < model.PeriodOrdinal(ordered[j].Period)
	})

	var brands []*model.Brand
	seen := make(map[model.BrandKey]struct{})

	for i, period := range ordered {
		raw, err := e.client.Brands(ctx, period.Code, vt.Code())
		if err != nil {
			zap.L().Error("brand discovery failed for period",
				zap.String("period", period.Period),
				zap.String("vehicle_type", string(vt)),
				zap.Error(err),
			)
			continue
		}

		for _, item := range raw {
			brand := brandFromResponse(item, vt)
			if _, ok := seen[brand.Key()]; ok {
				continue
			}
			brand.InitialPeriod = period.Period
			seen[brand.Key()] = struct{}{}
			brands = append(brands, brand)
		}

		if (i+1)%10 == 0 {
			zap.L().Info("brand discovery progress",
				zap.Int("periods_done", i+1),
				zap.Int("periods_total", len(ordered)),
				zap.Int("brands", len(brands)),
			)
		}
	}

	zap.L().Info("historical brand discovery complete",
		zap.String("vehicle_type", string(vt)),
		zap.Int("brands", len(brands)),
	)
	return brands, nil
}

func brandFromResponse(item fipe.LabelValue, vt model.VehicleType) *model.Brand {
	code, _ := strconv.Atoi(item.Value)
	return &model.Brand{
		Name:        item.Label,
		Code:        code,
		VehicleType: vt,
	}
}
