package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfipe/fipe-harvester/internal/model"
	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

func fixtureModel() *model.Model {
	brand := &model.Brand{Name: "FIAT", Code: 21, VehicleType: model.VehicleTypeCar}
	return &model.Model{Name: "UNO", Code: 123, Brand: brand, VehicleType: model.VehicleTypeCar}
}

func TestModelExtractor(t *testing.T) {
	client := &fakeClient{
		models: func(ctx context.Context, tableCode, vehicleType, brandCode int) (*fipe.ModelsResponse, error) {
			assert.Equal(t, 320, tableCode)
			assert.Equal(t, 1, vehicleType)
			assert.Equal(t, 21, brandCode)
			return &fipe.ModelsResponse{
				Models: []fipe.LabelValue{{Label: "UNO", Value: "123"}, {Label: "PALIO", Value: "124"}},
			}, nil
		},
	}

	brand := &model.Brand{Name: "FIAT", Code: 21, VehicleType: model.VehicleTypeCar}
	models, err := NewModelExtractor(client).Extract(context.Background(), ModelQuery{
		Period: model.ReferencePeriod{Period: "01/2024", Code: 320},
		Brand:  brand,
	})
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "UNO", models[0].Name)
	assert.Equal(t, 123, models[0].Code)
	assert.Empty(t, models[0].FipeCode)
	assert.Same(t, brand, models[0].Brand)
}

func TestValueExtractor_YearModels(t *testing.T) {
	client := &fakeClient{
		yearModels: func(ctx context.Context, tableCode, vehicleType, brandCode, modelCode int) ([]fipe.LabelValue, error) {
			assert.Equal(t, 123, modelCode)
			return []fipe.LabelValue{{Label: "2024 Gasoline", Value: "2024-1"}}, nil
		},
	}

	mdl := fixtureModel()
	yearModels, err := NewValueExtractor(client).Extract(context.Background(), YearModelQuery{
		Period: model.ReferencePeriod{Period: "01/2024", Code: 320},
		Model:  mdl,
	})
	require.NoError(t, err)
	require.Len(t, yearModels, 1)
	assert.Equal(t, "2024 Gasoline", yearModels[0].Description)
	assert.Equal(t, "2024-1", yearModels[0].YearCode)
	assert.Empty(t, yearModels[0].Authentication)
	assert.Same(t, mdl, yearModels[0].Model)
}

func TestValueExtractor_Value_BackfillsAuthAndFipeCode(t *testing.T) {
	client := &fakeClient{
		value: func(ctx context.Context, q fipe.ValueQuery) (*fipe.ValueResponse, error) {
			assert.Equal(t, "2024-1", q.YearCode)
			return &fipe.ValueResponse{
				Price:          "R$ 35.000,00",
				FipeCode:       "001004-9",
				Authentication: "abc123",
				Fuel:           "Gasoline",
			}, nil
		},
	}

	mdl := fixtureModel()
	ym := &model.YearModel{Description: "2024 Gasoline", YearCode: "2024-1", Model: mdl}
	period := model.ReferencePeriod{Period: "01/2024", Code: 320}

	val, err := NewValueExtractor(client).Value(context.Background(), period, ym)
	require.NoError(t, err)
	require.NotNil(t, val)

	assert.Equal(t, "R$ 35.000,00", val.Price)
	assert.Equal(t, "01/2024", val.ReferencePeriod)
	assert.Equal(t, model.ValueKey{Authentication: "abc123", ReferencePeriod: "01/2024"}, val.Key())
	assert.NotEmpty(t, val.QueryTimestamp)

	assert.Equal(t, "abc123", ym.Authentication)
	assert.Equal(t, "001004-9", mdl.FipeCode)
}

func TestValueExtractor_Value_DoesNotOverwriteFipeCode(t *testing.T) {
	client := &fakeClient{
		value: func(ctx context.Context, q fipe.ValueQuery) (*fipe.ValueResponse, error) {
			return &fipe.ValueResponse{FipeCode: "999999-9", Authentication: "zzz"}, nil
		},
	}

	mdl := fixtureModel()
	mdl.FipeCode = "001004-9"
	ym := &model.YearModel{YearCode: "2024-1", Model: mdl}

	_, err := NewValueExtractor(client).Value(context.Background(), model.ReferencePeriod{Period: "01/2024", Code: 320}, ym)
	require.NoError(t, err)
	assert.Equal(t, "001004-9", mdl.FipeCode)
}

func TestValueExtractor_Value_SkipsFailedLookup(t *testing.T) {
	client := &fakeClient{
		value: func(ctx context.Context, q fipe.ValueQuery) (*fipe.ValueResponse, error) {
			return nil, errors.New("nada encontrado")
		},
	}

	mdl := fixtureModel()
	ym := &model.YearModel{YearCode: "2024-1", Model: mdl}

	val, err := NewValueExtractor(client).Value(context.Background(), model.ReferencePeriod{Period: "01/2024", Code: 320}, ym)
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.Empty(t, ym.Authentication)
	assert.Empty(t, mdl.FipeCode)
}
