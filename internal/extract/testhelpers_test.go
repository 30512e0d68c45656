package extract

import (
	"context"
	"errors"

	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

// fakeClient implements fipe.Client with overridable behavior per operation.
type fakeClient struct {
	referenceTables func(ctx context.Context) ([]fipe.ReferenceTable, error)
	brands          func(ctx context.Context, tableCode, vehicleType int) ([]fipe.LabelValue, error)
	models          func(ctx context.Context, tableCode, vehicleType, brandCode int) (*fipe.ModelsResponse, error)
	yearModels      func(ctx context.Context, tableCode, vehicleType, brandCode, modelCode int) ([]fipe.LabelValue, error)
	value           func(ctx context.Context, q fipe.ValueQuery) (*fipe.ValueResponse, error)
}

var errNotStubbed = errors.New("not stubbed")

func (f *fakeClient) ReferenceTables(ctx context.Context) ([]fipe.ReferenceTable, error) {
	if f.referenceTables == nil {
		return nil, errNotStubbed
	}
	return f.referenceTables(ctx)
}

func (f *fakeClient) Brands(ctx context.Context, tableCode, vehicleType int) ([]fipe.LabelValue, error) {
	if f.brands == nil {
		return nil, errNotStubbed
	}
	return f.brands(ctx, tableCode, vehicleType)
}

func (f *fakeClient) Models(ctx context.Context, tableCode, vehicleType, brandCode int) (*fipe.ModelsResponse, error) {
	if f.models == nil {
		return nil, errNotStubbed
	}
	return f.models(ctx, tableCode, vehicleType, brandCode)
}

func (f *fakeClient) YearModels(ctx context.Context, tableCode, vehicleType, brandCode, modelCode int) ([]fipe.LabelValue, error) {
	if f.yearModels == nil {
		return nil, errNotStubbed
	}
	return f.yearModels(ctx, tableCode, vehicleType, brandCode, modelCode)
}

func (f *fakeClient) Value(ctx context.Context, q fipe.ValueQuery) (*fipe.ValueResponse, error) {
	if f.value == nil {
		return nil, errNotStubbed
	}
	return f.value(ctx, q)
}
