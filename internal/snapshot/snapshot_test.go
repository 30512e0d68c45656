package snapshot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfipe/fipe-harvester/internal/model"
)

func sampleResult(auth, fipeCode string) *model.ExtractionResult {
	brand := &model.Brand{Name: "FIAT", Code: 21, VehicleType: model.VehicleTypeCar, InitialPeriod: "01/2023"}
	mdl := &model.Model{Name: "UNO", Code: 123, FipeCode: fipeCode, Brand: brand, VehicleType: model.VehicleTypeCar}
	ym := &model.YearModel{Description: "2024 Gasoline", YearCode: "2024-1", Authentication: auth, Model: mdl}
	val := &model.FipeValue{
		YearModel:       ym,
		Price:           "R$ 35.000,00",
		QueryTimestamp:  "2024-01-15T10:00:00Z",
		ReferencePeriod: "01/2024",
		FipeCode:        fipeCode,
		Fuel:            "Gasoline",
	}
	return &model.ExtractionResult{
		ReferencePeriods: []model.ReferencePeriod{{Period: "01/2024", Code: 320}},
		Brands:           []*model.Brand{brand},
		Models:           []*model.Model{mdl},
		YearModels:       []*model.YearModel{ym},
		FipeValues:       []*model.FipeValue{val},
	}
}

func TestPartialRoundTrip_RebuildsPointerSharing(t *testing.T) {
	store := NewStore(t.TempDir())

	path, err := store.SavePartial(sampleResult("abc123", "001004-9"), 1)
	require.NoError(t, err)

	loaded, err := store.LoadPartial(path)
	require.NoError(t, err)

	require.Len(t, loaded.Brands, 1)
	require.Len(t, loaded.Models, 1)
	require.Len(t, loaded.YearModels, 1)
	require.Len(t, loaded.FipeValues, 1)

	assert.Same(t, loaded.Brands[0], loaded.Models[0].Brand)
	assert.Same(t, loaded.Models[0], loaded.YearModels[0].Model)
	assert.Same(t, loaded.YearModels[0], loaded.FipeValues[0].YearModel)

	assert.Equal(t, "001004-9", loaded.Models[0].FipeCode)
	assert.Equal(t, "abc123", loaded.YearModels[0].Authentication)
	assert.Equal(t, "01/2023", loaded.Brands[0].InitialPeriod)
	assert.Equal(t, model.ValueKey{Authentication: "abc123", ReferencePeriod: "01/2024"}, loaded.FipeValues[0].Key())
}

func TestLoadPartial_RejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch_0001.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "batch": 1, "data": {}}`), 0o644))

	_, err := NewStore(dir).LoadPartial(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version 99")
}

func TestListPartials_SortedAndFiltered(t *testing.T) {
	store := NewStore(t.TempDir())

	for _, batch := range []int{3, 1, 2} {
		_, err := store.SavePartial(&model.ExtractionResult{}, batch)
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644))

	paths, err := store.ListPartials()
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, "batch_0001.json", filepath.Base(paths[0]))
	assert.Equal(t, "batch_0003.json", filepath.Base(paths[2]))
}

func TestListPartials_MissingDirectory(t *testing.T) {
	paths, err := NewStore(filepath.Join(t.TempDir(), "absent")).ListPartials()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestConsolidate_DeduplicatesAcrossFiles(t *testing.T) {
	store := NewStore(t.TempDir())

	// Both files carry the same value identity; the second resolves the
	// model's FipeCode. First file wins, so the empty code is retained.
	_, err := store.SavePartial(sampleResult("abc123", ""), 1)
	require.NoError(t, err)
	_, err = store.SavePartial(sampleResult("abc123", "001004-9"), 2)
	require.NoError(t, err)

	path, err := store.Consolidate()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc consolidatedDocument
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, 2, doc.SourceFiles)
	assert.Len(t, doc.Brands, 1)
	assert.Len(t, doc.Models, 1)
	assert.Len(t, doc.YearModels, 1)
	assert.Len(t, doc.FipeValues, 1)
	assert.Empty(t, doc.Models[0].FipeCode)
	assert.Equal(t, "abc123", doc.FipeValues[0].Authentication)
}

func TestConsolidate_SortsPeriodsByParsedDate(t *testing.T) {
	store := NewStore(t.TempDir())

	result := &model.ExtractionResult{
		ReferencePeriods: []model.ReferencePeriod{
			{Period: "12/2023", Code: 319},
			{Period: "02/2024", Code: 321},
			{Period: "01/2024", Code: 320},
		},
	}
	_, err := store.SavePartial(result, 1)
	require.NoError(t, err)

	path, err := store.Consolidate()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc consolidatedDocument
	require.NoError(t, json.Unmarshal(data, &doc))

	require.Len(t, doc.ReferencePeriods, 3)
	assert.Equal(t, "02/2024", doc.ReferencePeriods[0].Period)
	assert.Equal(t, "01/2024", doc.ReferencePeriods[1].Period)
	assert.Equal(t, "12/2023", doc.ReferencePeriods[2].Period)
}

func TestConsolidate_SortsBrandsAndModels(t *testing.T) {
	store := NewStore(t.TempDir())

	honda := &model.Brand{Name: "HONDA", Code: 25, VehicleType: model.VehicleTypeCar}
	fiat := &model.Brand{Name: "FIAT", Code: 21, VehicleType: model.VehicleTypeCar}
	yamaha := &model.Brand{Name: "YAMAHA", Code: 60, VehicleType: model.VehicleTypeBike}

	result := &model.ExtractionResult{
		Brands: []*model.Brand{yamaha, honda, fiat},
		Models: []*model.Model{
			{Name: "CIVIC", Code: 1, Brand: honda, VehicleType: model.VehicleTypeCar},
			{Name: "UNO", Code: 2, Brand: fiat, VehicleType: model.VehicleTypeCar},
			{Name: "ARGO", Code: 3, Brand: fiat, VehicleType: model.VehicleTypeCar},
		},
	}
	_, err := store.SavePartial(result, 1)
	require.NoError(t, err)

	path, err := store.Consolidate()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc consolidatedDocument
	require.NoError(t, json.Unmarshal(data, &doc))

	require.Len(t, doc.Brands, 3)
	assert.Equal(t, "YAMAHA", doc.Brands[0].Name)
	assert.Equal(t, "FIAT", doc.Brands[1].Name)
	assert.Equal(t, "HONDA", doc.Brands[2].Name)

	require.Len(t, doc.Models, 3)
	assert.Equal(t, "ARGO", doc.Models[0].Name)
	assert.Equal(t, "UNO", doc.Models[1].Name)
	assert.Equal(t, "CIVIC", doc.Models[2].Name)
}

func TestConsolidate_NoPartials(t *testing.T) {
	_, err := NewStore(t.TempDir()).Consolidate()
	require.Error(t, err)
}

func TestCleanupPartials(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.SavePartial(&model.ExtractionResult{}, 1)
	require.NoError(t, err)
	_, err = store.SavePartial(&model.ExtractionResult{}, 2)
	require.NoError(t, err)
	_, err = store.Consolidate()
	require.NoError(t, err)

	removed, err := store.CleanupPartials()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// The consolidated artifact stays.
	_, err = os.Stat(filepath.Join(store.Dir(), consolidatedName))
	require.NoError(t, err)

	paths, err := store.ListPartials()
	require.NoError(t, err)
	assert.Empty(t, paths)
}
