package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfipe/fipe-harvester/internal/model"
)

func TestValidatePeriod(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"", true},
		{"01/2024", true},
		{"12/2000", true},
		{"06/2100", true},
		{"13/2024", false},
		{"00/2024", false},
		{"01/1999", false},
		{"01/2101", false},
		{"2024-01", false},
		{"janeiro/2024", false},
		{"01/2024/05", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := validatePeriod("start", tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseVehicleTypes(t *testing.T) {
	types, err := parseVehicleTypes("")
	require.NoError(t, err)
	assert.Equal(t, model.AllVehicleTypes(), types)

	types, err = parseVehicleTypes("car, bike")
	require.NoError(t, err)
	assert.Equal(t, []model.VehicleType{model.VehicleTypeCar, model.VehicleTypeBike}, types)

	_, err = parseVehicleTypes("car,plane")
	require.Error(t, err)
}

func TestPeriodRange(t *testing.T) {
	assert.Equal(t, "all", periodRange("", ""))
	assert.Equal(t, "01/2024..", periodRange("01/2024", ""))
	assert.Equal(t, "..03/2024", periodRange("", "03/2024"))
	assert.Equal(t, "01/2024..03/2024", periodRange("01/2024", "03/2024"))
}
