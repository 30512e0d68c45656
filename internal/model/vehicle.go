package model

import "github.com/rotisserie/eris"

// VehicleType is one of the fixed vehicle categories the FIPE API
// partitions all data by.
type VehicleType string

const (
	VehicleTypeCar   VehicleType = "car"
	VehicleTypeBike  VehicleType = "bike"
	VehicleTypeTruck VehicleType = "truck"
)

// AllVehicleTypes returns every vehicle type in API code order.
func AllVehicleTypes() []VehicleType {
	return []VehicleType{VehicleTypeCar, VehicleTypeBike, VehicleTypeTruck}
}

// Code returns the numeric code the FIPE API uses for this vehicle type.
func (v VehicleType) Code() int {
	switch v {
	case VehicleTypeCar:
		return 1
	case VehicleTypeBike:
		return 2
	case VehicleTypeTruck:
		return 3
	default:
		return 0
	}
}

// ParseVehicleType converts a user-supplied string (English or Portuguese)
// into a VehicleType.
func ParseVehicleType(s string) (VehicleType, error) {
	switch s {
	case "car", "carro":
		return VehicleTypeCar, nil
	case "bike", "moto":
		return VehicleTypeBike, nil
	case "truck", "caminhao", "caminhão":
		return VehicleTypeTruck, nil
	default:
		return "", eris.Errorf("model: invalid vehicle type %q (valid: car, bike, truck)", s)
	}
}
