package scheduling

import "time"

// VehicleCategory classifies a vehicle for inspection validity.
type VehicleCategory string

const (
	CategoryPassengerCar    VehicleCategory = "PASSENGER_CAR"
	CategoryLightCommercial VehicleCategory = "LIGHT_COMMERCIAL"
	CategoryHeavyCommercial VehicleCategory = "HEAVY_COMMERCIAL"
	CategoryBus             VehicleCategory = "BUS"
	CategoryMotorcycle      VehicleCategory = "MOTORCYCLE"
	CategoryATV             VehicleCategory = "ATV"
	CategoryTrailer         VehicleCategory = "TRAILER"
	CategoryOther           VehicleCategory = "OTHER"
)

const (
	specialUseMonths   = 6
	defaultMonths      = 12
	longValidityMonths = 24
	passengerCarMaxAge = 12
)

// ValidityMonths maps a vehicle to the validity of a new inspection certificate.
// Special use (taxi, school or child transport) overrides the category.
func ValidityMonths(category VehicleCategory, vehicleAge int, isSpecialUse bool) int {
	if isSpecialUse {
		return specialUseMonths
	}

	switch category {
	case CategoryLightCommercial:
		return defaultMonths
	case CategoryPassengerCar:
		if vehicleAge <= passengerCarMaxAge {
			return longValidityMonths
		}
		return defaultMonths
	case CategoryMotorcycle, CategoryATV, CategoryTrailer:
		return longValidityMonths
	default:
		return defaultMonths
	}
}

// VehicleAge is referenceYear - manufactureYear, or 0 when the year is unknown
// or lies in the future.
func VehicleAge(manufactureYear, referenceYear int) int {
	if manufactureYear <= 0 || manufactureYear > referenceYear {
		return 0
	}
	return referenceYear - manufactureYear
}

// CertificateExpiry computes the expiry of a certificate issued on issueDate.
// The vehicle age is taken relative to the year of issue, so issuance and the
// estimate from historical appointments agree.
func CertificateExpiry(issueDate time.Time, category VehicleCategory, manufactureYear int, isSpecialUse bool) time.Time {
	issue := DateOnly(issueDate)
	age := VehicleAge(manufactureYear, issue.Year())
	return issue.AddDate(0, ValidityMonths(category, age, isSpecialUse), 0)
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c VehicleCategory) bool {
	switch c {
	case CategoryPassengerCar, CategoryLightCommercial, CategoryHeavyCommercial, CategoryBus,
		CategoryMotorcycle, CategoryATV, CategoryTrailer, CategoryOther:
		return true
	}
	return false
}
