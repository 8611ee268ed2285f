// Package measure implements unit conversion, BMI computation and
// classification. Every function is pure.
package measure

import (
	"math"
	"math/big"
)

// Conversion factors. The inverse conversions divide by the same constant so
// that a value converted in and back out does not drift.
const (
	MetersPerInch       = 0.0254
	KilogramsPerPound   = 0.453592
	InchesPerFoot       = 12
	CentimetersPerMeter = 100
)

// BMI category thresholds. Each bound belongs to the higher category.
const (
	NormalFloor     = 18.5
	OverweightFloor = 25.0
	ObeseFloor      = 30.0
)

// Healthy BMI band used for the target weight range.
const (
	HealthyLowBMI  = 18.5
	HealthyHighBMI = 24.9
)

// InchesToMeters converts inches to meters.
func InchesToMeters(inches float64) float64 {
	return inches * MetersPerInch
}

// MetersToInches converts meters to inches.
func MetersToInches(meters float64) float64 {
	return meters / MetersPerInch
}

// FeetInchesToMeters converts a feet + inches height to meters.
func FeetInchesToMeters(feet, inches float64) float64 {
	return (feet*InchesPerFoot + inches) * MetersPerInch
}

// PoundsToKg converts pounds to kilograms.
func PoundsToKg(pounds float64) float64 {
	return pounds * KilogramsPerPound
}

// KgToPounds converts kilograms to pounds.
func KgToPounds(kg float64) float64 {
	return kg / KilogramsPerPound
}

// CentimetersToMeters converts centimeters to meters.
func CentimetersToMeters(cm float64) float64 {
	return cm / CentimetersPerMeter
}

// MetersToCentimeters converts meters to centimeters.
func MetersToCentimeters(meters float64) float64 {
	return meters * CentimetersPerMeter
}

// BMI returns weightKg / heightMeters².
func BMI(weightKg, heightMeters float64) float64 {
	return weightKg / (heightMeters * heightMeters)
}

// Category is a BMI classification.
type Category string

const (
	Underweight Category = "underweight"
	Normal      Category = "normal"
	Overweight  Category = "overweight"
	Obese       Category = "obese"
)

// Categorize maps a BMI onto its category.
func Categorize(bmi float64) Category {
	switch {
	case bmi < NormalFloor:
		return Underweight
	case bmi < OverweightFloor:
		return Normal
	case bmi < ObeseFloor:
		return Overweight
	default:
		return Obese
	}
}

// ValidHeight reports whether heightMeters squares to a finite positive
// value whose healthy range keeps low < high in kilograms and pounds.
func ValidHeight(heightMeters float64) bool {
	if !finitePositive(heightMeters) {
		return false
	}
	r := HealthyRange(heightMeters)
	return finitePositive(r.LowKg) && finitePositive(KgToPounds(r.HighKg)) && r.LowKg < r.HighKg
}

// ValidBMI reports whether the pair yields a finite positive BMI.
func ValidBMI(weightKg, heightMeters float64) bool {
	return finitePositive(weightKg) && ValidHeight(heightMeters) &&
		finitePositive(BMI(weightKg, heightMeters))
}

func finitePositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// Range is a healthy weight range in kilograms.
type Range struct {
	LowKg  float64
	HighKg float64
}

// HealthyRange returns the weight range that keeps BMI within the healthy band
// for the given height.
func HealthyRange(heightMeters float64) Range {
	sq := heightMeters * heightMeters
	return Range{
		LowKg:  HealthyLowBMI * sq,
		HighKg: HealthyHighBMI * sq,
	}
}

// Position describes where a weight falls relative to a Range.
type Position int

const (
	Within Position = iota
	Below
	Above
)

// Assessment is the result of comparing a weight with a Range.
type Assessment struct {
	Position Position
	// DeltaKg is the weight to gain (Below) or lose (Above). Zero when Within.
	DeltaKg float64
}

// Assess compares weightKg with the range.
func (r Range) Assess(weightKg float64) Assessment {
	switch {
	case weightKg < r.LowKg:
		return Assessment{Position: Below, DeltaKg: r.LowKg - weightKg}
	case weightKg > r.HighKg:
		return Assessment{Position: Above, DeltaKg: weightKg - r.HighKg}
	default:
		return Assessment{Position: Within}
	}
}

// Format1 renders x with one decimal place. The exact binary value is rounded
// with halves away from zero, so 22.25 renders as "22.3".
func Format1(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	}
	return new(big.Rat).SetFloat64(x).FloatString(1)
}
