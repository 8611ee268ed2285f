package api

import (
	"errors"
	"math"
	"net/http"
	"strings"

	"github.com/ashureev/fitcoach/internal/measure"
	"github.com/go-chi/chi/v5"
)

// BMIRequest is a one-shot measurement. Metric requests use HeightCm and a
// weight in kilograms; imperial requests use Feet and Inches and a weight in
// pounds.
type BMIRequest struct {
	Units    string  `json:"units"`
	HeightCm float64 `json:"height_cm,omitempty"`
	Feet     float64 `json:"feet,omitempty"`
	Inches   float64 `json:"inches,omitempty"`
	Weight   float64 `json:"weight"`
}

// WeightRange is the healthy range expressed in the request's weight unit.
type WeightRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
	Unit string  `json:"unit"`
}

// BMIResponse is the computed measurement.
type BMIResponse struct {
	Units        string           `json:"units"`
	HeightM      float64          `json:"height_m"`
	WeightKg     float64          `json:"weight_kg"`
	BMI          float64          `json:"bmi"`
	BMIDisplay   string           `json:"bmi_display"`
	Category     measure.Category `json:"category"`
	HealthyRange WeightRange      `json:"healthy_range"`
	// Position is "within", "below" or "above" the healthy range.
	Position string  `json:"position"`
	Delta    float64 `json:"delta,omitempty"`
}

var (
	errUnknownUnits   = errors.New(`units must be "metric" or "imperial"`)
	errInvalidHeight  = errors.New("height must be a positive number")
	errInvalidWeight  = errors.New("weight must be a positive number")
	errNegativeLength = errors.New("feet and inches cannot be negative")
	errNoFiniteBMI    = errors.New("height and weight do not give a finite BMI")
)

// ComputeBMI converts the request to SI units and evaluates it.
func ComputeBMI(req BMIRequest) (BMIResponse, error) {
	units := strings.ToLower(strings.TrimSpace(req.Units))

	var heightM, weightKg float64
	var toUnit func(kg float64) float64
	var unit string

	switch units {
	case "metric":
		if !positive(req.HeightCm) {
			return BMIResponse{}, errInvalidHeight
		}
		heightM = measure.CentimetersToMeters(req.HeightCm)
		weightKg = req.Weight
		toUnit, unit = func(kg float64) float64 { return kg }, "kg"
	case "imperial":
		if req.Feet < 0 || req.Inches < 0 {
			return BMIResponse{}, errNegativeLength
		}
		heightM = measure.FeetInchesToMeters(req.Feet, req.Inches)
		if !positive(heightM) {
			return BMIResponse{}, errInvalidHeight
		}
		weightKg = measure.PoundsToKg(req.Weight)
		toUnit, unit = measure.KgToPounds, "lbs"
	default:
		return BMIResponse{}, errUnknownUnits
	}
	if !positive(req.Weight) {
		return BMIResponse{}, errInvalidWeight
	}
	if !measure.ValidHeight(heightM) {
		return BMIResponse{}, errInvalidHeight
	}
	if !measure.ValidBMI(weightKg, heightM) {
		return BMIResponse{}, errNoFiniteBMI
	}

	bmi := measure.BMI(weightKg, heightM)
	rng := measure.HealthyRange(heightM)
	assessment := rng.Assess(weightKg)

	resp := BMIResponse{
		Units:      units,
		HeightM:    heightM,
		WeightKg:   weightKg,
		BMI:        bmi,
		BMIDisplay: measure.Format1(bmi),
		Category:   measure.Categorize(bmi),
		HealthyRange: WeightRange{
			Low:  toUnit(rng.LowKg),
			High: toUnit(rng.HighKg),
			Unit: unit,
		},
	}
	switch assessment.Position {
	case measure.Below:
		resp.Position = "below"
		resp.Delta = toUnit(assessment.DeltaKg)
	case measure.Above:
		resp.Position = "above"
		resp.Delta = toUnit(assessment.DeltaKg)
	default:
		resp.Position = "within"
	}
	return resp, nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// BMIHandler serves stateless measurements.
type BMIHandler struct{}

// RegisterRoutes registers the BMI route.
func (h BMIHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/bmi", h.Compute)
}

// Compute evaluates a BMIRequest body.
func (BMIHandler) Compute(w http.ResponseWriter, r *http.Request) {
	var req BMIRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := ComputeBMI(req)
	if err != nil {
		Error(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	JSON(w, http.StatusOK, resp)
}
