package api

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/fitcoach/internal/measure"
	"github.com/go-chi/chi/v5"
)

func TestComputeBMI(t *testing.T) {
	tests := []struct {
		name     string
		req      BMIRequest
		display  string
		category measure.Category
		position string
		unit     string
	}{
		{"metric normal", BMIRequest{Units: "metric", HeightCm: 175, Weight: 70}, "22.9", measure.Normal, "within", "kg"},
		{"metric above", BMIRequest{Units: "Metric", HeightCm: 170, Weight: 95}, "32.9", measure.Obese, "above", "kg"},
		{"imperial", BMIRequest{Units: "imperial", Feet: 5, Inches: 10, Weight: 170}, "24.4", measure.Normal, "within", "lbs"},
		{"imperial below", BMIRequest{Units: "imperial", Feet: 6, Weight: 120}, "16.3", measure.Underweight, "below", "lbs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBMI(tt.req)
			if err != nil {
				t.Fatalf("ComputeBMI: %v", err)
			}
			if got.BMIDisplay != tt.display || got.Category != tt.category || got.Position != tt.position {
				t.Fatalf("got %s/%s/%s, want %s/%s/%s",
					got.BMIDisplay, got.Category, got.Position, tt.display, tt.category, tt.position)
			}
			if got.HealthyRange.Unit != tt.unit || got.HealthyRange.Low >= got.HealthyRange.High {
				t.Fatalf("range = %+v", got.HealthyRange)
			}
			if (tt.position == "within") != (got.Delta == 0) {
				t.Fatalf("delta = %v for position %s", got.Delta, got.Position)
			}
		})
	}
}

func TestComputeBMIImperialRange(t *testing.T) {
	got, err := ComputeBMI(BMIRequest{Units: "imperial", Feet: 5, Inches: 10, Weight: 170})
	if err != nil {
		t.Fatal(err)
	}
	rng := measure.HealthyRange(measure.FeetInchesToMeters(5, 10))
	if math.Abs(got.HealthyRange.Low-measure.KgToPounds(rng.LowKg)) > 1e-9 {
		t.Fatalf("low = %v", got.HealthyRange.Low)
	}
	if math.Abs(got.WeightKg-measure.PoundsToKg(170)) > 1e-9 {
		t.Fatalf("weight = %v", got.WeightKg)
	}
}

func TestComputeBMIRejects(t *testing.T) {
	tests := []struct {
		name string
		req  BMIRequest
		want error
	}{
		{"no units", BMIRequest{HeightCm: 170, Weight: 70}, errUnknownUnits},
		{"zero height", BMIRequest{Units: "metric", Weight: 70}, errInvalidHeight},
		{"zero imperial height", BMIRequest{Units: "imperial", Weight: 150}, errInvalidHeight},
		{"negative inches", BMIRequest{Units: "imperial", Feet: 5, Inches: -1, Weight: 150}, errNegativeLength},
		{"zero weight", BMIRequest{Units: "metric", HeightCm: 170}, errInvalidWeight},
		{"negative weight", BMIRequest{Units: "imperial", Feet: 5, Weight: -10}, errInvalidWeight},
		{"height squares to zero", BMIRequest{Units: "metric", HeightCm: 1e-200, Weight: 70}, errInvalidHeight},
		{"height squares to infinity", BMIRequest{Units: "metric", HeightCm: 1e200, Weight: 70}, errInvalidHeight},
		{"bmi overflows", BMIRequest{Units: "metric", HeightCm: 1e-4, Weight: 1e300}, errNoFiniteBMI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ComputeBMI(tt.req); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBMIEndpoint(t *testing.T) {
	r := chi.NewRouter()
	BMIHandler{}.RegisterRoutes(r)

	tests := []struct {
		body   string
		status int
	}{
		{`{"units":"metric","height_cm":175,"weight":70}`, http.StatusOK},
		{`{"units":"metric","height_cm":0,"weight":70}`, http.StatusUnprocessableEntity},
		{`{"units":"metric","stones":12}`, http.StatusBadRequest},
		{`{"units":"metric","height_cm":1e-200,"weight":70}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/bmi", bytes.NewBufferString(tt.body)))
		if w.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.body, w.Code, tt.status)
		}
	}
}
