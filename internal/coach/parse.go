package coach

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/ashureev/fitcoach/internal/measure"
)

// Input errors. They never leave the controller; each one becomes a re-prompt.
var (
	ErrMissingNumericInput  = errors.New("missing numeric input")
	ErrInvalidNumericValue  = errors.New("invalid numeric value")
	ErrUnresolvedUnitSystem = errors.New("unit system not resolved")
)

var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// CountNumbers reports how many numbers text contains.
func CountNumbers(text string) int {
	return len(numberPattern.FindAllStringIndex(text, -1))
}

// ExtractNumbers returns the first n numbers in text, left to right.
func ExtractNumbers(text string, n int) ([]float64, error) {
	raw := numberPattern.FindAllString(text, n)
	if len(raw) < n {
		return nil, fmt.Errorf("%w: want %d numbers, found %d", ErrMissingNumericInput, n, len(raw))
	}

	nums := make([]float64, n)
	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				return nil, fmt.Errorf("%w: %q out of range", ErrInvalidNumericValue, s)
			}
			return nil, fmt.Errorf("%w: %q: %v", ErrMissingNumericInput, s, err)
		}
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: %q is not a number", ErrMissingNumericInput, s)
		}
		nums[i] = v
	}
	return nums, nil
}

func requirePositive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be > 0, got %v", ErrInvalidNumericValue, name, v)
	}
	return nil
}

func requireNonNegative(name string, v float64) error {
	if !(v >= 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be >= 0, got %v", ErrInvalidNumericValue, name, v)
	}
	return nil
}

func requireComputableHeight(heightM float64) error {
	if !measure.ValidHeight(heightM) {
		return fmt.Errorf("%w: height %v m cannot produce a BMI", ErrInvalidNumericValue, heightM)
	}
	return nil
}

func requireComputableBMI(heightM, weightKg float64) error {
	if !measure.ValidBMI(weightKg, heightM) {
		return fmt.Errorf("%w: %v kg at %v m gives no finite BMI", ErrInvalidNumericValue, weightKg, heightM)
	}
	return nil
}
