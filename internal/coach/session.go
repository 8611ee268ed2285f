// Package coach implements the scripted BMI coaching dialogue: the session
// record, the turn-by-turn state machine, keyword intent tables and the
// recommendation plans.
package coach

import (
	"fmt"

	"github.com/ashureev/fitcoach/internal/measure"
)

// Step is a position in the scripted dialogue.
type Step int

const (
	StepGreeting Step = iota
	StepUnitSelect
	StepHeightInput
	StepWeightInput
	StepGoalInput
	StepFollowUp
)

var stepNames = [...]string{
	StepGreeting:    "greeting",
	StepUnitSelect:  "unitSelect",
	StepHeightInput: "heightInput",
	StepWeightInput: "weightInput",
	StepGoalInput:   "goalInput",
	StepFollowUp:    "followUp",
}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnitSystem is the measurement system chosen by the user.
type UnitSystem int

const (
	UnitsUnset UnitSystem = iota
	Metric
	Imperial
)

func (u UnitSystem) String() string {
	switch u {
	case Metric:
		return "metric"
	case Imperial:
		return "imperial"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (u UnitSystem) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// Goal is the user's training goal.
type Goal int

const (
	GoalUnset Goal = iota
	GoalLose
	GoalMuscle
	GoalAbs
	GoalMaintain
)

// Goals lists every settable goal in classification order.
var Goals = []Goal{GoalLose, GoalMuscle, GoalAbs, GoalMaintain}

func (g Goal) String() string {
	switch g {
	case GoalLose:
		return "lose"
	case GoalMuscle:
		return "muscle"
	case GoalAbs:
		return "abs"
	case GoalMaintain:
		return "maintain"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g Goal) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// ParseGoal maps a goal name back to its Goal.
func ParseGoal(name string) (Goal, error) {
	for _, g := range Goals {
		if g.String() == name {
			return g, nil
		}
	}
	return GoalUnset, fmt.Errorf("unknown goal %q", name)
}

// Session is the per-conversation record. It is a plain value: copies never
// share state. Height, weight and BMI are zero while undefined and strictly
// positive once set; BMI is defined exactly when both measurements are.
type Session struct {
	Step  Step
	Units UnitSystem
	Goal  Goal

	heightM  float64
	weightKg float64
	bmi      float64
}

func newSession(initial Step) Session {
	return Session{Step: initial}
}

// Height returns the height in meters.
func (s Session) Height() (float64, bool) {
	return s.heightM, s.heightM > 0
}

// Weight returns the weight in kilograms.
func (s Session) Weight() (float64, bool) {
	return s.weightKg, s.weightKg > 0
}

// BMI returns the last computed BMI.
func (s Session) BMI() (float64, bool) {
	return s.bmi, s.bmi > 0
}

// Category returns the BMI category when BMI is defined.
func (s Session) Category() (measure.Category, bool) {
	if s.bmi <= 0 {
		return "", false
	}
	return measure.Categorize(s.bmi), true
}

func (s *Session) setHeight(m float64) {
	s.heightM = m
	s.recompute()
}

func (s *Session) setWeight(kg float64) {
	s.weightKg = kg
	s.recompute()
}

func (s *Session) recompute() {
	if s.heightM > 0 && s.weightKg > 0 {
		s.bmi = measure.BMI(s.weightKg, s.heightM)
		return
	}
	s.bmi = 0
}
