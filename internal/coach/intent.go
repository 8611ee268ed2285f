package coach

import "strings"

// FollowUpIntent is the routed meaning of a message after the plan was sent.
type FollowUpIntent int

const (
	IntentFallback FollowUpIntent = iota
	IntentBMI
	IntentDiet
	IntentFrequency
	IntentTimeline
	IntentThanks
	IntentGoal
)

func (i FollowUpIntent) String() string {
	switch i {
	case IntentBMI:
		return "bmi"
	case IntentDiet:
		return "diet"
	case IntentFrequency:
		return "frequency"
	case IntentTimeline:
		return "timeline"
	case IntentThanks:
		return "thanks"
	case IntentGoal:
		return "goal"
	default:
		return "fallback"
	}
}

// Tables are evaluated top to bottom; the first row with a matching keyword
// wins. Matching is plain substring containment on lowercased text.

var restartKeywords = []string{"restart", "start over", "reset"}

var unitRules = []struct {
	units    UnitSystem
	keywords []string
}{
	{Imperial, []string{"imperial", "feet", "ft", "inch", "lb", "pound"}},
	{Metric, []string{"metric", "cm", "kg", "centimet", "kilo"}},
}

var goalRules = []struct {
	goal     Goal
	keywords []string
}{
	{GoalLose, []string{"lose", "fat", "cut", "weight", "slim"}},
	{GoalMuscle, []string{"muscle", "bulk", "mass", "strength", "build", "gain"}},
	{GoalAbs, []string{"abs", "core", "six"}},
	{GoalMaintain, []string{"maintain", "toning"}},
}

var followUpRules = []struct {
	intent   FollowUpIntent
	keywords []string
}{
	{IntentBMI, []string{"bmi"}},
	{IntentDiet, []string{"diet", "food", "eat", "meal"}},
	{IntentFrequency, []string{"how many days", "how often"}},
	{IntentTimeline, []string{"how long", "how fast"}},
	{IntentThanks, []string{"thanks", "thank you"}},
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// IsRestart reports whether lower asks to start over.
func IsRestart(lower string) bool {
	return containsAny(lower, restartKeywords)
}

// ClassifyUnits picks a unit system from keywords.
func ClassifyUnits(lower string) (UnitSystem, bool) {
	for _, r := range unitRules {
		if containsAny(lower, r.keywords) {
			return r.units, true
		}
	}
	return UnitsUnset, false
}

// ClassifyGoal maps lower onto a goal. With no keyword it returns
// GoalMaintain and false; an explicit "maintain" returns true.
func ClassifyGoal(lower string) (Goal, bool) {
	for _, r := range goalRules {
		if containsAny(lower, r.keywords) {
			return r.goal, true
		}
	}
	return GoalMaintain, false
}

// ClassifyFollowUp routes a post-plan message.
func ClassifyFollowUp(lower string) FollowUpIntent {
	for _, r := range followUpRules {
		if containsAny(lower, r.keywords) {
			return r.intent
		}
	}
	if _, ok := ClassifyGoal(lower); ok {
		return IntentGoal
	}
	return IntentFallback
}
