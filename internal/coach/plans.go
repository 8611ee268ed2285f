package coach

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/ashureev/fitcoach/internal/measure"
	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var plansYAML []byte

// Block is one recommendation text: a title, an optional personalized
// preamble and the fixed body lines.
type Block struct {
	Title    string   `yaml:"title"`
	Preamble string   `yaml:"preamble"`
	Lines    []string `yaml:"lines"`
}

// Plan is the fixed recommendation content for one goal.
type Plan struct {
	Goal      Goal   `yaml:"-"`
	DietText  Block  `yaml:"diet"`
	Training  Block  `yaml:"workout"`
	Frequency string `yaml:"frequency"`
	Timeline  string `yaml:"timeline"`
}

var plans = mustLoadPlans(plansYAML)

func mustLoadPlans(data []byte) map[Goal]Plan {
	p, err := loadPlans(data)
	if err != nil {
		panic("coach: " + err.Error())
	}
	return p
}

func loadPlans(data []byte) (map[Goal]Plan, error) {
	var raw map[string]Plan
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode plans: %w", err)
	}

	out := make(map[Goal]Plan, len(raw))
	for name, p := range raw {
		g, err := ParseGoal(name)
		if err != nil {
			return nil, fmt.Errorf("plans: %w", err)
		}
		if p.DietText.Title == "" || p.Training.Title == "" {
			return nil, fmt.Errorf("plans: %s is missing a title", name)
		}
		if len(p.DietText.Lines) == 0 || len(p.Training.Lines) == 0 {
			return nil, fmt.Errorf("plans: %s has an empty block", name)
		}
		p.Goal = g
		out[g] = p
	}
	for _, g := range Goals {
		if _, ok := out[g]; !ok {
			return nil, fmt.Errorf("plans: no plan for goal %s", g)
		}
	}
	return out, nil
}

// PlanFor returns the plan for g. An unset goal gets the maintenance plan.
func PlanFor(g Goal) Plan {
	if p, ok := plans[g]; ok {
		return p
	}
	return plans[GoalMaintain]
}

// Diet renders the diet block. When bmi is positive the preamble is filled in
// with the rounded BMI and its category.
func (p Plan) Diet(bmi float64) string {
	var b strings.Builder
	b.WriteString(p.DietText.Title)
	b.WriteString("<br>")
	if bmi > 0 && p.DietText.Preamble != "" {
		r := strings.NewReplacer(
			"{bmi}", measure.Format1(bmi),
			"{category}", string(measure.Categorize(bmi)),
		)
		b.WriteString(r.Replace(p.DietText.Preamble))
		b.WriteString("<br><br>")
	}
	b.WriteString(strings.Join(p.DietText.Lines, "<br>"))
	return b.String()
}

// Workout renders the workout block.
func (p Plan) Workout() string {
	return p.Training.Title + "<br>" + strings.Join(p.Training.Lines, "<br>")
}
