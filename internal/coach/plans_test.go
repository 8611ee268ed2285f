package coach

import (
	"strings"
	"testing"
)

func TestEveryGoalHasAPlan(t *testing.T) {
	for _, g := range Goals {
		p := PlanFor(g)
		if p.Goal != g {
			t.Errorf("PlanFor(%v).Goal = %v", g, p.Goal)
		}
		if p.Frequency == "" || p.Timeline == "" {
			t.Errorf("%v plan lacks frequency or timeline", g)
		}
	}
	if PlanFor(GoalUnset).Goal != GoalMaintain {
		t.Fatal("unset goal should fall back to the maintenance plan")
	}
}

func TestDietPreamble(t *testing.T) {
	p := PlanFor(GoalLose)

	withBMI := p.Diet(22.857)
	if !strings.Contains(withBMI, "<b>22.9</b>, normal") {
		t.Fatalf("preamble not personalized: %q", withBMI)
	}
	if !strings.HasPrefix(withBMI, p.DietText.Title+"<br>") {
		t.Fatalf("diet should start with its title: %q", withBMI)
	}

	without := p.Diet(0)
	if strings.Contains(without, "{bmi}") || strings.Contains(without, "Based on your BMI") {
		t.Fatalf("preamble rendered without a BMI: %q", without)
	}
	if !strings.Contains(without, "<br><br><b>Non-vegetarian option:</b>") {
		t.Fatalf("empty line should become a paragraph break: %q", without)
	}
}

func TestWorkoutRendering(t *testing.T) {
	p := PlanFor(GoalAbs)
	got := p.Workout()
	want := p.Training.Title + "<br>" + strings.Join(p.Training.Lines, "<br>")
	if got != want {
		t.Fatalf("Workout() = %q, want %q", got, want)
	}
}

func TestLoadPlansRejectsIncompleteTables(t *testing.T) {
	tests := map[string]string{
		"unknown goal": `
fly:
  diet: {title: "x", lines: ["a"]}
  workout: {title: "y", lines: ["b"]}
`,
		"missing goals": `
lose:
  diet: {title: "x", lines: ["a"]}
  workout: {title: "y", lines: ["b"]}
`,
		"empty block": `
lose:
  diet: {title: "x"}
  workout: {title: "y", lines: ["b"]}
`,
		"not yaml": "lose: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadPlans([]byte(doc)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
