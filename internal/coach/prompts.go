package coach

import (
	"github.com/ashureev/fitcoach/internal/measure"
)

const (
	msgIntro = "Hey! I’m your AI fitness coach 🤖💪<br>" +
		"I’ll grab your height and weight to calculate your BMI, then help you pick a goal and give you a diet + workout plan."
	msgSayHi        = "First, just say <b>hi</b> or <b>hey</b> so we can start."
	msgSayHiAgain   = "Say <b>hi</b> or <b>hey</b> to begin again."
	msgRestarted    = "No problem, we’ll start fresh. 👌"
	msgGreetingBack = "Nice to meet you! 😄<br>" +
		"I’ll calculate your BMI first, then help you decide how to lose weight, build muscle, or get abs."

	msgAskUnits = "Which units do you want to use?<br>" +
		"<b>Imperial</b> (feet/inches &amp; pounds) or <b>Metric</b> (cm &amp; kg)?"
	msgUnitsAgain = "Just tell me which system you prefer:<br>" +
		"<b>Imperial</b> (feet/inches &amp; pounds) or <b>Metric</b> (cm &amp; kg)?"
	msgImperialChosen = "Cool, we’ll use <b>imperial</b> (feet/inches &amp; pounds)."
	msgMetricChosen   = "Nice, we’ll use <b>metric</b> (cm &amp; kg)."
	msgMetricDefault  = "I didn’t see a unit there, so we’ll use <b>metric</b> (cm &amp; kg). " +
		"Type <b>restart</b> if you’d rather use imperial."

	msgAskGoal = "Now, what’s your main goal?<br>" +
		"Do you want to <b>lose weight</b>, <b>build muscle</b>, or <b>get abs</b>?"
	msgAfterPlan = "If you want to tweak anything or run the numbers again, just type <b>restart</b>."

	msgUnclear  = "I couldn’t read that clearly. Please follow this format:<br>"
	msgLooksOff = "Those numbers look off. Double-check and send like:<br>"

	msgBMIMissing = "We haven’t calculated BMI this session. Type <b>restart</b> if you want to go through it again."
	msgDiet       = "Think of your diet as support for the training. Stay mostly on the plans I gave you, " +
		"but we can adjust portion sizes and protein if needed. Type <b>restart</b> to rerun from the top."
	msgThanks   = "Anytime! 💪 Stay consistent. If you want to start over, just type <b>restart</b>."
	msgFallback = "I can help adjust your plan, talk more about diet, training days per week or how long it takes, " +
		"or we can <b>restart</b> and recalc your BMI."
)

var unitChoices = []Choice{
	{Label: "Imperial (ft/in, lbs)", Value: "imperial"},
	{Label: "Metric (cm, kg)", Value: "metric"},
}

var goalChoices = []Choice{
	{Label: "Lose weight", Value: "lose weight"},
	{Label: "Build muscle", Value: "build muscle"},
	{Label: "Get abs", Value: "get abs"},
	{Label: "Maintain", Value: "maintain"},
}

// UnitChoices returns the quick replies offered with the unit question.
func UnitChoices() []Choice { return append([]Choice(nil), unitChoices...) }

// GoalChoices returns the quick replies offered with the goal question.
func GoalChoices() []Choice { return append([]Choice(nil), goalChoices...) }

func heightFormat(u UnitSystem) string {
	if u == Imperial {
		return "Feet: 5<br>Inches: 10"
	}
	return "Height (cm): 175"
}

func weightFormat(u UnitSystem) string {
	if u == Imperial {
		return "Weight (lbs): 170"
	}
	return "Weight (kg): 68"
}

func heightPrompt(u UnitSystem) string {
	if u == Imperial {
		return "What’s your height? Send feet and inches like this:<br>" + heightFormat(u) +
			"<br><br>You can add your weight in the same message too (Weight: 170)."
	}
	return "What’s your height in <b>cm</b>? Send it like this:<br>" + heightFormat(u) +
		"<br><br>You can add your weight in the same message too (Weight (kg): 68)."
}

func weightPrompt(u UnitSystem) string {
	if u == Imperial {
		return "Got it. Now your weight in <b>pounds</b>:<br>" + weightFormat(u)
	}
	return "Got it. Now your weight in <b>kg</b>:<br>" + weightFormat(u)
}

func bmiSummary(bmi float64) string {
	return "Your estimated BMI is <b>" + measure.Format1(bmi) + "</b>, which is considered <b>" +
		string(measure.Categorize(bmi)) + "</b>."
}

func bmiRecall(bmi float64) string {
	return "Your latest BMI is <b>" + measure.Format1(bmi) +
		"</b>. If your height/weight changes, type <b>restart</b> to recalculate."
}

// healthyRangeText describes the healthy weight range for the height. In
// imperial mode the kilogram bounds are shown in pounds.
func healthyRangeText(u UnitSystem, heightM, weightKg float64) string {
	r := measure.HealthyRange(heightM)
	show := func(kg float64) string {
		if u == Imperial {
			return measure.Format1(measure.KgToPounds(kg)) + " lbs"
		}
		return measure.Format1(kg) + " kg"
	}

	msg := "For your height, a healthy BMI range (18.5–24.9) means a weight between " +
		"<b>" + show(r.LowKg) + "</b> and <b>" + show(r.HighKg) + "</b>."

	a := r.Assess(weightKg)
	switch a.Position {
	case measure.Below:
		msg += "<br>You’d need to gain about <b>" + show(a.DeltaKg) + "</b> to reach the lower end."
	case measure.Above:
		msg += "<br>You’d need to lose about <b>" + show(a.DeltaKg) + "</b> to reach the upper end."
	default:
		msg += "<br>You’re already in the healthy range — main goal is to maintain and build quality muscle."
	}
	return msg
}
