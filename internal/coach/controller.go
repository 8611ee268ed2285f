package coach

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/ashureev/fitcoach/internal/measure"
)

// Outcome classifies what a turn did.
type Outcome string

const (
	OutcomeAdvanced Outcome = "advanced"
	OutcomeReprompt Outcome = "reprompt"
	OutcomeAnswered Outcome = "answered"
	OutcomeRestart  Outcome = "restart"
	OutcomeStart    Outcome = "start"
)

// TurnEvent describes one processed turn for observers.
type TurnEvent struct {
	From    Step
	To      Step
	Outcome Outcome
	// Reason names the re-prompt cause: "missing_number", "invalid_number"
	// or "unrecognized_units". Empty otherwise.
	Reason   string
	Goal     Goal
	Intent   FollowUpIntent
	Category measure.Category
}

// Observer is notified after every turn.
type Observer interface {
	ObserveTurn(ev TurnEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(TurnEvent)

// ObserveTurn calls f(ev).
func (f ObserverFunc) ObserveTurn(ev TurnEvent) { f(ev) }

// Option configures a Controller.
type Option func(*Controller)

// WithGreeting selects whether the dialogue opens with the greeting step.
func WithGreeting(enabled bool) Option {
	return func(c *Controller) { c.greeting = enabled }
}

// WithChooser sets the quick-reply collaborator.
func WithChooser(ch Chooser) Option {
	return func(c *Controller) {
		if ch != nil {
			c.chooser = ch
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver registers a turn observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observers = append(c.observers, o)
		}
	}
}

// Controller drives one conversation. It owns its Session exclusively and
// processes one utterance at a time; it is not safe for concurrent use.
type Controller struct {
	session   Session
	sink      Sink
	chooser   Chooser
	greeting  bool
	logger    *slog.Logger
	observers []Observer
}

// New creates a controller that writes to sink. The dialogue opens with the
// greeting step unless WithGreeting(false) is given.
func New(sink Sink, opts ...Option) *Controller {
	if sink == nil {
		sink = discard{}
	}
	c := &Controller{
		sink:     sink,
		chooser:  discard{},
		greeting: true,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.session = newSession(c.initialStep())
	return c
}

// Session returns a copy of the current session.
func (c *Controller) Session() Session {
	return c.session
}

func (c *Controller) initialStep() Step {
	if c.greeting {
		return StepGreeting
	}
	return StepUnitSelect
}

// Start emits the opening messages of a new conversation.
func (c *Controller) Start() {
	c.bot(msgIntro)
	if c.greeting {
		c.chooser.ClearChoices()
		c.bot(msgSayHi)
	} else {
		c.askUnits()
	}
	c.observe(TurnEvent{From: c.session.Step, To: c.session.Step, Outcome: OutcomeStart})
}

// Restart discards the session and re-emits the opening prompts.
func (c *Controller) Restart() {
	from := c.session.Step
	c.session = newSession(c.initialStep())
	c.bot(msgRestarted)
	if c.greeting {
		c.chooser.ClearChoices()
		c.bot(msgSayHiAgain)
	} else {
		c.askUnits()
	}
	c.observe(TurnEvent{From: from, To: c.session.Step, Outcome: OutcomeRestart})
}

// SubmitUtterance processes one user turn. Blank text is ignored. Otherwise
// the trimmed text is echoed as a user message before any reply.
func (c *Controller) SubmitUtterance(text string) {
	input := strings.TrimSpace(text)
	if input == "" {
		return
	}
	lower := strings.ToLower(input)
	c.sink.Emit(Message{Text: input, Speaker: SpeakerUser})

	if IsRestart(lower) {
		c.Restart()
		return
	}

	from := c.session.Step
	var ev TurnEvent
	switch from {
	case StepGreeting:
		ev = c.handleGreeting()
	case StepUnitSelect:
		ev = c.handleUnits(lower)
	case StepHeightInput:
		ev = c.handleHeight(input)
	case StepWeightInput:
		ev = c.handleWeight(input)
	case StepGoalInput:
		ev = c.handleGoal(lower)
	case StepFollowUp:
		ev = c.handleFollowUp(lower)
	default:
		c.logger.Error("coach: unknown step, restarting", "step", from)
		c.Restart()
		return
	}
	ev.From = from
	ev.To = c.session.Step
	c.observe(ev)
}

func (c *Controller) handleGreeting() TurnEvent {
	c.bot(msgGreetingBack)
	c.session.Step = StepUnitSelect
	c.askUnits()
	return TurnEvent{Outcome: OutcomeAdvanced}
}

func (c *Controller) handleUnits(lower string) TurnEvent {
	units, ok := ClassifyUnits(lower)
	switch {
	case ok:
		c.chooser.ClearChoices()
		c.session.Units = units
		c.session.Step = StepHeightInput
		chosen := msgMetricChosen
		if units == Imperial {
			chosen = msgImperialChosen
		}
		c.bot(chosen + "<br><br>" + heightPrompt(units))
		return TurnEvent{Outcome: OutcomeAdvanced}

	case CountNumbers(lower) > 0:
		c.chooser.ClearChoices()
		c.session.Units = Metric
		c.session.Step = StepHeightInput
		c.bot(msgMetricDefault + "<br><br>" + heightPrompt(Metric))
		return TurnEvent{Outcome: OutcomeAdvanced}

	default:
		c.bot(msgUnitsAgain)
		c.chooser.PresentChoices(unitChoices)
		return TurnEvent{Outcome: OutcomeReprompt, Reason: "unrecognized_units"}
	}
}

// resolvedUnits returns the session's unit system, defaulting to metric when
// it was never chosen. The default is not stored until the turn succeeds.
func (c *Controller) resolvedUnits() UnitSystem {
	if c.session.Units != UnitsUnset {
		return c.session.Units
	}
	c.logger.Warn("coach: measurement step without unit system, assuming metric",
		"step", c.session.Step, "error", ErrUnresolvedUnitSystem)
	return Metric
}

func (c *Controller) handleHeight(input string) TurnEvent {
	units := c.resolvedUnits()

	need := 1
	if units == Imperial {
		need = 2
	}
	combined := CountNumbers(input) > need

	heightM, err := parseHeight(input, units)
	if err == nil {
		err = requireComputableHeight(heightM)
	}
	var weightKg float64
	if err == nil && combined {
		weightKg, err = parseWeight(input, units, need)
		if err == nil {
			err = requireComputableBMI(heightM, weightKg)
		}
	}
	if err != nil {
		c.reprompt(err, heightFormat(units))
		return repromptEvent(err)
	}

	c.session.Units = units
	c.session.setHeight(heightM)
	if !combined {
		c.session.Step = StepWeightInput
		c.bot(weightPrompt(units))
		return TurnEvent{Outcome: OutcomeAdvanced}
	}
	c.session.setWeight(weightKg)
	return c.presentBMI()
}

func (c *Controller) handleWeight(input string) TurnEvent {
	units := c.resolvedUnits()

	weightKg, err := parseWeight(input, units, 0)
	if h, ok := c.session.Height(); err == nil && ok {
		err = requireComputableBMI(h, weightKg)
	}
	if err != nil {
		c.reprompt(err, weightFormat(units))
		return repromptEvent(err)
	}

	c.session.Units = units
	c.session.setWeight(weightKg)
	return c.presentBMI()
}

func (c *Controller) presentBMI() TurnEvent {
	s := &c.session
	s.Step = StepGoalInput
	c.bot(bmiSummary(s.bmi))
	c.bot(healthyRangeText(s.Units, s.heightM, s.weightKg))
	c.bot(msgAskGoal)
	c.chooser.PresentChoices(goalChoices)

	cat, _ := s.Category()
	return TurnEvent{Outcome: OutcomeAdvanced, Category: cat}
}

func (c *Controller) handleGoal(lower string) TurnEvent {
	goal, _ := ClassifyGoal(lower)
	c.session.Goal = goal
	c.session.Step = StepFollowUp
	c.chooser.ClearChoices()
	c.sendPlan(goal)
	c.bot(msgAfterPlan)
	return TurnEvent{Outcome: OutcomeAdvanced, Goal: goal}
}

func (c *Controller) handleFollowUp(lower string) TurnEvent {
	intent := ClassifyFollowUp(lower)
	ev := TurnEvent{Outcome: OutcomeAnswered, Intent: intent}
	plan := PlanFor(c.session.Goal)

	switch intent {
	case IntentBMI:
		if bmi, ok := c.session.BMI(); ok {
			c.bot(bmiRecall(bmi))
		} else {
			c.bot(msgBMIMissing)
		}
	case IntentDiet:
		c.bot(msgDiet)
	case IntentFrequency:
		c.bot(plan.Frequency)
	case IntentTimeline:
		c.bot(plan.Timeline)
	case IntentThanks:
		c.bot(msgThanks)
	case IntentGoal:
		goal, _ := ClassifyGoal(lower)
		c.session.Goal = goal
		c.sendPlan(goal)
		ev.Goal = goal
	default:
		c.bot(msgFallback)
	}
	return ev
}

func (c *Controller) sendPlan(goal Goal) {
	plan := PlanFor(goal)
	c.bot(plan.Diet(c.session.bmi))
	c.bot(plan.Workout())
}

func (c *Controller) askUnits() {
	c.bot(msgAskUnits)
	c.chooser.PresentChoices(unitChoices)
}

func (c *Controller) reprompt(err error, format string) {
	c.logger.Debug("coach: rejected input", "step", c.session.Step, "error", err)
	if errors.Is(err, ErrInvalidNumericValue) {
		c.bot(msgLooksOff + format)
		return
	}
	c.bot(msgUnclear + format)
}

func repromptEvent(err error) TurnEvent {
	reason := "missing_number"
	if errors.Is(err, ErrInvalidNumericValue) {
		reason = "invalid_number"
	}
	return TurnEvent{Outcome: OutcomeReprompt, Reason: reason}
}

func (c *Controller) bot(text string) {
	c.sink.Emit(Message{Text: text, Speaker: SpeakerBot})
}

func (c *Controller) observe(ev TurnEvent) {
	c.logger.Debug("coach: turn",
		"from", ev.From, "to", ev.To, "outcome", ev.Outcome, "reason", ev.Reason)
	for _, o := range c.observers {
		o.ObserveTurn(ev)
	}
}

// parseHeight reads a height in meters from the first numbers of input.
func parseHeight(input string, units UnitSystem) (float64, error) {
	if units == Imperial {
		nums, err := ExtractNumbers(input, 2)
		if err != nil {
			return 0, err
		}
		if err := requirePositive("feet", nums[0]); err != nil {
			return 0, err
		}
		if err := requireNonNegative("inches", nums[1]); err != nil {
			return 0, err
		}
		return measure.FeetInchesToMeters(nums[0], nums[1]), nil
	}

	nums, err := ExtractNumbers(input, 1)
	if err != nil {
		return 0, err
	}
	if err := requirePositive("height", nums[0]); err != nil {
		return 0, err
	}
	return measure.CentimetersToMeters(nums[0]), nil
}

// parseWeight reads a weight in kilograms from the number at index skip.
func parseWeight(input string, units UnitSystem, skip int) (float64, error) {
	nums, err := ExtractNumbers(input, skip+1)
	if err != nil {
		return 0, err
	}
	w := nums[skip]
	if err := requirePositive("weight", w); err != nil {
		return 0, err
	}
	if units == Imperial {
		return measure.PoundsToKg(w), nil
	}
	return w, nil
}
