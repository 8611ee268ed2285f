package coach

// Speaker identifies who a message belongs to.
type Speaker string

const (
	SpeakerBot  Speaker = "bot"
	SpeakerUser Speaker = "user"
)

// Message is one transcript line. Text may contain <b>, <br> and HTML
// entities; receivers must treat it as display text only.
type Message struct {
	Text    string  `json:"text"`
	Speaker Speaker `json:"speaker"`
}

// Sink receives messages in the order they should be read.
type Sink interface {
	Emit(msg Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Message)

// Emit calls f(msg).
func (f SinkFunc) Emit(msg Message) { f(msg) }

// Choice is a quick reply. Activating it submits Value as if typed.
type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Chooser shows and hides quick replies.
type Chooser interface {
	PresentChoices(choices []Choice)
	ClearChoices()
}

type discard struct{}

func (discard) Emit(Message)            {}
func (discard) PresentChoices([]Choice) {}
func (discard) ClearChoices()           {}

// Recorder is an in-memory Sink and Chooser. It is not safe for concurrent
// use; callers serialize access together with the controller it serves.
type Recorder struct {
	messages []Message
	choices  []Choice
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends msg.
func (r *Recorder) Emit(msg Message) {
	r.messages = append(r.messages, msg)
}

// PresentChoices replaces the current quick replies.
func (r *Recorder) PresentChoices(choices []Choice) {
	r.choices = append([]Choice(nil), choices...)
}

// ClearChoices removes all quick replies.
func (r *Recorder) ClearChoices() {
	r.choices = nil
}

// Messages returns a copy of every message recorded since the last Drain.
func (r *Recorder) Messages() []Message {
	return append([]Message(nil), r.messages...)
}

// Drain returns the recorded messages and forgets them.
func (r *Recorder) Drain() []Message {
	out := r.messages
	r.messages = nil
	return out
}

// Choices returns a copy of the current quick replies.
func (r *Recorder) Choices() []Choice {
	return append([]Choice(nil), r.choices...)
}
