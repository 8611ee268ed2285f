package main

import (
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ashureev/fitcoach/internal/coach"
	"golang.org/x/term"
)

const (
	ansiBold  = "\x1b[1m"
	ansiReset = "\x1b[0m"
)

var (
	breakTag = regexp.MustCompile(`(?i)<br\s*/?>`)
	boldTag  = regexp.MustCompile(`(?is)<b>(.*?)</b>`)
	anyTag   = regexp.MustCompile(`<[^>]+>`)
)

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// renderMarkup turns message markup into terminal text. Bold spans become
// ANSI bold when ansi is set and plain text otherwise.
func renderMarkup(text string, ansi bool) string {
	text = breakTag.ReplaceAllString(text, "\n")
	if ansi {
		text = boldTag.ReplaceAllString(text, ansiBold+"$1"+ansiReset)
	} else {
		text = boldTag.ReplaceAllString(text, "$1")
	}
	text = anyTag.ReplaceAllString(text, "")
	return html.UnescapeString(text)
}

// renderChoices numbers quick replies on one line.
func renderChoices(choices []coach.Choice) string {
	parts := make([]string, len(choices))
	for i, c := range choices {
		parts[i] = fmt.Sprintf("[%d] %s", i+1, c.Label)
	}
	return strings.Join(parts, "  ")
}

// terminalSink prints bot messages and keeps the current quick replies.
type terminalSink struct {
	out     io.Writer
	ansi    bool
	choices []coach.Choice
}

func (s *terminalSink) Emit(msg coach.Message) {
	if msg.Speaker != coach.SpeakerBot {
		return
	}
	for _, line := range strings.Split(renderMarkup(msg.Text, s.ansi), "\n") {
		fmt.Fprintln(s.out, "coach> "+line)
	}
}

func (s *terminalSink) PresentChoices(choices []coach.Choice) {
	s.choices = append(s.choices[:0], choices...)
}

func (s *terminalSink) ClearChoices() { s.choices = nil }

// resolve maps a numbered reply onto its choice value.
func (s *terminalSink) resolve(line string) string {
	for i, c := range s.choices {
		if line == fmt.Sprint(i+1) {
			return c.Value
		}
	}
	return line
}
