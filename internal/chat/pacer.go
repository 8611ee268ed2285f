package chat

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ashureev/fitcoach/internal/coach"
	"github.com/ashureev/fitcoach/internal/convlog"
)

// PacerConfig tunes how long a bot message "takes to type".
type PacerConfig struct {
	Enabled bool
	// ThinkPause is the base delay before every bot message.
	ThinkPause time.Duration
	// PerChar is added for every visible character.
	PerChar time.Duration
	// JitterMax bounds the random delay added on top.
	JitterMax time.Duration
	// MaxDelay caps the total; zero means no cap.
	MaxDelay time.Duration
}

// DefaultPacerConfig returns the delivery pacing used by the web client.
func DefaultPacerConfig() PacerConfig {
	return PacerConfig{
		Enabled:    true,
		ThinkPause: 400 * time.Millisecond,
		PerChar:    8 * time.Millisecond,
		JitterMax:  120 * time.Millisecond,
		MaxDelay:   1500 * time.Millisecond,
	}
}

// Pacer computes delivery delays for outgoing messages.
type Pacer struct {
	cfg PacerConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer creates a pacer. A nil rng source uses a random seed.
func NewPacer(cfg PacerConfig, src rand.Source) *Pacer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Pacer{cfg: cfg, rng: rand.New(src)}
}

// Delay returns how long to wait before delivering msg. User echoes are
// never delayed.
func (p *Pacer) Delay(msg coach.Message) time.Duration {
	if p == nil || !p.cfg.Enabled || msg.Speaker != coach.SpeakerBot {
		return 0
	}

	visible := utf8.RuneCountInString(convlog.CleanForReadability(msg.Text))
	d := p.cfg.ThinkPause + time.Duration(visible)*p.cfg.PerChar
	if p.cfg.JitterMax > 0 {
		p.mu.Lock()
		d += time.Duration(p.rng.Int64N(int64(p.cfg.JitterMax)))
		p.mu.Unlock()
	}
	if p.cfg.MaxDelay > 0 && d > p.cfg.MaxDelay {
		d = p.cfg.MaxDelay
	}
	return d
}

// Wait blocks for d or until ctx is done.
func (p *Pacer) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
