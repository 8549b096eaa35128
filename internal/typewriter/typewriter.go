// Package typewriter reveals a known string incrementally, one rune per
// tick, emitting frames that carry the linkified fragments of the current
// prefix. Links are clickable mid-animation rather than only once the
// reveal finishes.
package typewriter

import (
	"context"
	"sync"
	"time"

	"OptimaChat/internal/linkify"
)

const (
	defaultSpeed  = 30 * time.Millisecond
	defaultSettle = 100 * time.Millisecond

	// nudgeEvery is how many revealed runes pass between scroll nudges
	// during a long reveal.
	nudgeEvery = 50
)

// Frame is one step of the reveal.
type Frame struct {
	Fragments []linkify.Fragment `json:"fragments"`
	Revealed  int                `json:"revealed"`
	Nudge     bool               `json:"nudge,omitempty"`
	Done      bool               `json:"done,omitempty"`
}

// Presenter drives the reveal of one message. Restart with Reset; stopping
// or replacing the text discards all carry-over state.
type Presenter struct {
	mu         sync.Mutex
	text       []rune
	pos        int
	speed      time.Duration
	settle     time.Duration
	onComplete func()
	completed  bool
	stop       chan struct{}
	stopOnce   sync.Once
}

// New creates a presenter for text. speed <= 0 falls back to the default
// cadence. onComplete may be nil; when set it fires exactly once, after the
// last rune is revealed plus a short settle delay.
func New(text string, speed time.Duration, onComplete func()) *Presenter {
	if speed <= 0 {
		speed = defaultSpeed
	}
	return &Presenter{
		text:       []rune(text),
		speed:      speed,
		settle:     defaultSettle,
		onComplete: onComplete,
		stop:       make(chan struct{}),
	}
}

// Reset replaces the text and restarts the reveal from an empty prefix.
func (p *Presenter) Reset(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.text = []rune(text)
	p.pos = 0
	p.completed = false
}

// Step advances the reveal by one rune and returns the resulting frame.
// An exhausted (or empty) text yields a Done frame; the first Done frame
// schedules the completion callback.
func (p *Presenter) Step() Frame {
	p.mu.Lock()

	if p.pos < len(p.text) {
		p.pos++
	}
	revealed := p.pos
	done := revealed == len(p.text)
	prefix := string(p.text[:revealed])
	nudge := revealed > 0 && revealed%nudgeEvery == 0

	frame := Frame{
		Fragments: linkify.Split(prefix),
		Revealed:  revealed,
		Nudge:     nudge,
		Done:      done,
	}

	var fire bool
	if done && !p.completed {
		p.completed = true
		fire = true
	}
	p.mu.Unlock()

	if fire && p.onComplete != nil {
		time.AfterFunc(p.settle, p.onComplete)
	}
	return frame
}

// Done reports whether the full text has been revealed.
func (p *Presenter) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos == len(p.text)
}

// Stop cancels a running reveal. Safe to call more than once and after
// completion; pending ticks stop emitting frames.
func (p *Presenter) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Run produces frames at the configured cadence until the text is fully
// revealed, the context is cancelled, or Stop is called. The returned
// channel is closed when the reveal ends.
func (p *Presenter) Run(ctx context.Context) <-chan Frame {
	frames := make(chan Frame)

	go func() {
		defer close(frames)

		ticker := time.NewTicker(p.speed)
		defer ticker.Stop()

		for {
			frame := p.Step()
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			}
			if frame.Done {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			}
		}
	}()

	return frames
}
