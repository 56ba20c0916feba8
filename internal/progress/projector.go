// Package progress produces the synthetic progress signal shown while a
// compression request is in flight. The service does not stream progress, so
// the signal only gives perceptual feedback; completion is signaled by the
// job result, never by the percentage.
package progress

import (
	"math/rand"
	"sync"
	"time"

	"github.com/fpang/batch-compress/internal/clock"
	"github.com/rs/zerolog/log"
)

const (
	// Cap is the highest percentage the projector reports. Ticking stops there.
	Cap = 95.0

	// DefaultInterval is the time between synthetic advances.
	DefaultInterval = 500 * time.Millisecond

	// DefaultMinStep and DefaultMaxStep bound the random increment per tick.
	DefaultMinStep = 2.0
	DefaultMaxStep = 15.0
)

// Stages are the ordered phase labels; stage i starts at i*20 percent.
var Stages = []string{
	"Uploading files",
	"Analyzing content",
	"Compressing",
	"Optimizing output",
	"Finalizing",
}

// State is a snapshot of the synthetic progress.
type State struct {
	Percentage float64
	Stage      string
}

// Options configures a Projector. Zero values select the defaults.
type Options struct {
	Clock    clock.Clock
	Interval time.Duration
	MinStep  float64
	MaxStep  float64

	// Rand returns a value in [0,1). Defaults to math/rand/v2.
	Rand func() float64
}

// Projector is the Idle -> Running -> Idle synthetic progress state machine.
type Projector struct {
	clock    clock.Clock
	interval time.Duration
	minStep  float64
	maxStep  float64
	rand     func() float64
	observer func(State)

	mu      sync.Mutex
	state   State
	stage   int
	running bool
	frozen  bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates an idle Projector that reports every state change to observer.
func New(opts Options, observer func(State)) *Projector {
	p := &Projector{
		clock:    opts.Clock,
		interval: opts.Interval,
		minStep:  opts.MinStep,
		maxStep:  opts.MaxStep,
		rand:     opts.Rand,
		observer: observer,
	}
	if p.clock == nil {
		p.clock = clock.Real()
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	if p.minStep <= 0 {
		p.minStep = DefaultMinStep
	}
	if p.maxStep <= p.minStep {
		p.maxStep = max(DefaultMaxStep, p.minStep)
	}
	if p.rand == nil {
		p.rand = rand.Float64
	}
	if p.observer == nil {
		p.observer = func(State) {}
	}
	return p
}

// Start resets progress to 0 and begins ticking. A projector that is already
// running is stopped and restarted from 0.
func (p *Projector) Start() {
	p.Stop()

	p.mu.Lock()
	p.state = State{Percentage: 0, Stage: Stages[0]}
	p.stage = 0
	p.running = true
	p.frozen = false
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	initial := p.state
	p.mu.Unlock()

	ticker := p.clock.NewTicker(p.interval)
	p.observer(initial)
	go p.run(ticker, stopCh, doneCh)
}

// Stop cancels ticking immediately, whatever percentage was reached. Once Stop
// returns the observer is not called again for this run.
func (p *Projector) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	doneCh := p.doneCh
	p.mu.Unlock()

	<-doneCh
}

// Running reports whether a run is in progress (including a frozen run).
func (p *Projector) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// State returns the latest state.
func (p *Projector) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Projector) run(ticker *clock.Ticker, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !p.advance(stopCh) {
				return
			}
		}
	}
}

// advance applies one tick. It returns false once the run is stopped or frozen.
func (p *Projector) advance(stopCh chan struct{}) bool {
	p.mu.Lock()
	select {
	case <-stopCh:
		p.mu.Unlock()
		return false
	default:
	}

	next := p.state.Percentage + p.minStep + p.rand()*(p.maxStep-p.minStep)
	if next >= Cap {
		next = Cap
		p.frozen = true
	}
	if idx := min(int(next/20), len(Stages)-1); idx > p.stage {
		p.stage = idx
	}
	p.state = State{Percentage: next, Stage: Stages[p.stage]}
	state, frozen := p.state, p.frozen
	p.mu.Unlock()

	// Stop waits for this goroutine to exit, so no callback outlives Stop.
	p.observer(state)

	if frozen {
		log.Debug().Float64("percentage", state.Percentage).Msg("Synthetic progress reached cap, holding")
		return false
	}
	return true
}
