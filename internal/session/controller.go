package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jwulff/dictate/internal/recognize"
)

// ErrEndOfInput is returned by Run when a finite audio source, such as a
// replayed WAV file, has no more samples.
var ErrEndOfInput = errors.New("audio input ended")

// Engines resolves an engine selector to a recognizer.
type Engines interface {
	Get(engine string) (recognize.Recognizer, error)
}

// Controller runs the listen loop for a headless session. All methods are
// safe for concurrent use. Stop and TogglePause never interrupt a tick in
// flight; its result is dropped when it arrives.
type Controller struct {
	ticker  *Ticker
	engines Engines
	log     *log.Logger

	// Delay returns the wait after the attempt-th consecutive transport
	// error. Defaults to RetryDelay.
	Delay func(attempt int) time.Duration
	// OnChange is called after every accepted event.
	OnChange func(State)
	// OnResult is called after every tick with the state it started from.
	OnResult func(State, recognize.Result)

	mu       sync.Mutex
	state    State
	language string
	engine   string
	wake     chan struct{}
}

// NewController creates an idle controller.
func NewController(t *Ticker, engines Engines, language, engine string, logger *log.Logger) *Controller {
	return &Controller{
		ticker:   t,
		engines:  engines,
		log:      logger,
		Delay:    RetryDelay,
		language: language,
		engine:   engine,
		wake:     make(chan struct{}, 1),
	}
}

// Dispatch applies ev and returns the resulting state.
func (c *Controller) Dispatch(ev Event) State {
	c.mu.Lock()
	before := c.state
	c.state = Apply(c.state, ev)
	after := c.snapshotLocked()
	changed := !sameState(before, c.state)
	c.mu.Unlock()

	if !changed {
		return after
	}
	if _, ok := ev.(Fragment); !ok {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	if c.OnChange != nil {
		c.OnChange(after)
	}
	return after
}

func (c *Controller) Start() State       { return c.Dispatch(Start{}) }
func (c *Controller) Stop() State        { return c.Dispatch(Stop{}) }
func (c *Controller) TogglePause() State { return c.Dispatch(PauseToggle{}) }

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() State {
	s := c.state
	s.History = append([]string(nil), c.state.History...)
	return s
}

// SetLanguage changes the language used from the next tick on.
func (c *Controller) SetLanguage(language string) {
	c.mu.Lock()
	c.language = language
	c.mu.Unlock()
}

// SetEngine changes the engine selector used from the next tick on.
func (c *Controller) SetEngine(engine string) {
	c.mu.Lock()
	c.engine = engine
	c.mu.Unlock()
}

// Selection returns the current language and engine.
func (c *Controller) Selection() (language, engine string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.language, c.engine
}

// Run issues ticks while the session should listen and waits for the next
// event otherwise. It returns when ctx is done, or with ErrEndOfInput once
// the microphone runs dry.
func (c *Controller) Run(ctx context.Context) error {
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s := c.Snapshot()
		if !ShouldListen(s) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.wake:
			}
			continue
		}

		language, engine := c.Selection()
		res := c.tick(ctx, s, language, engine)
		if err := ctx.Err(); err != nil {
			return err
		}

		if res.Kind == recognize.KindTransportError && errors.Is(res.Err, io.EOF) {
			c.log.Info("session: audio input ended")
			return ErrEndOfInput
		}

		switch res.Kind {
		case recognize.KindOK:
			attempt = 0
			c.Dispatch(Fragment{Epoch: s.Epoch, Text: res.Text})
		case recognize.KindTransportError:
			c.log.Warn("session: recognition failed", "engine", engine, "error", res.Err, "attempt", attempt+1)
		}
		if c.OnResult != nil {
			c.OnResult(s, res)
		}

		if res.Kind == recognize.KindTransportError {
			delay := c.Delay(attempt)
			attempt++
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) tick(ctx context.Context, s State, language, engine string) recognize.Result {
	rec, err := c.engines.Get(engine)
	if err != nil {
		return recognize.TransportError(err)
	}
	return c.ticker.Tick(ctx, rec, language, NeedsCalibration(s))
}

// sleep waits for d, cutting the wait short when an event arrives.
func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.wake:
	case <-timer.C:
	}
	return nil
}

func sameState(a, b State) bool {
	return a.Recording == b.Recording &&
		a.Paused == b.Paused &&
		a.Current == b.Current &&
		a.Epoch == b.Epoch &&
		len(a.History) == len(b.History)
}
