package recognize

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jwulff/dictate/internal/config"
)

// Factory builds engines on first use and hands out the one matching the
// current cloud/offline selection.
type Factory struct {
	cfg     config.Config
	log     *log.Logger
	mu      sync.Mutex
	engines map[string]Recognizer
}

// NewFactory creates a factory for cfg.
func NewFactory(cfg config.Config, logger *log.Logger) *Factory {
	return &Factory{cfg: cfg, log: logger, engines: make(map[string]Recognizer)}
}

// Register installs a prebuilt engine for a selector, replacing any other.
func (f *Factory) Register(engine string, r Recognizer) {
	f.mu.Lock()
	old := f.engines[engine]
	f.engines[engine] = r
	f.mu.Unlock()
	if old != nil && old != r {
		old.Close()
	}
}

// Get returns the engine for config.EngineCloud or config.EngineOffline.
func (f *Factory) Get(engine string) (Recognizer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r, ok := f.engines[engine]; ok {
		return r, nil
	}

	r, err := f.create(engine)
	if err != nil {
		return nil, err
	}
	f.engines[engine] = r
	f.log.Info("recognize: engine ready", "selector", engine, "engine", r.Name())
	return r, nil
}

func (f *Factory) create(engine string) (Recognizer, error) {
	switch engine {
	case config.EngineCloud:
		return NewGoogle(GoogleConfig{
			APIKey:   f.cfg.Cloud.APIKey,
			Endpoint: f.cfg.Cloud.Endpoint,
			Timeout:  f.cfg.Cloud.Timeout,
		}, f.log)
	case config.EngineOffline:
		switch f.cfg.Offline.Mode {
		case "exec":
			return NewExec(ExecConfig{Command: f.cfg.Offline.Command, ModelPath: f.cfg.Offline.ModelPath}, f.log)
		case "whispercpp":
			if !WhisperCppAvailable {
				return nil, fmt.Errorf("offline mode whispercpp is not in this build; rebuild with -tags whispercpp or set offline.mode to exec")
			}
			return NewWhisperCpp(f.cfg.Offline.ModelPath, f.cfg.Offline.Threads, f.log)
		case "mock":
			return NewMock(), nil
		}
		return nil, fmt.Errorf("unknown offline mode: %s", f.cfg.Offline.Mode)
	}
	return nil, fmt.Errorf("unknown engine: %s", engine)
}

// Close releases every engine that was built.
func (f *Factory) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, r := range f.engines {
		if err := r.Close(); err != nil {
			f.log.Warn("recognize: failed to close engine", "selector", name, "error", err)
		}
	}
	f.engines = make(map[string]Recognizer)
}
