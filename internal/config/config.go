// Package config loads dictate settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine selectors. Cloud is the remote recognizer, offline runs locally.
const (
	EngineCloud   = "cloud"
	EngineOffline = "offline"
)

type Config struct {
	Languages []string      `yaml:"languages"`
	Language  string        `yaml:"language"`
	Engine    string        `yaml:"engine"`
	Save      SaveConfig    `yaml:"save"`
	Audio     AudioConfig   `yaml:"audio"`
	Cloud     CloudConfig   `yaml:"cloud"`
	Offline   OfflineConfig `yaml:"offline"`
	History   HistoryConfig `yaml:"history"`
	Control   ControlConfig `yaml:"control"`
	Log       LogConfig     `yaml:"log"`
}

type SaveConfig struct {
	Format           string `yaml:"format"`
	IncludeTimestamp bool   `yaml:"include_timestamp"`
	Directory        string `yaml:"directory"`
}

type AudioConfig struct {
	SampleRate      int           `yaml:"sample_rate"`
	ListenTimeout   time.Duration `yaml:"listen_timeout"`
	PhraseTimeLimit time.Duration `yaml:"phrase_time_limit"`
	Calibration     time.Duration `yaml:"calibration"`
	PauseThreshold  time.Duration `yaml:"pause_threshold"`
	EnergyThreshold float64       `yaml:"energy_threshold"`
}

type CloudConfig struct {
	APIKey   string        `yaml:"api_key"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type OfflineConfig struct {
	Mode      string `yaml:"mode"` // exec, whispercpp, mock
	Command   string `yaml:"command"`
	ModelPath string `yaml:"model_path"`
	Threads   uint   `yaml:"threads"`
}

type HistoryConfig struct {
	DBPath  string `yaml:"db_path"`
	Visible int    `yaml:"visible"`
	Archive bool   `yaml:"archive"`
}

type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Socket  string `yaml:"socket"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Dir returns the per-user dictate directory.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".dictate")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func Default() Config {
	return Config{
		Languages: []string{"en-US", "fr-FR", "es-ES"},
		Language:  "en-US",
		Engine:    EngineCloud,
		Save: SaveConfig{
			Format:           "txt",
			IncludeTimestamp: true,
			Directory:        "transcripts",
		},
		Audio: AudioConfig{
			SampleRate:      16000,
			ListenTimeout:   5 * time.Second,
			PhraseTimeLimit: 10 * time.Second,
			Calibration:     2 * time.Second,
			PauseThreshold:  800 * time.Millisecond,
			EnergyThreshold: 300,
		},
		Cloud: CloudConfig{
			Endpoint: "https://speech.googleapis.com/v1/speech:recognize",
			Timeout:  30 * time.Second,
		},
		Offline: OfflineConfig{
			Mode: "exec",
		},
		History: HistoryConfig{
			DBPath:  filepath.Join(Dir(), "history.sqlite"),
			Visible: 5,
			Archive: true,
		},
		Control: ControlConfig{
			Enabled: true,
			Socket:  filepath.Join(Dir(), "dictate.sock"),
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(Dir(), "dictate.log"),
		},
	}
}

// Load reads path over Default(). An empty path, or a missing file at the
// default location, yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		case os.IsNotExist(err) && path == DefaultPath():
		case os.IsNotExist(err):
			return cfg, fmt.Errorf("config file not found: %w", err)
		default:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideStringSlice(&cfg.Languages, "DICTATE_LANGUAGES")
	overrideString(&cfg.Language, "DICTATE_LANGUAGE")
	overrideString(&cfg.Engine, "DICTATE_ENGINE")
	overrideString(&cfg.Save.Format, "DICTATE_SAVE_FORMAT")
	overrideBool(&cfg.Save.IncludeTimestamp, "DICTATE_SAVE_INCLUDE_TIMESTAMP")
	overrideString(&cfg.Save.Directory, "DICTATE_SAVE_DIRECTORY")
	overrideInt(&cfg.Audio.SampleRate, "DICTATE_AUDIO_SAMPLE_RATE")
	overrideDuration(&cfg.Audio.ListenTimeout, "DICTATE_AUDIO_LISTEN_TIMEOUT")
	overrideDuration(&cfg.Audio.PhraseTimeLimit, "DICTATE_AUDIO_PHRASE_TIME_LIMIT")
	overrideDuration(&cfg.Audio.Calibration, "DICTATE_AUDIO_CALIBRATION")
	overrideDuration(&cfg.Audio.PauseThreshold, "DICTATE_AUDIO_PAUSE_THRESHOLD")
	overrideFloat(&cfg.Audio.EnergyThreshold, "DICTATE_AUDIO_ENERGY_THRESHOLD")
	overrideString(&cfg.Cloud.APIKey, "DICTATE_CLOUD_API_KEY")
	overrideString(&cfg.Cloud.Endpoint, "DICTATE_CLOUD_ENDPOINT")
	overrideDuration(&cfg.Cloud.Timeout, "DICTATE_CLOUD_TIMEOUT")
	overrideString(&cfg.Offline.Mode, "DICTATE_OFFLINE_MODE")
	overrideString(&cfg.Offline.Command, "DICTATE_OFFLINE_COMMAND")
	overrideString(&cfg.Offline.ModelPath, "DICTATE_OFFLINE_MODEL_PATH")
	overrideString(&cfg.History.DBPath, "DICTATE_HISTORY_DB_PATH")
	overrideInt(&cfg.History.Visible, "DICTATE_HISTORY_VISIBLE")
	overrideBool(&cfg.History.Archive, "DICTATE_HISTORY_ARCHIVE")
	overrideBool(&cfg.Control.Enabled, "DICTATE_CONTROL_ENABLED")
	overrideString(&cfg.Control.Socket, "DICTATE_CONTROL_SOCKET")
	overrideString(&cfg.Log.Level, "DICTATE_LOG_LEVEL")
	overrideString(&cfg.Log.File, "DICTATE_LOG_FILE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideDuration(target *time.Duration, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

// Warnings lists settings that load fine but will likely fail at runtime.
func (c Config) Warnings() []string {
	var w []string
	if c.Engine == EngineCloud && c.Cloud.APIKey == "" {
		w = append(w, "engine is cloud but cloud.api_key is empty; recognition requests will be rejected (set DICTATE_CLOUD_API_KEY)")
	}
	return w
}

func validate(cfg Config) error {
	if len(cfg.Languages) == 0 {
		return errors.New("languages must not be empty")
	}
	found := false
	for _, l := range cfg.Languages {
		if l == cfg.Language {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("language %q must be one of languages %v", cfg.Language, cfg.Languages)
	}
	switch cfg.Engine {
	case EngineCloud, EngineOffline:
	default:
		return errors.New("engine must be one of cloud|offline")
	}
	switch cfg.Save.Format {
	case "txt", "json", "csv":
	default:
		return errors.New("save.format must be one of txt|json|csv")
	}
	if cfg.Save.Directory == "" {
		return errors.New("save.directory must not be empty")
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.ListenTimeout <= 0 {
		return errors.New("audio.listen_timeout must be positive")
	}
	if cfg.Audio.PhraseTimeLimit <= 0 {
		return errors.New("audio.phrase_time_limit must be positive")
	}
	if cfg.Audio.Calibration < 0 {
		return errors.New("audio.calibration must be >= 0")
	}
	if cfg.Audio.EnergyThreshold < 0 {
		return errors.New("audio.energy_threshold must be >= 0")
	}
	switch cfg.Offline.Mode {
	case "exec", "whispercpp", "mock":
	default:
		return errors.New("offline.mode must be one of exec|whispercpp|mock")
	}
	if cfg.Engine == EngineOffline {
		if cfg.Offline.Mode == "exec" && cfg.Offline.Command == "" {
			return errors.New("offline.command must be set when offline.mode=exec")
		}
		if cfg.Offline.Mode == "whispercpp" && cfg.Offline.ModelPath == "" {
			return errors.New("offline.model_path must be set when offline.mode=whispercpp")
		}
	}
	if cfg.History.Visible <= 0 {
		return errors.New("history.visible must be >= 1")
	}
	if cfg.History.Archive && cfg.History.DBPath == "" {
		return errors.New("history.db_path must not be empty when archive is enabled")
	}
	if cfg.Control.Enabled && cfg.Control.Socket == "" {
		return errors.New("control.socket must not be empty when control is enabled")
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("log.level must be one of debug|info|warn|error")
	}
	return nil
}
