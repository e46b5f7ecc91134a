package recognize

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jwulff/dictate/internal/audio"
)

// DefaultGoogleEndpoint is the Speech-to-Text v1 synchronous endpoint.
const DefaultGoogleEndpoint = "https://speech.googleapis.com/v1/speech:recognize"

// GoogleConfig configures the cloud engine.
type GoogleConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
}

// Google recognizes speech with Google Cloud Speech-to-Text over REST.
type Google struct {
	cfg    GoogleConfig
	client *http.Client
	log    *log.Logger
}

// NewGoogle creates the cloud engine.
func NewGoogle(cfg GoogleConfig, logger *log.Logger) (*Google, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key not configured")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGoogleEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Google{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}, nil
}

func (g *Google) Name() string { return "google" }

func (g *Google) Close() error { return nil }

type googleRequest struct {
	Config googleRecognitionConfig `json:"config"`
	Audio  googleAudio             `json:"audio"`
}

type googleRecognitionConfig struct {
	Encoding                   string `json:"encoding"`
	SampleRateHertz            int    `json:"sampleRateHertz"`
	LanguageCode               string `json:"languageCode"`
	EnableAutomaticPunctuation bool   `json:"enableAutomaticPunctuation"`
}

type googleAudio struct {
	Content string `json:"content"`
}

type googleResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Recognize sends the phrase as LINEAR16 and joins the top alternatives.
// An empty result set is reported as ErrUnintelligible.
func (g *Google) Recognize(ctx context.Context, c audio.Capture, language string) (string, error) {
	body, err := json.Marshal(googleRequest{
		Config: googleRecognitionConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            c.SampleRate,
			LanguageCode:               language,
			EnableAutomaticPunctuation: true,
		},
		Audio: googleAudio{Content: base64.StdEncoding.EncodeToString(c.PCM16LE())},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	u, err := url.Parse(g.cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", g.cfg.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	g.log.Debug("recognize: sending to google", "language", language, "duration", c.Duration())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.log.Error("recognize: google request failed", "status", resp.StatusCode)
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("google API error: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("google API error: status %d", resp.StatusCode)
	}

	var result googleResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}

	var parts []string
	for _, r := range result.Results {
		if len(r.Alternatives) > 0 && r.Alternatives[0].Transcript != "" {
			parts = append(parts, strings.TrimSpace(r.Alternatives[0].Transcript))
		}
	}
	if len(parts) == 0 {
		return "", ErrUnintelligible
	}

	text := strings.Join(parts, " ")
	g.log.Debug("recognize: google transcription complete", "length", len(text))
	return text, nil
}
