package motivation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"net/http"
	"sync"
	"time"
)

// Config holds quote service configuration from environment variables.
type Config struct {
	APIKey string
	Model  string
}

// Quote is one motivational message shown on the dashboard.
type Quote struct {
	Text      string `json:"text"`
	Generated bool   `json:"generated"`
}

// Service fetches a daily motivational quote, tuned to the user's last
// reported mood. Results are cached per day and mood; without an API key
// the service serves from a static rotation instead.
type Service struct {
	config  Config
	client  *http.Client
	baseURL string

	mu     sync.RWMutex
	cached map[string]Quote
}

// NewService creates a quote service. An empty API key is fine; the
// service then always answers from the static set.
func NewService(cfg Config) *Service {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	return &Service{
		config:  cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: "https://generativelanguage.googleapis.com/v1beta/models",
		cached:  make(map[string]Quote),
	}
}

// Configured reports whether an API key is present.
func (s *Service) Configured() bool {
	return s.config.APIKey != ""
}

// Get returns the quote for the given day and mood. The same inputs
// always yield the same quote until the day rolls over.
func (s *Service) Get(day time.Time, mood string) Quote {
	key := day.Format("2006-01-02") + "|" + mood

	s.mu.RLock()
	if q, ok := s.cached[key]; ok {
		s.mu.RUnlock()
		return q
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock.
	if q, ok := s.cached[key]; ok {
		return q
	}

	q := s.fallback(key)
	if s.Configured() {
		if fetched, err := s.fetch(mood); err == nil {
			q = fetched
		}
	}
	s.cached[key] = q
	return q
}

type generateRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (s *Service) fetch(mood string) (Quote, error) {
	prompt := "Write one short motivational sentence for someone working to break a bad habit. No preamble, no quotes."
	if mood != "" {
		prompt = fmt.Sprintf(
			"Write one short motivational sentence for someone working to break a bad habit who is feeling %s today. No preamble, no quotes.",
			mood,
		)
	}

	var req generateRequest
	req.Contents = make([]struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}, 1)
	req.Contents[0].Parts = append(req.Contents[0].Parts, struct {
		Text string `json:"text"`
	}{Text: prompt})

	body, err := json.Marshal(req)
	if err != nil {
		return Quote{}, fmt.Errorf("marshal quote request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.baseURL, s.config.Model, s.config.APIKey)
	resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return Quote{}, fmt.Errorf("quote API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("quote API returned status %d", resp.StatusCode)
	}

	var apiResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return Quote{}, fmt.Errorf("decode quote response: %w", err)
	}
	if len(apiResp.Candidates) == 0 || len(apiResp.Candidates[0].Content.Parts) == 0 {
		return Quote{}, fmt.Errorf("quote API returned no candidates")
	}

	return Quote{Text: apiResp.Candidates[0].Content.Parts[0].Text, Generated: true}, nil
}

// fallbackQuotes rotate when no API key is configured or the API fails.
var fallbackQuotes = []string{
	"Every day you hold the line, the line gets easier to hold.",
	"You are not starting over. You are starting from experience.",
	"The streak is built one ordinary evening at a time.",
	"Discomfort is temporary. The person you're becoming is not.",
	"A slip is a data point, not a verdict.",
	"Show up for yourself today the way you would for a friend.",
	"The urge passes whether you act on it or not. Let it pass.",
	"Progress counts even on the days it doesn't feel like progress.",
}

func (s *Service) fallback(key string) Quote {
	h := fnv.New32a()
	h.Write([]byte(key))
	return Quote{Text: fallbackQuotes[h.Sum32()%uint32(len(fallbackQuotes))]}
}
