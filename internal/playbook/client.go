package playbook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"dva-dashboard-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
)

const module = "PlaybookClient"

// ErrPlaybookUnavailable wraps every failure to obtain generated content.
var ErrPlaybookUnavailable = errors.New("playbook content unavailable")

// Sections are rendered in this order whether or not the generator returned
// text for them.
var Sections = []string{
	"Executive Summary",
	"Data Monetization Overview",
	"Strategic Assessment Framework",
	"Prioritization of Use Cases",
	"Financial Modeling & ROI Assessment",
	"Data Utilization & Readiness",
	"Technology Implementation Roadmap",
	"Regulatory and Compliance Framework",
	"Go-to-Market Strategy",
	"Risk Mitigation Plan",
	"Actionable Playbook Outputs",
	"Tools and Resources",
	"Appendices",
}

const PlaceholderContent = "Detailed content coming soon..."

type Section struct {
	Anchor  string `json:"anchor"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Pending bool   `json:"pending"`
}

type Playbook struct {
	ClientID  int       `json:"client_id"`
	UseCaseID int       `json:"use_case_id"`
	Sections  []Section `json:"sections"`
	FetchedAt time.Time `json:"fetched_at"`
}

type IClient interface {
	Fetch(ctx context.Context, clientID, useCaseID int) (*Playbook, error)
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	cache      *cache.Cache
	logger     logger.ILogger
}

func NewClient(endpoint string, timeout, cacheTTL time.Duration, log logger.ILogger) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(cacheTTL, 2*cacheTTL),
		logger:     log,
	}
}

type generateRequest struct {
	ClientID  int `json:"clientId"`
	UseCaseID int `json:"useCaseId"`
}

// Fetch asks the content-generation function for the playbook of one client
// and use case. Successful results are cached; failures are not.
func (c *Client) Fetch(ctx context.Context, clientID, useCaseID int) (*Playbook, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("%w: PLAYBOOK_URL is not configured", ErrPlaybookUnavailable)
	}

	cacheKey := fmt.Sprintf("playbook:%d:%d", clientID, useCaseID)
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.(*Playbook), nil
	}

	payload, err := json.Marshal(generateRequest{ClientID: clientID, UseCaseID: useCaseID})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlaybookUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlaybookUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(module, "Playbook request failed", map[string]interface{}{"error": err, "client_id": clientID})
		return nil, fmt.Errorf("%w: %v", ErrPlaybookUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrPlaybookUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error(module, "Playbook function returned an error", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   truncate(string(body), 512),
		})
		return nil, fmt.Errorf("%w: status %d", ErrPlaybookUnavailable, resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrPlaybookUnavailable)
	}

	pb := &Playbook{
		ClientID:  clientID,
		UseCaseID: useCaseID,
		Sections:  extractSections(body),
		FetchedAt: time.Now(),
	}

	c.logger.Info(module, "Playbook generated", map[string]interface{}{
		"client_id":   clientID,
		"use_case_id": useCaseID,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	c.cache.Set(cacheKey, pb, cache.DefaultExpiration)
	return pb, nil
}

// extractSections reads each section by title, either at the top level of the
// response or below a "sections" object.
func extractSections(body []byte) []Section {
	out := make([]Section, 0, len(Sections))
	for i, title := range Sections {
		key := gjson.Escape(title)

		res := gjson.GetBytes(body, key)
		if !res.Exists() {
			res = gjson.GetBytes(body, "sections."+key)
		}

		content := res.String()
		section := Section{
			Anchor:  fmt.Sprintf("section-%d", i),
			Title:   title,
			Content: content,
		}
		if content == "" {
			section.Content = PlaceholderContent
			section.Pending = true
		}
		out = append(out, section)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
