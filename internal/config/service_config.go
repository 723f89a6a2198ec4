package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// PlaceholderEmbedURL is the value shipped in sample environments. It is never
// embedded.
const PlaceholderEmbedURL = "https://lookerstudio.google.com/embed/reporting/YOUR_REPORT_ID/page/YOUR_PAGE_ID"

// ErrConfigMissing reports that no usable service descriptor was supplied.
// Callers stop initialization; it is not fatal.
var ErrConfigMissing = errors.New("service config is missing or invalid")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ServiceConfig addresses the auth provider and the document store.
// Storage bucket and messaging sender are optional because neither
// collaborator reads them.
type ServiceConfig struct {
	APIKey            string `json:"apiKey" validate:"required"`
	AuthDomain        string `json:"authDomain" validate:"required"`
	ProjectID         string `json:"projectId" validate:"required"`
	StorageBucket     string `json:"storageBucket"`
	MessagingSenderID string `json:"messagingSenderId"`
	AppID             string `json:"appId" validate:"required"`
}

// IsZero reports whether no recognized key is set.
func (c ServiceConfig) IsZero() bool {
	return c == ServiceConfig{}
}

// ResolveServiceConfig turns the environment-supplied descriptor into a
// ServiceConfig. Absent, placeholder, malformed and partial descriptors all
// resolve to the zero value together with ErrConfigMissing.
func ResolveServiceConfig(raw string) (ServiceConfig, error) {
	var cfg ServiceConfig

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "undefined" || trimmed == "null" {
		return ServiceConfig{}, ErrConfigMissing
	}

	if err := json.Unmarshal([]byte(trimmed), &cfg); err != nil {
		return ServiceConfig{}, fmt.Errorf("%w: parse descriptor: %v", ErrConfigMissing, err)
	}

	if cfg.IsZero() {
		return ServiceConfig{}, ErrConfigMissing
	}

	if err := validate.Struct(cfg); err != nil {
		return ServiceConfig{}, fmt.Errorf("%w: %v", ErrConfigMissing, err)
	}

	return cfg, nil
}

// EmbedTarget is the resolved base URL of the embedded report.
type EmbedTarget struct {
	BaseURL    string
	Configured bool
}

func ResolveEmbedTarget(raw string) EmbedTarget {
	base := strings.TrimSpace(raw)
	return EmbedTarget{
		BaseURL:    base,
		Configured: base != "" && base != PlaceholderEmbedURL,
	}
}
