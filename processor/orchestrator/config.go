package orchestrator

import (
	"fmt"

	"github.com/c360studio/execoach/model"
)

// Config holds the tunables of the coaching operations.
type Config struct {
	// PlanningCapability selects the endpoint for plan generation and adjustment.
	PlanningCapability model.Capability `json:"planning_capability" yaml:"planning_capability"`

	// ReviewingCapability selects the endpoint for deviation analysis.
	ReviewingCapability model.Capability `json:"reviewing_capability" yaml:"reviewing_capability"`

	// Temperature is sent with every completion request.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens limits response length. 0 uses the endpoint setting.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// HistoryLimit is how many recent history entries are loaded for planning.
	HistoryLimit int `json:"history_limit" yaml:"history_limit"`

	// DeviationThreshold is the completion rate below which the local
	// fallback flags a deviation and recommends adjusting.
	DeviationThreshold float64 `json:"deviation_threshold" yaml:"deviation_threshold"`

	// FallbackConfidence is the confidence score of a locally computed report.
	FallbackConfidence float64 `json:"fallback_confidence" yaml:"fallback_confidence"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		PlanningCapability:  model.CapabilityPlanning,
		ReviewingCapability: model.CapabilityReviewing,
		Temperature:         0.7,
		HistoryLimit:        4,
		DeviationThreshold:  0.7,
		FallbackConfidence:  0.5,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.PlanningCapability.IsValid() {
		return fmt.Errorf("planning_capability %q is not a known capability", c.PlanningCapability)
	}
	if !c.ReviewingCapability.IsValid() {
		return fmt.Errorf("reviewing_capability %q is not a known capability", c.ReviewingCapability)
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		return fmt.Errorf("temperature must be within [0,1], got %v", c.Temperature)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be >= 0")
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history_limit must be >= 0")
	}
	if c.DeviationThreshold < 0 || c.DeviationThreshold > 1 {
		return fmt.Errorf("deviation_threshold must be within [0,1], got %v", c.DeviationThreshold)
	}
	if c.FallbackConfidence < 0 || c.FallbackConfidence > 1 {
		return fmt.Errorf("fallback_confidence must be within [0,1], got %v", c.FallbackConfidence)
	}
	return nil
}
