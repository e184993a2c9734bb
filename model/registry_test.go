package model

import (
	"testing"
)

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry("primary", map[string]*EndpointConfig{
		"primary":  {Provider: "openai", Model: "gpt-4o"},
		"analysis": {Provider: "ollama", Model: "qwen2.5"},
	})
	r.SetCapability(CapabilityReviewing, "analysis")

	tests := []struct {
		capability Capability
		expected   string
	}{
		{CapabilityPlanning, "primary"},
		{CapabilityReviewing, "analysis"},
		{Capability("unknown"), "primary"},
	}

	for _, tt := range tests {
		t.Run(string(tt.capability), func(t *testing.T) {
			if got := r.Resolve(tt.capability); got != tt.expected {
				t.Errorf("Resolve(%s) = %s, want %s", tt.capability, got, tt.expected)
			}
		})
	}
}

func TestRegistryEndpointFor(t *testing.T) {
	r := NewRegistry("primary", nil)
	if _, err := r.EndpointFor(CapabilityPlanning); err == nil {
		t.Fatal("expected error for missing endpoint")
	}

	r.SetEndpoint("primary", &EndpointConfig{Provider: "azure", Model: "gpt-4", APIVersion: "2024-02-15-preview"})
	ep, err := r.EndpointFor(CapabilityPlanning)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ep.Model != "gpt-4" {
		t.Errorf("expected gpt-4, got %s", ep.Model)
	}

	if names := r.ListEndpoints(); len(names) != 1 || names[0] != "primary" {
		t.Errorf("unexpected endpoints %v", names)
	}
}

func TestParseCapability(t *testing.T) {
	if ParseCapability("planning") != CapabilityPlanning {
		t.Error("planning should parse")
	}
	if ParseCapability("coding") != "" {
		t.Error("coding is not a coach capability")
	}
}
