// Package testutil provides test utilities for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/c360studio/execoach/llm"
)

// MockLLMClient is a thread-safe llm.Completer for tests. It returns the
// configured responses in sequence and records every request.
//
// Usage:
//
//	mock := &MockLLMClient{
//	    Responses: []*llm.Response{
//	        {Content: "```json\n{\"priorities\": [\"Sleep\"]}\n```", Model: "test-model"},
//	    },
//	}
//
//	// Error response
//	mock := &MockLLMClient{Err: errors.New("connection failed")}
type MockLLMClient struct {
	mu            sync.Mutex
	Responses     []*llm.Response // Responses to return in sequence
	Err           error           // Error to return (takes precedence over Responses)
	requests      []llm.Request
	traces        []llm.TraceContext
	responseIndex int
}

// Complete implements llm.Completer.
func (m *MockLLMClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	m.traces = append(m.traces, llm.GetTraceContext(ctx))

	if m.Err != nil {
		return nil, m.Err
	}

	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp, nil
	}

	// Default response if no responses configured
	return &llm.Response{Content: "", Model: "test-model"}, nil
}

// GetCallCount returns the number of times Complete() was called.
func (m *MockLLMClient) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or the zero Request.
func (m *MockLLMClient) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}

// LastTrace returns the trace context of the most recent call.
func (m *MockLLMClient) LastTrace() llm.TraceContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.traces) == 0 {
		return llm.TraceContext{}
	}
	return m.traces[len(m.traces)-1]
}

// Reset clears recorded calls and rewinds the response sequence.
func (m *MockLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.traces = nil
	m.responseIndex = 0
}
