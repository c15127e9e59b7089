package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/measure-api/internal/vision"
)

// MockAnalyzer implements vision.Analyzer for testing
type MockAnalyzer struct {
	// AnalyzeFn allows test cases to mock the Analyze behavior
	AnalyzeFn func(ctx context.Context, req vision.AnalyzeRequest) (*vision.Result, error)

	// Default response values
	Result *vision.Result
	Err    error

	// Call tracking for verification
	AnalyzeCalls struct {
		mu       sync.Mutex
		Count    int
		Requests []vision.AnalyzeRequest
	}
}

var _ vision.Analyzer = (*MockAnalyzer)(nil)

// Analyze implements the vision.Analyzer interface
func (m *MockAnalyzer) Analyze(ctx context.Context, req vision.AnalyzeRequest) (*vision.Result, error) {
	m.AnalyzeCalls.mu.Lock()
	m.AnalyzeCalls.Count++
	m.AnalyzeCalls.Requests = append(m.AnalyzeCalls.Requests, req)
	m.AnalyzeCalls.mu.Unlock()

	if m.AnalyzeFn != nil {
		return m.AnalyzeFn(ctx, req)
	}
	return m.Result, m.Err
}

// CallCount returns how many times Analyze was called.
func (m *MockAnalyzer) CallCount() int {
	m.AnalyzeCalls.mu.Lock()
	defer m.AnalyzeCalls.mu.Unlock()
	return m.AnalyzeCalls.Count
}
