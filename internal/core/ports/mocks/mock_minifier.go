package mocks

import (
	"fmt"
	"strings"
	"sync"

	"github.com/kamal-hamza/headpack/internal/core/domain"
	"github.com/kamal-hamza/headpack/internal/core/ports"
)

// --- MockMinifier ---

// MinifyCall records one Minify or RewriteURLs invocation
type MinifyCall struct {
	Kind    domain.AssetType
	Content string
	Context ports.MinifyContext
	Rewrite bool
}

// MockMinifier is a mock implementation of the Minifier and URLRewriter ports.
// By default it collapses whitespace runs and tags rewritten content.
type MockMinifier struct {
	mu         sync.Mutex
	calls      []MinifyCall
	shouldFail bool
	failError  error
}

// NewMockMinifier creates a new mock minifier
func NewMockMinifier() *MockMinifier {
	return &MockMinifier{}
}

func (m *MockMinifier) Minify(kind domain.AssetType, content string, mctx ports.MinifyContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MinifyCall{Kind: kind, Content: content, Context: mctx})
	if m.shouldFail {
		if m.failError != nil {
			return "", m.failError
		}
		return "", fmt.Errorf("minify failed for %s", kind)
	}
	return strings.Join(strings.Fields(content), " "), nil
}

func (m *MockMinifier) RewriteURLs(content string, mctx ports.MinifyContext) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MinifyCall{Kind: domain.AssetTypeStylesheet, Content: content, Context: mctx, Rewrite: true})
	if m.shouldFail {
		if m.failError != nil {
			return "", m.failError
		}
		return "", fmt.Errorf("rewrite failed")
	}
	return "/* rewritten */" + content, nil
}

func (m *MockMinifier) SetShouldFail(fail bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shouldFail = fail
	m.failError = err
}

func (m *MockMinifier) GetCalls() []MinifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]MinifyCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

func (m *MockMinifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.shouldFail = false
	m.failError = nil
}
