package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockGenerator is a deterministic generator for tests and offline runs.
// It echoes a bounded view of the user content.
type MockGenerator struct {
	Responses []string
	calls     int
}

func (m *MockGenerator) GenerateWithSystem(ctx context.Context, system, user string) (string, error) {
	return m.next(user)
}

func (m *MockGenerator) ModelName() string {
	return "mock"
}

func (m *MockGenerator) next(input string) (string, error) {
	if m.calls < len(m.Responses) {
		r := m.Responses[m.calls]
		m.calls++
		return r, nil
	}
	m.calls++
	input = strings.TrimSpace(input)
	if len(input) > 120 {
		input = input[:120]
	}
	return fmt.Sprintf("mock response for: %s", input), nil
}
