package llmmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hte-labs/hte-planner/internal/llm"
)

// MockGenerator is a mock implementation of llm.Generator.
type MockGenerator struct {
	mock.Mock
}

// Generate provides a mock function.
func (m *MockGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
