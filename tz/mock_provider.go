package tz

import "github.com/stretchr/testify/mock"

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	mock.Mock
}

// Resolve implements the Provider interface
func (m *MockProvider) Resolve(id string) (*Zone, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Zone), args.Error(1)
}
