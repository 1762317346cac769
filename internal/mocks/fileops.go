package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockFileOps implements access.FileOps for testing across packages
type MockFileOps struct {
	mock.Mock
}

func (m *MockFileOps) Exists(path string) bool {
	args := m.Called(path)

	// Handle function return types (for complex tests)
	if fn, ok := args.Get(0).(func(string) bool); ok {
		return fn(path)
	}
	return args.Bool(0)
}

func (m *MockFileOps) Remove(path string) error {
	args := m.Called(path)

	if fn, ok := args.Get(0).(func(string) error); ok {
		return fn(path)
	}
	return args.Error(0)
}
