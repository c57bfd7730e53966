package runlock

import (
	"context"

	"github.com/huangsam/vitals/internal/contract"
	"github.com/stretchr/testify/mock"
)

// MockLocker is a mock implementation of Locker for testing.
type MockLocker struct {
	mock.Mock
}

var _ contract.Locker = &MockLocker{} // Compile-time check

// Lock implements the Locker interface.
func (m *MockLocker) Lock(ctx context.Context, key string) (func() error, error) {
	args := m.Called(ctx, key)
	release, _ := args.Get(0).(func() error)
	return release, args.Error(1)
}

// Close implements the Locker interface.
func (m *MockLocker) Close() error {
	args := m.Called()
	return args.Error(0)
}
