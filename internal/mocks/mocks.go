// Package mocks holds test doubles shared across packages.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/xkilldash9x/protect-viewer/internal/protect"
	"github.com/xkilldash9x/protect-viewer/internal/store"
)

// -- Config Loader Mock --

// MockConfigLoader mocks protect.ConfigLoader.
type MockConfigLoader struct {
	mock.Mock
}

func (m *MockConfigLoader) LoadConfig(ctx context.Context) (*protect.Configuration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protect.Configuration), args.Error(1)
}

// StaticConfig returns a loader that always yields cfg.
func StaticConfig(cfg *protect.Configuration) protect.ConfigLoader {
	return protect.ConfigLoaderFunc(func(context.Context) (*protect.Configuration, error) {
		if cfg == nil {
			return nil, nil
		}
		c := *cfg
		return &c, nil
	})
}

// -- Recorder Mock --

// MockRecorder mocks protect.Recorder. Tests that do not care about a call
// can register it with .Maybe().
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RunFinished(state string)        { m.Called(state) }
func (m *MockRecorder) LayoutApplied(generation string) { m.Called(generation) }
func (m *MockRecorder) WatchdogReload(reason string)    { m.Called(reason) }

// -- Store Mock --

// MockStore mocks the shell's settings store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) LoadConfig(ctx context.Context) (*protect.Configuration, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*protect.Configuration), args.Error(1)
}

func (m *MockStore) SaveConfig(ctx context.Context, cfg protect.Configuration) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockStore) LoadBounds() (*store.Bounds, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Bounds), args.Error(1)
}

func (m *MockStore) SaveBounds(b store.Bounds) error {
	return m.Called(b).Error(0)
}
