// Package protect adapts a live UniFi Protect dashboard into a full-screen
// camera wall: it logs in, detects the dashboard generation, hides the
// navigation chrome and keeps the session fresh.
//
// Every step is best-effort. Missing elements degrade a step to a logged
// no-op; only a missing configuration, a failed login or an unsupported
// dashboard generation stop a run.
package protect

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Element addresses the Index-th match of Selector in the live document.
// Elements are resolved on every call and never cached, since the host page
// re-renders freely.
type Element struct {
	Selector string
	Index    int
}

// First returns the first match of selector.
func First(selector string) Element {
	return Element{Selector: selector}
}

func (e Element) String() string {
	return fmt.Sprintf("%s[%d]", e.Selector, e.Index)
}

// Page is the document the engine adapts. Element-level mutations report
// found=false when the element does not exist; that is not an error.
type Page interface {
	Location(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error

	Count(ctx context.Context, selector string) (int, error)
	ChildCount(ctx context.Context, el Element) (int, error)
	InnerTexts(ctx context.Context, selector string) ([]string, error)
	ViewportHeight(ctx context.Context) (int, error)
	StorageItem(ctx context.Context, key string) (value string, found bool, err error)

	// SetValue assigns value through the native setter and dispatches one
	// input event marked as simulated.
	SetValue(ctx context.Context, el Element, value string) (found bool, err error)
	Click(ctx context.Context, el Element) (found bool, err error)
	SetStyle(ctx context.Context, el Element, property, value string) (found bool, err error)
}

// Configuration is the dashboard address and the credentials used to log in.
type Configuration struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Validate reports whether all three fields are set.
func (c *Configuration) Validate() error {
	if c == nil {
		return ErrMissingConfiguration
	}
	var missing []string
	if strings.TrimSpace(c.URL) == "" {
		missing = append(missing, "url")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingConfiguration, strings.Join(missing, ", "))
	}
	return nil
}

// ConfigLoader fetches the persisted configuration. A nil configuration with
// a nil error means nothing has been saved yet.
type ConfigLoader interface {
	LoadConfig(ctx context.Context) (*Configuration, error)
}

// ConfigLoaderFunc adapts a function to ConfigLoader.
type ConfigLoaderFunc func(ctx context.Context) (*Configuration, error)

// LoadConfig implements ConfigLoader.
func (f ConfigLoaderFunc) LoadConfig(ctx context.Context) (*Configuration, error) { return f(ctx) }

// Recorder receives run statistics. The zero Env uses a no-op recorder.
type Recorder interface {
	RunFinished(state string)
	LayoutApplied(generation string)
	WatchdogReload(reason string)
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(string)    {}
func (nopRecorder) LayoutApplied(string)  {}
func (nopRecorder) WatchdogReload(string) {}

// Conditions that end a run.
var (
	ErrMissingConfiguration  = errors.New("configuration is missing")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrUnsupportedGeneration = errors.New("unsupported dashboard generation")
)
