package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/protect-viewer/internal/protect"
	"github.com/xkilldash9x/protect-viewer/internal/store"
)

// Session is the dashboard tab. It implements protect.Page by evaluating
// one small script per DOM primitive.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger

	loads chan struct{}

	mu       sync.Mutex
	isClosed bool
}

var _ protect.Page = (*Session)(nil)

// newSession wraps a chromedp tab context and starts forwarding its load
// events.
func newSession(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger) *Session {
	s := &Session{
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("session"),
		loads:  make(chan struct{}, 1),
	}
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		if _, ok := ev.(*page.EventLoadEventFired); ok {
			// Coalesce: a pending signal already means "a new document loaded".
			select {
			case s.loads <- struct{}{}:
			default:
			}
		}
	})
	return s
}

// LoadEvents delivers one value after each document load. Bursts of loads
// collapse into a single pending value.
func (s *Session) LoadEvents() <-chan struct{} { return s.loads }

// Done is closed when the tab or the browser goes away, for example when
// the user closes the window.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Close closes the tab.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isClosed {
		return
	}
	s.isClosed = true
	s.cancel()
}

// runActions executes actions bound to both the tab lifetime and ctx.
func (s *Session) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// evaluate calls fn with args in the current document and decodes the
// result into res.
func (s *Session) evaluate(ctx context.Context, res interface{}, fn string, args ...interface{}) error {
	script, err := jsCall(fn, args...)
	if err != nil {
		return err
	}
	if err := s.runActions(ctx, chromedp.Evaluate(script, res)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// -- protect.Page --

func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.runActions(ctx, chromedp.Location(&loc)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return loc, nil
}

// Navigate starts loading url and returns without waiting for the load.
func (s *Session) Navigate(ctx context.Context, url string) error {
	var ok bool
	return s.evaluate(ctx, &ok, jsNavigate, url)
}

// Reload starts reloading the document and returns without waiting.
func (s *Session) Reload(ctx context.Context) error {
	var ok bool
	return s.evaluate(ctx, &ok, jsReload)
}

func (s *Session) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := s.evaluate(ctx, &n, jsCount, selector)
	return n, err
}

func (s *Session) ChildCount(ctx context.Context, el protect.Element) (int, error) {
	var n int
	if err := s.evaluate(ctx, &n, jsChildCount, el.Selector, el.Index); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("no element %s", el)
	}
	return n, nil
}

func (s *Session) InnerTexts(ctx context.Context, selector string) ([]string, error) {
	var texts []string
	err := s.evaluate(ctx, &texts, jsInnerTexts, selector)
	return texts, err
}

func (s *Session) ViewportHeight(ctx context.Context) (int, error) {
	var h int
	err := s.evaluate(ctx, &h, jsViewportHeight)
	return h, err
}

func (s *Session) StorageItem(ctx context.Context, key string) (string, bool, error) {
	var item struct {
		Found bool   `json:"found"`
		Value string `json:"value"`
	}
	if err := s.evaluate(ctx, &item, jsStorageItem, key); err != nil {
		return "", false, err
	}
	return item.Value, item.Found, nil
}

func (s *Session) SetValue(ctx context.Context, el protect.Element, value string) (bool, error) {
	var found bool
	err := s.evaluate(ctx, &found, jsSetValue, el.Selector, el.Index, value)
	return found, err
}

func (s *Session) Click(ctx context.Context, el protect.Element) (bool, error) {
	var found bool
	err := s.evaluate(ctx, &found, jsClick, el.Selector, el.Index)
	return found, err
}

func (s *Session) SetStyle(ctx context.Context, el protect.Element, property, value string) (bool, error) {
	var found bool
	err := s.evaluate(ctx, &found, jsSetStyle, el.Selector, el.Index, property, value)
	return found, err
}

// -- Window --

// Bounds returns the outer window rectangle.
func (s *Session) Bounds(ctx context.Context) (store.Bounds, error) {
	var b store.Bounds
	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		_, bounds, err := browser.GetWindowForTarget().Do(c)
		if err != nil {
			return err
		}
		b = store.Bounds{
			X:      int(bounds.Left),
			Y:      int(bounds.Top),
			Width:  int(bounds.Width),
			Height: int(bounds.Height),
		}
		return nil
	}))
	if err != nil {
		return store.Bounds{}, fmt.Errorf("failed to read window bounds: %w", err)
	}
	return b, nil
}

// Confirm shows a blocking confirmation dialog in the page and reports the
// user's answer.
func (s *Session) Confirm(ctx context.Context, message string) (bool, error) {
	var ok bool
	if err := s.evaluate(ctx, &ok, jsConfirm, message); err != nil {
		return false, fmt.Errorf("confirmation dialog failed: %w", err)
	}
	return ok, nil
}
