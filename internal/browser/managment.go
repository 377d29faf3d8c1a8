package browser

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// KeyBinding is the name of the CDP binding the key forwarder calls.
const KeyBinding = "protectViewerKey"

// Bind exposes a Go callback to page scripts as window[name](payload). The
// binding survives navigations. handler runs on chromedp's event goroutine
// and must not block.
func (s *Session) Bind(ctx context.Context, name string, handler func(payload string)) error {
	if err := s.runActions(ctx, runtime.AddBinding(name)); err != nil {
		return fmt.Errorf("failed to add binding '%s': %w", name, err)
	}

	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		called, ok := ev.(*runtime.EventBindingCalled)
		if !ok || called.Name != name {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Panic in binding handler.",
					zap.String("name", name),
					zap.Any("panic_reason", r),
					zap.String("stack", string(debug.Stack())))
			}
		}()
		handler(called.Payload)
	})
	return nil
}

// InjectScriptPersistently adds a script that runs on every new document in
// the tab.
func (s *Session) InjectScriptPersistently(ctx context.Context, script string) error {
	var scriptID page.ScriptIdentifier
	err := s.runActions(ctx, chromedp.ActionFunc(func(c context.Context) error {
		var err error
		scriptID, err = page.AddScriptToEvaluateOnNewDocument(script).Do(c)
		return err
	}))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("could not inject persistent script: %w", err)
	}
	s.logger.Debug("Injected persistent script.", zap.String("scriptID", string(scriptID)))
	return nil
}

// ForwardKeys delivers presses of keys to handler. The forwarder is
// injected for future documents and evaluated once in the current one.
func (s *Session) ForwardKeys(ctx context.Context, keys []string, handler func(key string)) error {
	err := s.Bind(ctx, KeyBinding, func(payload string) {
		kp, err := ParseKeyPress(payload)
		if err != nil {
			s.logger.Warn("Ignoring key event.", zap.Error(err))
			return
		}
		handler(kp.Key)
	})
	if err != nil {
		return err
	}
	script, err := keyForwarderScript(KeyBinding, keys)
	if err != nil {
		return err
	}
	if err := s.InjectScriptPersistently(ctx, script); err != nil {
		return err
	}
	if err := s.runActions(ctx, chromedp.Evaluate(script, nil)); err != nil {
		s.logger.Debug("Key forwarder not installed in the current document.", zap.Error(err))
	}
	return nil
}
