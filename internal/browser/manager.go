// Package browser owns the Chrome process that shows the dashboard and
// exposes its single tab as a protect.Page.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/protect-viewer/internal/config"
	"github.com/xkilldash9x/protect-viewer/internal/store"
)

const defaultLaunchTimeout = 30 * time.Second

// Manager handles the lifecycle of the browser process and its tab.
type Manager struct {
	logger *zap.Logger

	// allocatorCtx owns the browser process; the tab is derived from it.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	session *Session
}

// NewManager launches the browser and opens the dashboard tab. The process
// is not tied to ctx's cancellation; call Shutdown to stop it.
func NewManager(ctx context.Context, cfg config.BrowserConfig, bounds *store.Bounds, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{logger: logger.Named("browser_manager")}
	m.logger.Info("Launching browser...", zap.Bool("headless", cfg.Headless), zap.Bool("kiosk", cfg.Kiosk))

	m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(Detach(ctx), AllocatorOptions(cfg, bounds)...)

	cdpLog := m.logger.Named("cdp").Sugar()
	tabCtx, tabCancel := chromedp.NewContext(m.allocatorCtx,
		chromedp.WithLogf(cdpLog.Debugf),
		chromedp.WithErrorf(cdpLog.Debugf),
	)

	timeout := cfg.LaunchTimeout
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	if err := m.launch(ctx, tabCtx, timeout); err != nil {
		tabCancel()
		m.allocatorCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	m.session = newSession(tabCtx, tabCancel, m.logger)
	m.logger.Info("Browser launched successfully and is responsive.")
	return m, nil
}

// launch allocates the browser on the tab context. The first Run binds the
// process to the context it is given, so the timeout is enforced from the
// outside rather than through a derived context.
func (m *Manager) launch(ctx, tabCtx context.Context, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(tabCtx) }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-errc:
		return err
	case <-timer.C:
		m.allocatorCancel()
		<-errc
		return fmt.Errorf("browser did not respond within %s", timeout)
	case <-ctx.Done():
		m.allocatorCancel()
		<-errc
		return ctx.Err()
	}
}

// Session returns the dashboard tab.
func (m *Manager) Session() *Session { return m.session }

// Shutdown closes the tab and terminates the browser process, waiting up to
// ctx's deadline for the process to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down browser process...")
	if m.session != nil {
		m.session.Close()
	}
	m.allocatorCancel()

	select {
	case <-m.allocatorCtx.Done():
		return nil
	case <-ctx.Done():
		m.logger.Warn("Browser shutdown deadline exceeded.", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
