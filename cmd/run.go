package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/protect-viewer/internal/observability"
	"github.com/xkilldash9x/protect-viewer/internal/shell"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the dashboard window (the default command)",
		Long: `Opens the configured UniFi Protect dashboard, logs in and strips the
page down to the camera grid. Without saved settings the window shows a
configuration form instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runViewer(cmd.Context())
		},
	}
}

// runViewer runs the shell until it stops for a reason other than a restart.
// Metrics survive restarts.
func (a *app) runViewer(ctx context.Context) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	a.logger.Info("Starting Protect Viewer", zap.String("version", Version), zap.String("store", st.Dir()))

	metrics := observability.NewMetrics()
	launch := shell.BrowserLauncher(a.cfg.Browser, a.logger)
	for {
		err := shell.New(a.cfg, st, launch, metrics, a.logger).Run(ctx)
		if !errors.Is(err, shell.ErrRestart) {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		a.logger.Info("Restarting the viewer.")
	}
}
