package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/protect-viewer/internal/config"
	"github.com/xkilldash9x/protect-viewer/internal/observability"
	"github.com/xkilldash9x/protect-viewer/internal/store"
)

const envPrefix = "PROTECT_VIEWER"

// app carries what PersistentPreRunE loads to the subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds a fresh command tree. Running it without a
// subcommand opens the viewer.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "protect-viewer",
		Short:         "Protect Viewer shows a UniFi Protect dashboard as a clean, full-window live view.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runViewer(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml or ~/.config/protect-viewer/config.yaml)")
	flags.Bool("kiosk", false, "Open the window in kiosk mode. (Overrides config/env)")
	flags.Bool("headless", false, "Run the browser without a window. (Overrides config/env)")
	flags.String("store-dir", "", "Directory holding the saved dashboard settings. (Overrides config/env)")
	_ = a.v.BindPFlag("browser.kiosk", flags.Lookup("kiosk"))
	_ = a.v.BindPFlag("browser.headless", flags.Lookup("headless"))
	_ = a.v.BindPFlag("store.dir", flags.Lookup("store-dir"))

	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)
	rootCmd.AddCommand(newRunCmd(a), newConfigureCmd(a), newResetCmd(a), newVersionCmd())
	return rootCmd
}

// Execute runs the command line against os.Args.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	observability.Sync()
	return err
}

// initialize loads the configuration and installs the logger.
func (a *app) initialize() error {
	config.SetDefaults(a.v)
	if err := initializeConfig(a.v, a.cfgFile); err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "protect-viewer"})
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "protect-viewer"})
		return err
	}
	observability.InitializeLogger(cfg.Logger)

	a.cfg = cfg
	a.logger = observability.GetLogger()
	a.logger.Debug("Configuration loaded.", zap.String("file", a.v.ConfigFileUsed()), zap.String("version", Version))
	return nil
}

// initializeConfig reads the config file, if any, and environment variables.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.config/protect-viewer")
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func (a *app) openStore() (*store.FileStore, error) {
	return store.Open(a.cfg.Store.Dir, a.logger)
}
