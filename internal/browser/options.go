package browser

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/protect-viewer/internal/config"
	"github.com/xkilldash9x/protect-viewer/internal/store"
)

const appStartURL = "about:blank"

// launchFlag is one Chrome command line switch. A false Value removes a
// switch set by chromedp's defaults.
type launchFlag struct {
	Name  string
	Value interface{}
}

// AllocatorOptions assembles the allocator options for the dashboard window.
// Saved bounds, when present, take precedence over the configured size.
func AllocatorOptions(cfg config.BrowserConfig, bounds *store.Bounds) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	for _, f := range launchFlags(cfg, bounds, runtime.GOOS) {
		opts = append(opts, chromedp.Flag(f.Name, f.Value))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	return opts
}

func launchFlags(cfg config.BrowserConfig, bounds *store.Bounds, goos string) []launchFlag {
	flags := []launchFlag{
		// Hides the "controlled by automated software" bar.
		{"enable-automation", false},
		{"headless", cfg.Headless},
		{"disable-blink-features", "AutomationControlled"},
		{"ignore-certificate-errors", cfg.IgnoreTLSErrors},
		{"autoplay-policy", "no-user-gesture-required"},
		{"disable-infobars", true},
		{"disable-session-crashed-bubble", true},
		{"noerrdialogs", true},
		{"disable-gpu", cfg.Headless},
	}

	// Either way the window has no tabs or address bar. The engine navigates
	// the single app tab after launch.
	if cfg.Kiosk {
		flags = append(flags, launchFlag{"kiosk", true})
	} else {
		flags = append(flags, launchFlag{"app", appStartURL})
	}
	width, height := cfg.WindowWidth, cfg.WindowHeight
	if bounds != nil && bounds.Valid() {
		width, height = bounds.Width, bounds.Height
		flags = append(flags, launchFlag{"window-position", fmt.Sprintf("%d,%d", bounds.X, bounds.Y)})
	}
	if width > 0 && height > 0 {
		flags = append(flags, launchFlag{"window-size", fmt.Sprintf("%d,%d", width, height)})
	}

	for _, arg := range cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if name == "" {
			continue
		}
		if len(parts) == 2 {
			flags = append(flags, launchFlag{name, parts[1]})
		} else {
			flags = append(flags, launchFlag{name, true})
		}
	}

	// Container and root sessions on Linux cannot use the setuid sandbox.
	if goos == "linux" {
		flags = append(flags,
			launchFlag{"no-sandbox", true},
			launchFlag{"disable-dev-shm-usage", true},
		)
	}
	return flags
}
