package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/protect-viewer/internal/config"
	"github.com/xkilldash9x/protect-viewer/internal/store"
)

// flagValue returns the value of the last flag named name, since Chrome
// honors the last occurrence.
func flagValue(flags []launchFlag, name string) (interface{}, bool) {
	var (
		v     interface{}
		found bool
	)
	for _, f := range flags {
		if f.Name == name {
			v, found = f.Value, true
		}
	}
	return v, found
}

func TestLaunchFlags(t *testing.T) {
	base := config.NewDefaultConfig().Browser

	t.Run("Defaults", func(t *testing.T) {
		flags := launchFlags(base, nil, "darwin")

		v, ok := flagValue(flags, "enable-automation")
		assert.True(t, ok)
		assert.Equal(t, false, v, "the automation switch is removed")

		v, _ = flagValue(flags, "headless")
		assert.Equal(t, false, v, "the dashboard window is visible")

		v, _ = flagValue(flags, "window-size")
		assert.Equal(t, "1280,760", v)

		_, ok = flagValue(flags, "window-position")
		assert.False(t, ok)
		_, ok = flagValue(flags, "no-sandbox")
		assert.False(t, ok)
		_, ok = flagValue(flags, "kiosk")
		assert.False(t, ok)

		v, ok = flagValue(flags, "app")
		assert.True(t, ok, "the window opens as an app window without tabs")
		assert.Equal(t, "about:blank", v)
	})

	t.Run("SavedBounds", func(t *testing.T) {
		flags := launchFlags(base, &store.Bounds{X: 1920, Y: 0, Width: 1920, Height: 1080}, "darwin")

		v, _ := flagValue(flags, "window-size")
		assert.Equal(t, "1920,1080", v)
		v, _ = flagValue(flags, "window-position")
		assert.Equal(t, "1920,0", v)
	})

	t.Run("InvalidBoundsIgnored", func(t *testing.T) {
		flags := launchFlags(base, &store.Bounds{X: 5, Y: 5}, "darwin")
		_, ok := flagValue(flags, "window-position")
		assert.False(t, ok)
	})

	t.Run("Kiosk", func(t *testing.T) {
		cfg := base
		cfg.Kiosk = true
		flags := launchFlags(cfg, nil, "windows")
		v, ok := flagValue(flags, "kiosk")
		assert.True(t, ok)
		assert.Equal(t, true, v)
		_, ok = flagValue(flags, "app")
		assert.False(t, ok, "kiosk already hides the browser chrome")
	})

	t.Run("CustomArgs", func(t *testing.T) {
		cfg := base
		cfg.Args = []string{"--force-device-scale-factor=1.5", "--start-maximized", "--"}
		flags := launchFlags(cfg, nil, "darwin")

		v, _ := flagValue(flags, "force-device-scale-factor")
		assert.Equal(t, "1.5", v)
		v, _ = flagValue(flags, "start-maximized")
		assert.Equal(t, true, v)
		_, ok := flagValue(flags, "")
		assert.False(t, ok)
	})

	t.Run("Linux", func(t *testing.T) {
		flags := launchFlags(base, nil, "linux")
		v, _ := flagValue(flags, "no-sandbox")
		assert.Equal(t, true, v)
	})

	t.Run("TLSErrors", func(t *testing.T) {
		cfg := base
		cfg.IgnoreTLSErrors = false
		v, _ := flagValue(launchFlags(cfg, nil, "darwin"), "ignore-certificate-errors")
		assert.Equal(t, false, v)
	})
}

func TestAllocatorOptions(t *testing.T) {
	cfg := config.NewDefaultConfig().Browser
	plain := AllocatorOptions(cfg, nil)

	cfg.ExecPath = "/usr/bin/chromium"
	cfg.UserDataDir = t.TempDir()
	cfg.UserAgent = "Wall/1.0"
	full := AllocatorOptions(cfg, nil)

	assert.Len(t, full, len(plain)+3)
}
