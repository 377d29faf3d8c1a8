package protect_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/protect-viewer/internal/mocks"
	"github.com/xkilldash9x/protect-viewer/internal/protect"
)

var layoutRoles = []protect.Role{
	protect.RoleBody, protect.RoleHeader, protect.RoleNav, protect.RoleContainer,
	protect.RoleContent, protect.RoleWidgets, protect.RoleExpandButton, protect.RoleViewport,
	protect.RoleFullscreenWrapper, protect.RoleWidgetBorder, protect.RoleCameraNameButton,
	protect.RoleCameraOptions, protect.RolePlayerOptions, protect.RoleTimelineLink, protect.RoleErrorTile,
}

// perCamera roles repeat once per grid slot.
var perCamera = map[protect.Role]bool{
	protect.RoleWidgetBorder:     true,
	protect.RoleCameraNameButton: true,
	protect.RoleCameraOptions:    true,
	protect.RolePlayerOptions:    true,
	protect.RoleTimelineLink:     true,
}

// dashboardPage renders every element generation g knows about, four camera
// slots and one open modal whose close button empties it.
func dashboardPage(g protect.Generation) *mocks.FakePage {
	page := mocks.NewFakePage(dashboardURL)
	seen := map[string]bool{}
	for _, role := range layoutRoles {
		sel := protect.Selector(g, role)
		if sel == "" || seen[sel] {
			continue
		}
		seen[sel] = true
		n := 1
		if perCamera[role] {
			n = 4
		}
		page.Add(sel, n)
	}

	modal := protect.Selector(g, protect.RoleModal)
	closeBtn := protect.Selector(g, protect.RoleModalClose)
	page.Add(modal, 1)
	page.SetChildren(modal, 0, 2)
	page.Add(closeBtn, 1)
	page.OnClick(closeBtn, func(int) {
		page.SetChildren(modal, 0, 0)
		page.Remove(closeBtn)
	})
	return page
}

func newDriver(t *testing.T, g protect.Generation, page protect.Page) protect.LayoutDriver {
	logger := zaptest.NewLogger(t)
	timing := protect.Timing{OptionPollInterval: 2 * time.Millisecond}
	waiter := protect.NewWaiter(logger, 50*time.Millisecond, 2*time.Millisecond, -1)
	d, err := protect.NewLayoutDriver(g, page, waiter, protect.NewMutator(page, logger), logger, timing)
	require.NoError(t, err)
	require.Equal(t, g, d.Generation())
	return d
}

func styleOf(page *mocks.FakePage, g protect.Generation, role protect.Role, index int) map[string]string {
	el := page.Element(protect.Selector(g, role), index)
	if el == nil {
		return nil
	}
	return el.Styles
}

func TestLayoutDriver_Idempotent(t *testing.T) {
	for _, g := range []protect.Generation{protect.Gen2, protect.Gen3, protect.Gen45} {
		t.Run(g.String(), func(t *testing.T) {
			ctx := context.Background()
			page := dashboardPage(g)
			d := newDriver(t, g, page)

			require.NoError(t, d.Apply(ctx))
			once := page.Styles()
			require.NoError(t, d.Apply(ctx))
			twice := page.Styles()

			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("second application changed the page (-once +twice):\n%s", diff)
			}
		})
	}
}

func TestLayoutDriver_Gen2(t *testing.T) {
	page := dashboardPage(protect.Gen2)
	d := newDriver(t, protect.Gen2, page)
	assert.False(t, d.Reapply())

	require.NoError(t, d.Apply(context.Background()))

	assert.Equal(t, "none", styleOf(page, protect.Gen2, protect.RoleHeader, 0)["display"])
	assert.Equal(t, "none", styleOf(page, protect.Gen2, protect.RoleNav, 0)["display"])
	assert.Equal(t, map[string]string{"maxWidth": "100vw", "width": "100vw", "height": "100vh"},
		styleOf(page, protect.Gen2, protect.RoleViewport, 0))
	assert.Zero(t, page.Element(protect.Selector(protect.Gen2, protect.RoleModalClose), 0).Clicks, "Gen-2 leaves modals alone")
}

func TestLayoutDriver_Gen3(t *testing.T) {
	g := protect.Gen3
	page := dashboardPage(g)
	d := newDriver(t, g, page)
	assert.True(t, d.Reapply())

	require.NoError(t, d.Apply(context.Background()))

	for _, role := range []protect.Role{protect.RoleHeader, protect.RoleNav, protect.RoleWidgets, protect.RoleExpandButton} {
		assert.Equal(t, "none", styleOf(page, g, role, 0)["display"], role)
	}
	assert.Nil(t, page.Element(protect.Selector(g, protect.RoleModalClose), 0), "modal was closed")
	for i := 0; i < 4; i++ {
		assert.Equal(t, map[string]string{"pointerEvents": "none", "cursor": "default"},
			styleOf(page, g, protect.RoleCameraNameButton, i))
	}
}

func TestLayoutDriver_Gen45(t *testing.T) {
	g := protect.Gen45
	page := dashboardPage(g)
	page.SetViewportHeight(900)
	d := newDriver(t, g, page)
	assert.True(t, d.Reapply())

	require.NoError(t, d.Apply(context.Background()))

	assert.Equal(t, "1600px", styleOf(page, g, protect.RoleViewport, 0)["maxWidth"])
	assert.Equal(t, "black", styleOf(page, g, protect.RoleFullscreenWrapper, 0)["backgroundColor"])
	assert.Equal(t, "none", styleOf(page, g, protect.RoleContent, 0)["display"])
	for i := 0; i < 4; i++ {
		assert.Equal(t, "black", styleOf(page, g, protect.RoleWidgetBorder, i)["borderColor"])
		assert.Equal(t, "none", styleOf(page, g, protect.RoleCameraOptions, i)["display"])
		assert.Equal(t, "none", styleOf(page, g, protect.RolePlayerOptions, i)["display"])
		assert.Equal(t, "none", styleOf(page, g, protect.RoleTimelineLink, i)["display"])
	}
	assert.Equal(t, "black", styleOf(page, g, protect.RoleErrorTile, 0)["backgroundColor"])
}

func TestLayoutDriver_Gen45SparseDOM(t *testing.T) {
	g := protect.Gen45
	page := mocks.NewFakePage(dashboardURL)
	page.Add(protect.Selector(g, protect.RoleContainer), 1)
	page.Add(protect.Selector(g, protect.RoleViewport), 1)
	d := newDriver(t, g, page)

	require.NoError(t, d.Apply(context.Background()), "absent elements degrade, they do not fail the layout")
	assert.Equal(t, "1920px", styleOf(page, g, protect.RoleViewport, 0)["maxWidth"])
}

func TestLayoutDriver_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := newDriver(t, protect.Gen3, mocks.NewFakePage(dashboardURL))
	assert.ErrorIs(t, d.Apply(ctx), context.Canceled)
}

func TestNewLayoutDriver_Unsupported(t *testing.T) {
	page := mocks.NewFakePage(dashboardURL)
	_, err := protect.NewLayoutDriver(protect.Unknown, page, protect.NewWaiter(nil, 0, 0, 0), protect.NewMutator(page, nil), nil, protect.Timing{})
	assert.ErrorIs(t, err, protect.ErrUnsupportedGeneration)
}
