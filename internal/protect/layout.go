package protect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// LayoutDriver turns one dashboard generation into a full-screen camera
// grid. Apply must be idempotent: the host page can re-render and undo
// earlier changes, so drivers are re-applied.
type LayoutDriver interface {
	Generation() Generation
	// Reapply reports whether the driver should run a second time after
	// the reapply delay.
	Reapply() bool
	// Apply returns an error only when ctx is done. Missing elements
	// degrade individual steps.
	Apply(ctx context.Context) error
}

// layoutDrivers registers one constructor per supported generation.
var layoutDrivers = map[Generation]func(*layoutKit) LayoutDriver{
	Gen2:  func(k *layoutKit) LayoutDriver { return &gen2Layout{k} },
	Gen3:  func(k *layoutKit) LayoutDriver { return &gen3Layout{k} },
	Gen45: func(k *layoutKit) LayoutDriver { return &gen45Layout{k} },
}

// NewLayoutDriver returns the driver for generation g.
func NewLayoutDriver(g Generation, page Page, waiter *Waiter, mutator *Mutator, logger *zap.Logger, timing Timing) (LayoutDriver, error) {
	build, ok := layoutDrivers[g]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeneration, g)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return build(&layoutKit{
		gen:     g,
		page:    page,
		waiter:  waiter,
		mutator: mutator,
		logger:  logger.With(zap.Stringer("generation", g)),
		timing:  timing,
	}), nil
}

// layoutKit holds what every driver needs.
type layoutKit struct {
	gen     Generation
	page    Page
	waiter  *Waiter
	mutator *Mutator
	logger  *zap.Logger
	timing  Timing
}

func (k *layoutKit) Generation() Generation { return k.gen }

func (k *layoutKit) sel(role Role) string { return Selector(k.gen, role) }

func (k *layoutKit) el(role Role) Element { return First(k.sel(role)) }

// wait runs one synchronization point. A timeout is logged and the driver
// carries on; only cancellation is returned.
func (k *layoutKit) wait(ctx context.Context, name string, cond Condition, interval time.Duration) (bool, error) {
	ok, err := k.waiter.Await(ctx, name, cond, 0, interval)
	if err != nil {
		return false, err
	}
	if !ok {
		k.logger.Warn("Element did not appear; continuing with a partial layout.", zap.String("wait", name))
	}
	return ok, nil
}

// hideIfPresent hides role only when it is currently rendered.
func (k *layoutKit) hideIfPresent(ctx context.Context, role Role) {
	el := k.el(role)
	if !k.mutator.Exists(ctx, el) {
		k.logger.Debug("Element absent; nothing to hide.", zap.String("role", string(role)))
		return
	}
	k.mutator.Hide(ctx, el)
}

// closeModals clicks every modal close control and waits until all modal
// containers are empty. It reports whether they emptied in time.
func (k *layoutKit) closeModals(ctx context.Context) (bool, error) {
	closeSel := k.sel(RoleModalClose)
	// Closing a modal can remove its control, so click from the last match
	// backwards to keep the remaining indexes stable.
	for i := k.mutator.Count(ctx, closeSel) - 1; i >= 0; i-- {
		k.mutator.Click(ctx, Element{Selector: closeSel, Index: i})
	}

	modalSel := k.sel(RoleModal)
	allEmpty := func(ctx context.Context) (bool, error) {
		n, err := k.page.Count(ctx, modalSel)
		if err != nil {
			return false, err
		}
		for i := 0; i < n; i++ {
			children, err := k.page.ChildCount(ctx, Element{Selector: modalSel, Index: i})
			if err != nil {
				return false, err
			}
			if children > 0 {
				return false, nil
			}
		}
		return true, nil
	}
	return k.wait(ctx, "modals closed", allEmpty, 0)
}

// aspectMaxWidth caps the camera grid at a 16:9 box for a window of the given
// inner height.
func aspectMaxWidth(height int) string {
	if height <= 0 {
		return "calc(100vh * 16 / 9)"
	}
	return fmt.Sprintf("%dpx", height*16/9)
}

var (
	hidden        = Style{Property: "display", Value: "none"}
	blackBackdrop = Style{Property: "backgroundColor", Value: "black"}
)
