package protect

import (
	"context"

	"go.uber.org/zap"
)

// gen45Layout handles the 4.x and 5.x dashboards. Their DOM varies between
// point releases, so most steps check for presence first.
type gen45Layout struct{ *layoutKit }

func (d *gen45Layout) Reapply() bool { return true }

func (d *gen45Layout) Apply(ctx context.Context) error {
	if _, err := d.wait(ctx, "fullscreen wrapper", ElementAt(d.page, d.el(RoleContainer)), 0); err != nil {
		return err
	}
	if _, err := d.closeModals(ctx); err != nil {
		return err
	}

	for _, role := range []Role{RoleWidgets, RoleExpandButton, RoleContent} {
		d.hideIfPresent(ctx, role)
	}
	d.mutator.Hide(ctx, d.el(RoleHeader))
	d.mutator.Hide(ctx, d.el(RoleNav))

	d.mutator.SetStyles(ctx, d.el(RoleFullscreenWrapper), blackBackdrop)
	d.mutator.SetStyleAll(ctx, d.sel(RoleWidgetBorder), Style{Property: "borderColor", Value: "black"})

	height, err := d.page.ViewportHeight(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Debug("Could not read viewport height; using a CSS fallback.", zap.Error(err))
	}
	d.mutator.SetStyle(ctx, d.el(RoleViewport), "maxWidth", aspectMaxWidth(height))

	// Option controls render late, well after the grid itself.
	for _, role := range []Role{RoleCameraOptions, RolePlayerOptions} {
		sel := d.sel(role)
		ok, err := d.wait(ctx, string(role), NonEmpty(d.page, sel), d.timing.OptionPollInterval)
		if err != nil {
			return err
		}
		if ok {
			d.mutator.SetStyleAll(ctx, sel, hidden)
		}
	}
	d.mutator.SetStyleAll(ctx, d.sel(RoleTimelineLink), hidden)

	d.mutator.SetStyleAll(ctx, d.sel(RoleErrorTile), blackBackdrop, Style{Property: "color", Value: "black"})
	return nil
}
