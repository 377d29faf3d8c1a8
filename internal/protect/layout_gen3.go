package protect

import "context"

// gen3Layout handles the 3.x dashboard.
type gen3Layout struct{ *layoutKit }

func (d *gen3Layout) Reapply() bool { return true }

func (d *gen3Layout) Apply(ctx context.Context) error {
	if _, err := d.wait(ctx, "live view container", ElementAt(d.page, d.el(RoleContainer)), 0); err != nil {
		return err
	}
	chrome := AllNonEmpty(d.page, d.sel(RoleWidgets), d.sel(RoleHeader), d.sel(RoleExpandButton))
	if _, err := d.wait(ctx, "dashboard chrome", chrome, 0); err != nil {
		return err
	}
	if _, err := d.closeModals(ctx); err != nil {
		return err
	}

	d.mutator.SetStyle(ctx, d.el(RoleBody), "background", "black")
	for _, role := range []Role{RoleHeader, RoleNav, RoleWidgets, RoleExpandButton} {
		d.mutator.Hide(ctx, d.el(role))
	}
	d.mutator.SetStyles(ctx, d.el(RoleContent),
		Style{Property: "display", Value: "block"},
		Style{Property: "padding", Value: "0"},
	)
	d.mutator.SetStyles(ctx, d.el(RoleViewport),
		Style{Property: "maxWidth", Value: "100vw"},
		Style{Property: "height", Value: "100vh"},
	)

	// Camera names are buttons that open the camera page; a stray touch on
	// the wall would navigate away.
	names := d.sel(RoleCameraNameButton)
	ok, err := d.wait(ctx, "camera name buttons", NonEmpty(d.page, names), 0)
	if err != nil {
		return err
	}
	if ok {
		d.mutator.SetStyleAll(ctx, names,
			Style{Property: "pointerEvents", Value: "none"},
			Style{Property: "cursor", Value: "default"},
		)
	}
	return nil
}
