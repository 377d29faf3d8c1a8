package protect

import "context"

// gen2Layout handles the 1.x/2.x "liveview" pages, which only need the page
// chrome removed and the viewport stretched.
type gen2Layout struct{ *layoutKit }

func (d *gen2Layout) Reapply() bool { return false }

func (d *gen2Layout) Apply(ctx context.Context) error {
	viewport := d.el(RoleViewport)
	if _, err := d.wait(ctx, "viewport wrapper", ElementAt(d.page, viewport), 0); err != nil {
		return err
	}

	d.mutator.SetStyle(ctx, d.el(RoleBody), "background", "black")
	d.mutator.Hide(ctx, d.el(RoleHeader))
	d.mutator.Hide(ctx, d.el(RoleNav))
	d.mutator.SetStyles(ctx, viewport,
		Style{Property: "maxWidth", Value: "100vw"},
		Style{Property: "width", Value: "100vw"},
		Style{Property: "height", Value: "100vh"},
	)
	return nil
}
