package protect

import (
	"context"

	"go.uber.org/zap"
)

// Mutator applies best-effort changes to the page. Nothing it does returns
// an error: a missing element or a failed assignment is logged and skipped,
// so one absent control never aborts a layout.
type Mutator struct {
	page   Page
	logger *zap.Logger
}

// NewMutator returns a Mutator for page.
func NewMutator(page Page, logger *zap.Logger) *Mutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{page: page, logger: logger}
}

// SetValue fills a form field the way the dashboard's UI framework expects.
func (m *Mutator) SetValue(ctx context.Context, el Element, value string) {
	m.apply("set value", el, func() (bool, error) { return m.page.SetValue(ctx, el, value) })
}

// Click activates el.
func (m *Mutator) Click(ctx context.Context, el Element) {
	m.apply("click", el, func() (bool, error) { return m.page.Click(ctx, el) })
}

// SetStyle sets one inline style property on el.
func (m *Mutator) SetStyle(ctx context.Context, el Element, property, value string) {
	m.apply("set style "+property, el, func() (bool, error) { return m.page.SetStyle(ctx, el, property, value) })
}

// SetStyles sets several inline style properties on el, in the given order.
func (m *Mutator) SetStyles(ctx context.Context, el Element, styles ...Style) {
	for _, s := range styles {
		m.SetStyle(ctx, el, s.Property, s.Value)
	}
}

// SetStyleAll applies styles to every current match of selector.
func (m *Mutator) SetStyleAll(ctx context.Context, selector string, styles ...Style) {
	n := m.Count(ctx, selector)
	if n == 0 {
		m.logger.Debug("No elements to style.", zap.String("selector", selector))
		return
	}
	for i := 0; i < n; i++ {
		m.SetStyles(ctx, Element{Selector: selector, Index: i}, styles...)
	}
}

// Hide sets display:none on el.
func (m *Mutator) Hide(ctx context.Context, el Element) {
	m.SetStyle(ctx, el, "display", "none")
}

// Count returns the number of matches for selector, or 0 when the query
// fails.
func (m *Mutator) Count(ctx context.Context, selector string) int {
	if selector == "" {
		return 0
	}
	n, err := m.page.Count(ctx, selector)
	if err != nil {
		m.logger.Debug("Query failed.", zap.String("selector", selector), zap.Error(err))
		return 0
	}
	return n
}

// Exists reports whether el is present right now.
func (m *Mutator) Exists(ctx context.Context, el Element) bool {
	return m.Count(ctx, el.Selector) > el.Index
}

func (m *Mutator) apply(action string, el Element, do func() (bool, error)) {
	if el.Selector == "" {
		m.logger.Error("No selector for element; skipping.", zap.String("action", action))
		return
	}
	found, err := do()
	switch {
	case err != nil:
		m.logger.Error("Mutation failed; skipping.", zap.String("action", action), zap.Stringer("element", el), zap.Error(err))
	case !found:
		m.logger.Error("Element not found; skipping.", zap.String("action", action), zap.Stringer("element", el))
	}
}

// Style is one inline style assignment. Property uses the CSSOM camelCase
// name, e.g. "maxWidth".
type Style struct {
	Property string
	Value    string
}

// -- Presence conditions --

// ElementAt holds once el exists.
func ElementAt(page Page, el Element) Condition {
	return func(ctx context.Context) (bool, error) {
		n, err := page.Count(ctx, el.Selector)
		if err != nil {
			return false, err
		}
		return n > el.Index, nil
	}
}

// NonEmpty holds once selector matches at least one element.
func NonEmpty(page Page, selector string) Condition {
	return ElementAt(page, First(selector))
}

// AllNonEmpty holds once every selector matches at least one element.
func AllNonEmpty(page Page, selectors ...string) Condition {
	return func(ctx context.Context) (bool, error) {
		for _, sel := range selectors {
			n, err := page.Count(ctx, sel)
			if err != nil {
				return false, err
			}
			if n == 0 {
				return false, nil
			}
		}
		return true, nil
	}
}

// Absent holds once selector matches nothing.
func Absent(page Page, selector string) Condition {
	return func(ctx context.Context) (bool, error) {
		n, err := page.Count(ctx, selector)
		if err != nil {
			return false, err
		}
		return n == 0, nil
	}
}
