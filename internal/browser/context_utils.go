package browser

import "context"

// CombineContext returns a context that carries the values of primary and is
// canceled when either primary or secondary is done. chromedp needs the tab
// context's values while callers supply their own deadline.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

// Detach returns a context with the values of ctx that outlives ctx. The
// browser allocator runs under it so a canceled command context does not
// kill the window before its bounds are saved.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
