package shell

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type request int

const (
	requestRestart request = iota + 1
	requestReset
)

func (r request) String() string {
	switch r {
	case requestRestart:
		return "restart"
	case requestReset:
		return "reset"
	default:
		return "none"
	}
}

// keyHandler turns forwarded key presses into shell requests. A held key
// repeats keydown, so presses are rate limited.
type keyHandler struct {
	restartKey string
	resetKey   string
	limiter    *rate.Limiter
	out        chan<- request
	logger     *zap.Logger
}

func newKeyHandler(restartKey, resetKey string, cooldown time.Duration, out chan<- request, logger *zap.Logger) *keyHandler {
	limit := rate.Inf
	if cooldown > 0 {
		limit = rate.Every(cooldown)
	}
	return &keyHandler{
		restartKey: restartKey,
		resetKey:   resetKey,
		limiter:    rate.NewLimiter(limit, 1),
		out:        out,
		logger:     logger,
	}
}

// press never blocks; it runs on the browser's event goroutine.
func (k *keyHandler) press(key string) {
	var req request
	switch key {
	case k.restartKey:
		req = requestRestart
	case k.resetKey:
		req = requestReset
	default:
		return
	}
	if !k.limiter.Allow() {
		k.logger.Debug("Ignoring repeated key press.", zap.String("key", key))
		return
	}
	select {
	case k.out <- req:
		k.logger.Info("Key pressed.", zap.String("key", key), zap.Stringer("request", req))
	default:
		k.logger.Debug("A request is already pending.", zap.String("key", key))
	}
}
