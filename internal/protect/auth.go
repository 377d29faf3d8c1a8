package protect

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// AuthState is a step of the login state machine.
type AuthState int

const (
	AwaitingLoginForm AuthState = iota
	FillingCredentials
	AwaitingRedirect
	AuthSucceeded
	AuthFailed
)

func (s AuthState) String() string {
	switch s {
	case AwaitingLoginForm:
		return "awaiting-login-form"
	case FillingCredentials:
		return "filling-credentials"
	case AwaitingRedirect:
		return "awaiting-redirect"
	case AuthSucceeded:
		return "succeeded"
	case AuthFailed:
		return "failed"
	default:
		return fmt.Sprintf("AuthState(%d)", int(s))
	}
}

// loginRouteMarker is present in the dashboard URL while the login form is
// shown.
const loginRouteMarker = "login"

// Authenticator fills the login form and waits for the dashboard to leave
// the login route.
type Authenticator struct {
	page    Page
	config  ConfigLoader
	waiter  *Waiter
	mutator *Mutator
	logger  *zap.Logger
}

// NewAuthenticator returns an Authenticator.
func NewAuthenticator(page Page, config ConfigLoader, waiter *Waiter, mutator *Mutator, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{page: page, config: config, waiter: waiter, mutator: mutator, logger: logger}
}

// Login runs the state machine to completion. It returns AuthSucceeded with
// a nil error, or AuthFailed with an error wrapping ErrAuthenticationFailed
// or ErrMissingConfiguration. A canceled ctx returns the state reached so
// far together with ctx.Err().
func (a *Authenticator) Login(ctx context.Context) (AuthState, error) {
	state := AwaitingLoginForm
	log := a.logger
	transition := func(next AuthState) {
		log.Debug("Login state change.", zap.Stringer("from", state), zap.Stringer("to", next))
		state = next
	}

	loginButton := First(Selector(Unknown, RoleLoginButton))
	ok, err := a.waiter.Until(ctx, "login button", ElementAt(a.page, loginButton))
	if err != nil {
		return state, err
	}
	if !ok {
		transition(AuthFailed)
		return state, fmt.Errorf("%w: login form never appeared", ErrAuthenticationFailed)
	}

	cfg, err := a.config.LoadConfig(ctx)
	if err != nil {
		transition(AuthFailed)
		return state, fmt.Errorf("%w: %v", ErrMissingConfiguration, err)
	}
	if cfg == nil || cfg.Username == "" || cfg.Password == "" {
		transition(AuthFailed)
		return state, fmt.Errorf("%w: username or password not set", ErrMissingConfiguration)
	}

	transition(FillingCredentials)
	a.mutator.SetValue(ctx, First(Selector(Unknown, RoleUsernameField)), cfg.Username)
	a.mutator.SetValue(ctx, First(Selector(Unknown, RolePasswordField)), cfg.Password)
	a.mutator.Click(ctx, loginButton)

	transition(AwaitingRedirect)
	left, err := a.waiter.Until(ctx, "leave login route", a.leftLoginRoute)
	if err != nil {
		return state, err
	}
	if !left {
		transition(AuthFailed)
		return state, fmt.Errorf("%w: still on the login route", ErrAuthenticationFailed)
	}

	transition(AuthSucceeded)
	log.Info("Logged in.")
	return state, nil
}

func (a *Authenticator) leftLoginRoute(ctx context.Context) (bool, error) {
	loc, err := a.page.Location(ctx)
	if err != nil {
		return false, err
	}
	return !strings.Contains(loc, loginRouteMarker), nil
}
