package protect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Timing holds the engine's tunable delays.
type Timing struct {
	PollInterval       time.Duration
	SettleDelay        time.Duration
	DefaultTimeout     time.Duration
	VersionTimeout     time.Duration
	ReapplyDelay       time.Duration
	OptionPollInterval time.Duration
	WatchdogInterval   time.Duration
	WatchdogLead       time.Duration
}

// DefaultTiming returns the delays used against a real dashboard.
func DefaultTiming() Timing {
	return Timing{
		PollInterval:       DefaultInterval,
		SettleDelay:        DefaultSettle,
		DefaultTimeout:     DefaultTimeout,
		VersionTimeout:     15 * time.Second,
		ReapplyDelay:       4 * time.Second,
		OptionPollInterval: 500 * time.Millisecond,
		WatchdogInterval:   DefaultWatchdogInterval,
		WatchdogLead:       DefaultWatchdogLead,
	}
}

// Env is everything one run depends on. It replaces process-wide state, so
// several runners with different configurations can coexist.
type Env struct {
	Page     Page
	Config   ConfigLoader
	Logger   *zap.Logger
	Timing   Timing
	Recorder Recorder
	// Now defaults to time.Now.
	Now func() time.Time
	// ConfigScreenURL is where the shell serves its configuration form. A
	// run that finds the page there does nothing.
	ConfigScreenURL string
	// SessionExpiryKey defaults to DefaultSessionExpiryKey.
	SessionExpiryKey string
}

// State is a step of a run.
type State int

const (
	StateDetectRoute State = iota
	StateWaitLoadingScreen
	StateLogin
	StateDetectVersion
	StateApplyLayout
	StateReapplyLayout
	StateArmWatchdog

	// Terminal states.
	StateConfigScreen
	StateNavigated
	StateSucceeded
	StateFailed
	StateCanceled
)

var stateNames = map[State]string{
	StateDetectRoute:       "detect-route",
	StateWaitLoadingScreen: "wait-loading-screen",
	StateLogin:             "login",
	StateDetectVersion:     "detect-version",
	StateApplyLayout:       "apply-layout",
	StateReapplyLayout:     "reapply-layout",
	StateArmWatchdog:       "arm-watchdog",
	StateConfigScreen:      "config-screen",
	StateNavigated:         "navigated",
	StateSucceeded:         "succeeded",
	StateFailed:            "failed",
	StateCanceled:          "canceled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Outcome is how a run ended.
type Outcome struct {
	RunID      string
	State      State
	Generation Generation
	// Reloaded is set when the watchdog reloaded the page.
	Reloaded bool
	// Err is set for StateFailed and StateCanceled.
	Err error
}

// Runner adapts one page load.
type Runner struct {
	env    Env
	logger *zap.Logger
}

// NewRunner validates env and fills in its defaults.
func NewRunner(env Env) (*Runner, error) {
	if env.Page == nil {
		return nil, errors.New("runner requires a page")
	}
	if env.Config == nil {
		return nil, errors.New("runner requires a configuration loader")
	}
	if env.Logger == nil {
		env.Logger = zap.NewNop()
	}
	if env.Recorder == nil {
		env.Recorder = nopRecorder{}
	}
	if env.Now == nil {
		env.Now = time.Now
	}
	if env.Timing == (Timing{}) {
		env.Timing = DefaultTiming()
	}
	return &Runner{env: env, logger: env.Logger.Named("run")}, nil
}

// Run drives one page load from route detection to the armed watchdog. It
// blocks while the watchdog waits; cancel ctx when the page loads again.
// Steps run strictly in sequence and Run never panics on page errors.
func (r *Runner) Run(ctx context.Context) (out Outcome) {
	out = Outcome{RunID: uuid.NewString(), State: StateDetectRoute, Generation: Unknown}
	log := r.logger.With(zap.String("run_id", out.RunID))
	enter := func(s State) {
		log.Debug("Run state change.", zap.Stringer("from", out.State), zap.Stringer("to", s))
		out.State = s
	}
	halt := func(err error) Outcome {
		if ctx.Err() != nil {
			enter(StateCanceled)
			out.Err = ctx.Err()
			return out
		}
		enter(StateFailed)
		out.Err = err
		return out
	}
	defer func() {
		r.env.Recorder.RunFinished(out.State.String())
		switch out.State {
		case StateFailed:
			log.Error("Run stopped.", zap.Stringer("generation", out.Generation), zap.Error(out.Err))
		case StateCanceled:
			log.Debug("Run superseded.")
		default:
			log.Info("Run finished.", zap.Stringer("state", out.State), zap.Stringer("generation", out.Generation))
		}
	}()

	t := r.env.Timing
	page := r.env.Page
	waiter := NewWaiter(log, t.DefaultTimeout, t.PollInterval, t.SettleDelay)
	mutator := NewMutator(page, log)

	loc, err := page.Location(ctx)
	if err != nil {
		return halt(fmt.Errorf("failed to read location: %w", err))
	}
	if ClassifyRoute(loc, "", r.env.ConfigScreenURL) == RouteConfigScreen {
		enter(StateConfigScreen)
		return out
	}

	cfg, err := r.env.Config.LoadConfig(ctx)
	if err != nil {
		return halt(fmt.Errorf("%w: %v", ErrMissingConfiguration, err))
	}
	if err := cfg.Validate(); err != nil {
		return halt(err)
	}

	route := ClassifyRoute(loc, cfg.URL, r.env.ConfigScreenURL)
	log.Debug("Route detected.", zap.String("location", loc), zap.Stringer("route", route))
	if route == RouteElsewhere {
		log.Info("Navigating to the dashboard.", zap.String("from", loc), zap.String("to", cfg.URL))
		if err := page.Navigate(ctx, cfg.URL); err != nil {
			return halt(fmt.Errorf("failed to navigate: %w", err))
		}
		enter(StateNavigated)
		return out
	}

	enter(StateWaitLoadingScreen)
	gone, err := waiter.Until(ctx, "loading screen gone", Absent(page, Selector(Unknown, RoleLoadingScreen)))
	if err != nil {
		return halt(err)
	}
	if !gone {
		log.Warn("Loading screen still visible; continuing.")
	}

	if loc, err = page.Location(ctx); err != nil {
		return halt(fmt.Errorf("failed to read location: %w", err))
	}
	if ClassifyRoute(loc, cfg.URL, r.env.ConfigScreenURL) == RouteLogin {
		enter(StateLogin)
		auth := NewAuthenticator(page, r.env.Config, waiter, mutator, log)
		if _, err := auth.Login(ctx); err != nil {
			return halt(err)
		}
		if loc, err = page.Location(ctx); err != nil {
			return halt(fmt.Errorf("failed to read location: %w", err))
		}
	}

	if ClassifyRoute(loc, cfg.URL, r.env.ConfigScreenURL) == RouteLiveview {
		out.Generation = Gen2
	} else {
		enter(StateDetectVersion)
		label, err := NewVersionDetector(page, waiter, log, t.VersionTimeout).Detect(ctx)
		if err != nil {
			return halt(err)
		}
		out.Generation = ClassifyVersion(label)
		log.Info("Dashboard version detected.", zap.String("label", label), zap.Stringer("generation", out.Generation))
	}

	driver, err := NewLayoutDriver(out.Generation, page, waiter, mutator, log, t)
	if err != nil {
		return halt(err)
	}
	enter(StateApplyLayout)
	if err := driver.Apply(ctx); err != nil {
		return halt(err)
	}
	r.env.Recorder.LayoutApplied(out.Generation.String())

	if driver.Reapply() {
		enter(StateReapplyLayout)
		if err := Sleep(ctx, t.ReapplyDelay); err != nil {
			return halt(err)
		}
		if err := driver.Apply(ctx); err != nil {
			return halt(err)
		}
	}

	enter(StateArmWatchdog)
	watchdog := NewWatchdog(page, waiter, log, r.env.Recorder, r.env.Now, r.env.SessionExpiryKey, t.WatchdogLead, t.WatchdogInterval)
	reloaded, err := watchdog.Run(ctx, cfg.URL)
	if err != nil {
		return halt(err)
	}
	out.Reloaded = reloaded
	enter(StateSucceeded)
	return out
}
