package protect

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// versionMarker identifies the dashboard's own version label among the
// other application versions listed next to it.
const versionMarker = "Protect"

var majorVersion = regexp.MustCompile(`Protect\D{0,16}?(\d+)\.\d+`)

// VersionDetector reads the dashboard version label.
type VersionDetector struct {
	page    Page
	waiter  *Waiter
	logger  *zap.Logger
	timeout time.Duration
}

// NewVersionDetector returns a detector that waits up to timeout for a
// version label to render.
func NewVersionDetector(page Page, waiter *Waiter, logger *zap.Logger, timeout time.Duration) *VersionDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionDetector{page: page, waiter: waiter, logger: logger, timeout: timeout}
}

// Detect returns the text of the first version label mentioning Protect, or
// "" when none renders within the detection timeout.
func (d *VersionDetector) Detect(ctx context.Context) (string, error) {
	sel := Selector(Unknown, RoleVersionLabel)
	hasLabel := func(ctx context.Context) (bool, error) {
		label, err := d.scan(ctx, sel)
		return label != "", err
	}
	ok, err := d.waiter.Await(ctx, "version label", hasLabel, d.timeout, 0)
	if err != nil {
		return "", err
	}
	if !ok {
		d.logger.Warn("No version label found.", zap.Duration("timeout", d.timeout))
		return "", nil
	}
	return d.scan(ctx, sel)
}

func (d *VersionDetector) scan(ctx context.Context, selector string) (string, error) {
	texts, err := d.page.InnerTexts(ctx, selector)
	if err != nil {
		return "", err
	}
	for _, text := range texts {
		if strings.Contains(text, versionMarker) {
			return strings.TrimSpace(text), nil
		}
	}
	return "", nil
}

// ClassifyVersion maps a version label to a dashboard generation. This is
// the only place that interprets the label format.
//
// An empty label classifies as Gen3. A label with a recognizable major
// version maps 2 to Gen2, 3 to Gen3 and 4 or 5 to Gen45; any other major
// version is Unknown. Labels without a parsable major version fall back to
// substring matching ("4." or "5." for Gen45) and otherwise to Gen3.
//
// This is stricter than a plain substring rule, under which "6.x" would run
// the Gen3 driver and "2.x" would too. A major release the drivers were never
// written for halts the run as Unknown instead of mutating an unfamiliar DOM.
func ClassifyVersion(label string) Generation {
	if strings.TrimSpace(label) == "" {
		return Gen3
	}
	if m := majorVersion.FindStringSubmatch(label); m != nil {
		major, err := strconv.Atoi(m[1])
		if err == nil {
			switch major {
			case 2:
				return Gen2
			case 3:
				return Gen3
			case 4, 5:
				return Gen45
			default:
				return Unknown
			}
		}
	}
	switch {
	case strings.Contains(label, "3."):
		return Gen3
	case strings.Contains(label, "4."), strings.Contains(label, "5."):
		return Gen45
	default:
		return Gen3
	}
}
