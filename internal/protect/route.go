package protect

import "strings"

// Route is what the page is currently showing, relative to the configured
// dashboard.
type Route int

const (
	RouteElsewhere Route = iota
	RouteConfigScreen
	RouteLogin
	RouteLiveview
	RouteDashboard
)

func (r Route) String() string {
	switch r {
	case RouteConfigScreen:
		return "config-screen"
	case RouteLogin:
		return "login"
	case RouteLiveview:
		return "liveview"
	case RouteDashboard:
		return "dashboard"
	default:
		return "elsewhere"
	}
}

// liveviewMarker appears in the URLs of Gen-2 live views, which never show
// a version label.
const liveviewMarker = "/protect/liveview"

// ClassifyRoute places location relative to the configured target URL and
// the shell's configuration screen. The login route wins over the target
// check because the dashboard redirects there before the target loads.
func ClassifyRoute(location, target, configScreen string) Route {
	switch {
	case configScreen != "" && matchesURL(location, configScreen):
		return RouteConfigScreen
	case strings.Contains(location, loginRouteMarker):
		return RouteLogin
	case !matchesURL(location, target):
		return RouteElsewhere
	case strings.Contains(location, liveviewMarker):
		return RouteLiveview
	default:
		return RouteDashboard
	}
}

// MatchesTarget reports whether location is the target page or below it.
func MatchesTarget(location, target string) bool {
	return matchesURL(location, target)
}

// matchesURL reports whether location equals prefix or continues it at a
// path, query or fragment boundary, so /dashboard/X2 is not below /dashboard/X.
func matchesURL(location, prefix string) bool {
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return false
	}
	location = strings.TrimRight(location, "/")
	if !strings.HasPrefix(location, prefix) {
		return false
	}
	rest := location[len(prefix):]
	return rest == "" || strings.ContainsRune("/?#", rune(rest[0]))
}
