package protect

// Generation identifies one of the incompatible dashboard DOM layouts.
type Generation int

const (
	Unknown Generation = iota
	Gen2
	Gen3
	Gen45
)

func (g Generation) String() string {
	switch g {
	case Gen2:
		return "gen-2"
	case Gen3:
		return "gen-3"
	case Gen45:
		return "gen-4/5"
	default:
		return "unknown"
	}
}

// Role names a structural element the engine waits for or mutates.
type Role string

const (
	RoleLoadingScreen     Role = "loading-screen"
	RoleVersionLabel      Role = "version-label"
	RoleUsernameField     Role = "username-field"
	RolePasswordField     Role = "password-field"
	RoleLoginButton       Role = "login-button"
	RoleModal             Role = "modal"
	RoleModalClose        Role = "modal-close"
	RoleBody              Role = "body"
	RoleHeader            Role = "header"
	RoleNav               Role = "nav"
	RoleContainer         Role = "container"
	RoleContent           Role = "content"
	RoleWidgets           Role = "widgets"
	RoleExpandButton      Role = "expand-button"
	RoleViewport          Role = "viewport"
	RoleFullscreenWrapper Role = "fullscreen-wrapper"
	RoleWidgetBorder      Role = "widget-border"
	RoleCameraNameButton  Role = "camera-name-button"
	RoleCameraOptions     Role = "camera-options"
	RolePlayerOptions     Role = "player-options"
	RoleTimelineLink      Role = "timeline-link"
	RoleErrorTile         Role = "error-tile"
)

// sharedSelectors apply to every generation unless a generation row
// overrides them.
var sharedSelectors = map[Role]string{
	RoleLoadingScreen: "#loader-screen",
	RoleVersionLabel:  "[class*=Version__Item]",
	RoleUsernameField: "input[name=username]",
	RolePasswordField: "input[name=password]",
	RoleLoginButton:   "button[type=submit]",
	RoleModal:         ".ReactModalPortal",
	RoleModalClose:    ".ReactModalPortal button[aria-label=Close]",
	RoleBody:          "body",
	RoleHeader:        "header",
	RoleNav:           "nav",
}

// generationSelectors is the versioned selector table. Supporting a new
// dashboard release means adding one row here and one driver in layout.go.
var generationSelectors = map[Generation]map[Role]string{
	Gen2: {
		RoleViewport: "[class^=liveview__ViewportsWrapper]",
	},
	Gen3: {
		RoleContainer:        "[class^=dashboard__LiveViewWrapper]",
		RoleContent:          "[class^=dashboard__Content]",
		RoleWidgets:          "[class^=dashboard__Widgets]",
		RoleExpandButton:     "button[class^=dashboard__ExpandButton]",
		RoleViewport:         "[class^=liveview__ViewportsWrapper]",
		RoleCameraNameButton: "[class^=LiveViewGridSlot__CameraNameWrapper] button",
	},
	Gen45: {
		RoleContainer:         "[class^=liveView__FullscreenWrapper]",
		RoleFullscreenWrapper: "[class^=liveView__FullscreenWrapper]",
		RoleContent:           "[class^=liveView__LiveViewWrapper] [class^=liveView__Sidebar]",
		RoleWidgets:           "[class^=dashboard__Widgets]",
		RoleExpandButton:      "button[class^=dashboard__ExpandButton]",
		RoleViewport:          "[class^=liveview__ViewportsWrapper]",
		RoleWidgetBorder:      "[class^=dashboard__StyledWidget]",
		RoleCameraOptions:     "[class^=LiveViewGridSlot__CameraNameWrapper] button[class*=Options]",
		RolePlayerOptions:     "[class^=LiveViewGridSlot__PlayerOptions]",
		RoleTimelineLink:      "[class^=LiveViewGridSlot] a[href*=timeline]",
		RoleErrorTile:         "[class^=ViewportError__Wrapper]",
	},
}

// Selector returns the selector for role in generation g, falling back to
// the shared row. It returns "" when neither row knows the role.
func Selector(g Generation, role Role) string {
	if row, ok := generationSelectors[g]; ok {
		if sel, ok := row[role]; ok {
			return sel
		}
	}
	return sharedSelectors[role]
}
