package models

// Preference keys persisted across sessions.
const (
	PrefRefreshInterval  = "dashboard-refresh-interval"
	PrefRefreshPaused    = "dashboard-refresh-paused"
	PrefTheme            = "theme"
	PrefSidebarCollapsed = "sidebar-collapsed"
	PrefToken            = "blinkr_token"
)
