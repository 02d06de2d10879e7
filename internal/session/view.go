package session

import "time"

// View is the screen currently shown.
type View string

const (
	ViewSplash          View = "SPLASH"
	ViewLogin           View = "LOGIN"
	ViewHome            View = "HOME"
	ViewDiscovery       View = "DISCOVERY"
	ViewMessages        View = "MESSAGES"
	ViewProfile         View = "PROFILE"
	ViewMatching        View = "MATCHING"
	ViewVideoCall       View = "VIDEO_CALL"
	ViewUserDetails     View = "USER_DETAILS"
	ViewChat            View = "CHAT"
	ViewAccountSecurity View = "ACCOUNT_SECURITY"
	ViewBlacklist       View = "BLACKLIST"
	ViewWallet          View = "WALLET"
	ViewMembership      View = "MEMBERSHIP"
	ViewCustomerService View = "CUSTOMER_SERVICE"
	ViewEditProfile     View = "EDIT_PROFILE"
	ViewSettings        View = "SETTINGS"
	ViewTeenMode        View = "TEEN_MODE"
	ViewAboutUs         View = "ABOUT_US"
	ViewCurfew          View = "CURFEW"
)

var views = map[View]struct {
	navigable bool // reachable with a plain Navigate intent
	nav       bool // bottom navigation shown
}{
	ViewSplash:          {},
	ViewLogin:           {},
	ViewHome:            {navigable: true, nav: true},
	ViewDiscovery:       {navigable: true, nav: true},
	ViewMessages:        {navigable: true, nav: true},
	ViewProfile:         {navigable: true, nav: true},
	ViewMatching:        {},
	ViewVideoCall:       {},
	ViewUserDetails:     {navigable: true},
	ViewChat:            {navigable: true},
	ViewAccountSecurity: {navigable: true},
	ViewBlacklist:       {navigable: true},
	ViewWallet:          {navigable: true},
	ViewMembership:      {navigable: true},
	ViewCustomerService: {navigable: true},
	ViewEditProfile:     {navigable: true},
	ViewSettings:        {navigable: true},
	ViewTeenMode:        {navigable: true},
	ViewAboutUs:         {navigable: true},
	ViewCurfew:          {},
}

func (v View) Valid() bool {
	_, ok := views[v]
	return ok
}

// ShowsNav reports whether the bottom navigation is visible on v.
func (v View) ShowsNav() bool { return views[v].nav }

func (v View) navigable() bool { return views[v].navigable }

// Curfew window, local time: [22:00, 06:00).
const (
	curfewStartHour = 22
	curfewEndHour   = 6
)

// InCurfewHours reports whether t falls inside the nightly curfew window.
func InCurfewHours(t time.Time) bool {
	h := t.Hour()
	return h >= curfewStartHour || h < curfewEndHour
}

// curfewExempt views stay reachable during curfew so teen mode can be turned off.
func curfewExempt(v View) bool {
	return v == ViewTeenMode || v == ViewSettings
}
