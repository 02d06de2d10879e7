package session

import (
	"github.com/oggyb/miahui/internal/model"
	"github.com/oggyb/miahui/internal/payment"
)

// Kind names an intent.
type Kind string

const (
	KindNavigate             Kind = "NAVIGATE"
	KindSplashDone           Kind = "SPLASH_DONE"
	KindLogin                Kind = "LOGIN"
	KindLogout               Kind = "LOGOUT"
	KindStartMatch           Kind = "START_MATCH"
	KindCancelMatch          Kind = "CANCEL_MATCH"
	KindEndCall              Kind = "END_CALL"
	KindOpenUserDetails      Kind = "OPEN_USER_DETAILS"
	KindSearch               Kind = "SEARCH"
	KindOpenChat             Kind = "OPEN_CHAT"
	KindStartCall            Kind = "START_CALL"
	KindSendMessage          Kind = "SEND_MESSAGE"
	KindSendGift             Kind = "SEND_GIFT"
	KindRecall               Kind = "RECALL"
	KindMarkAllRead          Kind = "MARK_ALL_READ"
	KindLoadHistory          Kind = "LOAD_HISTORY"
	KindRecharge             Kind = "RECHARGE"
	KindCancelRecharge       Kind = "CANCEL_RECHARGE"
	KindPurchaseMembership   Kind = "PURCHASE_MEMBERSHIP"
	KindEditProfile          Kind = "EDIT_PROFILE"
	KindShield               Kind = "SHIELD"
	KindBlacklist            Kind = "BLACKLIST"
	KindUnblock              Kind = "UNBLOCK"
	KindSetTeenMode          Kind = "SET_TEEN_MODE"
	KindSetNotificationPrefs Kind = "SET_NOTIFICATION_PREFS"
	KindChangePassword       Kind = "CHANGE_PASSWORD"
	KindBindPhone            Kind = "BIND_PHONE"
	KindBindWechat           Kind = "BIND_WECHAT"
	KindSubmitRealName       Kind = "SUBMIT_REAL_NAME"
	KindAskSupport           Kind = "ASK_SUPPORT"
	KindDeleteAccount        Kind = "DELETE_ACCOUNT"
)

// Intent is a request emitted by a screen. Only the fields its Kind reads
// need to be set; CounterpartID defaults to the selected counterpart.
type Intent struct {
	Kind Kind `json:"kind"`

	View          View         `json:"view,omitempty"`
	CounterpartID string       `json:"counterpartId,omitempty"`
	MessageID     string       `json:"messageId,omitempty"`
	Text          string       `json:"text,omitempty"`
	Query         string       `json:"query,omitempty"`
	GiftID        string       `json:"giftId,omitempty"`
	PackageID     string       `json:"packageId,omitempty"`
	Rail          payment.Rail `json:"rail,omitempty"`
	FAQID         string       `json:"faqId,omitempty"`
	Before        string       `json:"before,omitempty"`

	Profile       *model.Profile           `json:"profile,omitempty"`
	Enabled       *bool                    `json:"enabled,omitempty"`
	Notifications *model.NotificationPrefs `json:"notifications,omitempty"`

	OldPassword string `json:"oldPassword,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
	Phone       string `json:"phone,omitempty"`
	RealName    string `json:"realName,omitempty"`
	IDNumber    string `json:"idNumber,omitempty"`
}

// allowedDuringCurfew intents are processed while the curfew screen is up;
// anything else is superseded.
func allowedDuringCurfew(k Kind) bool {
	switch k {
	case KindNavigate, KindSetTeenMode, KindSetNotificationPrefs, KindLogout:
		return true
	}
	return false
}

// needsLogin is false for the intents that make sense before login.
func needsLogin(k Kind) bool {
	switch k {
	case KindSplashDone, KindLogin, KindDeleteAccount:
		return false
	}
	return true
}

