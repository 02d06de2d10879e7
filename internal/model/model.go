// Package model holds the plain data types shared by the session core.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tier is a membership level. Ordering follows benefit level.
type Tier string

const (
	TierNone  Tier = "NONE"
	TierBasic Tier = "BASIC"
	TierPro   Tier = "PRO"
	TierElite Tier = "ELITE"
)

var tierRank = map[Tier]int{
	TierNone:  0,
	TierBasic: 1,
	TierPro:   2,
	TierElite: 3,
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Paid is true for every tier above NONE.
func (t Tier) Paid() bool { return t.Valid() && t != TierNone }

// Rank returns the position of t in the benefit ordering, -1 for unknown tiers.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

// Validate lets the preference store reject unknown persisted tiers.
func (t Tier) Validate() error {
	if !t.Valid() {
		return fmt.Errorf("unknown tier %q", string(t))
	}
	return nil
}

// DeliveryStatus of a message. Transitions only move forward.
type DeliveryStatus string

const (
	StatusSending DeliveryStatus = "sending"
	StatusSent    DeliveryStatus = "sent"
	StatusRead    DeliveryStatus = "read"
)

var statusRank = map[DeliveryStatus]int{
	StatusSending: 0,
	StatusSent:    1,
	StatusRead:    2,
}

// Before reports whether s precedes next in the delivery sequence.
func (s DeliveryStatus) Before(next DeliveryStatus) bool {
	a, ok1 := statusRank[s]
	b, ok2 := statusRank[next]
	return ok1 && ok2 && a < b
}

// GiftCategory groups gifts for the gift panel tabs.
type GiftCategory string

const (
	GiftPopular GiftCategory = "POPULAR"
	GiftLuxury  GiftCategory = "LUXURY"
	GiftSpecial GiftCategory = "SPECIAL"
)

// Counterpart is a read-only directory entry.
type Counterpart struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Age          int      `json:"age"`
	City         string   `json:"city"`
	AvatarRef    string   `json:"avatarRef"`
	Tags         []string `json:"tags"`
	Bio          string   `json:"bio"`
	ResponseRate string   `json:"responseRate"`
	Gender       string   `json:"gender"`
	Education    string   `json:"education"`
	Height       string   `json:"height"`
	Weight       string   `json:"weight"`
	Income       string   `json:"income"`
	Profession   string   `json:"profession"`
	Online       bool     `json:"online"`
}

// Gift is a static catalog entry.
type Gift struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	IconRef   string       `json:"iconRef"`
	BasePrice int64        `json:"basePrice"`
	Category  GiftCategory `json:"category"`
}

// RechargePackage grants coins for a real-money price.
type RechargePackage struct {
	ID    string `json:"id"`
	Coins int64  `json:"coins"`
	Price int64  `json:"price"`
	Hot   bool   `json:"hot,omitempty"`
}

// MembershipPackage grants a tier for a price.
type MembershipPackage struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Duration      string   `json:"duration"`
	Price         int64    `json:"price"`
	OriginalPrice int64    `json:"originalPrice"`
	BestValue     bool     `json:"bestValue,omitempty"`
	Tier          Tier     `json:"tier"`
	Benefits      []string `json:"benefits"`
}

// Message belongs to exactly one conversation, keyed by counterpart id.
type Message struct {
	ID            string         `json:"id"`
	CounterpartID string         `json:"counterpartId"`
	Text          string         `json:"text"`
	Timestamp     time.Time      `json:"timestamp"`
	AuthorIsSelf  bool           `json:"authorIsSelf"`
	Status        DeliveryStatus `json:"deliveryStatus"`
	Recalled      bool           `json:"recalled"`
	GiftID        string         `json:"giftId,omitempty"`
}

// Visible returns the message as it may be rendered: recalled messages keep
// id, author and timestamp but lose text and gift payload.
func (m Message) Visible() Message {
	if m.Recalled {
		m.Text = ""
		m.GiftID = ""
	}
	return m
}

// Verification flags shown on the profile page.
type Verification struct {
	RealName   bool `json:"realName"`
	LivePhoto  bool `json:"livePhoto"`
	PhoneBound bool `json:"phoneBound"`
}

// MaxInterestTags bounds Profile.InterestTags.
const MaxInterestTags = 8

// Profile of the current user.
type Profile struct {
	DisplayName  string       `json:"displayName"`
	AvatarRef    string       `json:"avatarRef"`
	PhotoRefs    []string     `json:"photoRefs"`
	InterestTags []string     `json:"interestTags"`
	City         string       `json:"city"`
	Bio          string       `json:"bio"`
	Gender       string       `json:"gender"`
	Age          int          `json:"age"`
	Education    string       `json:"education"`
	Height       string       `json:"height"`
	Weight       string       `json:"weight"`
	Income       string       `json:"income"`
	Profession   string       `json:"profession"`
	Verification Verification `json:"verification"`
}

var (
	ErrEmptyDisplayName = errors.New("display name is required")
	ErrTooManyTags      = errors.New("too many interest tags")
	ErrDuplicateTag     = errors.New("duplicate interest tag")
	ErrAgeOutOfRange    = errors.New("age out of range")
)

// Validate checks the profile invariants.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.DisplayName) == "" {
		return ErrEmptyDisplayName
	}
	if p.Age < 18 || p.Age > 99 {
		return ErrAgeOutOfRange
	}
	if len(p.InterestTags) > MaxInterestTags {
		return ErrTooManyTags
	}
	seen := make(map[string]struct{}, len(p.InterestTags))
	for _, tag := range p.InterestTags {
		if _, ok := seen[tag]; ok {
			return ErrDuplicateTag
		}
		seen[tag] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy so edits never leak into committed state.
func (p Profile) Clone() Profile {
	p.PhotoRefs = append([]string(nil), p.PhotoRefs...)
	p.InterestTags = append([]string(nil), p.InterestTags...)
	return p
}

// NotificationPrefs toggled on the settings screen.
type NotificationPrefs struct {
	NewMsg    bool `json:"newMsg"`
	Sound     bool `json:"sound"`
	Vibration bool `json:"vibration"`
}

// DefaultNotificationPrefs is the first-run value.
func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{NewMsg: true, Sound: true, Vibration: false}
}
