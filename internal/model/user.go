package model

import "time"

// User is a Telegram user known to the bot.
// Users are created on first contact. Ids listed in ADMIN_TELEGRAM_ID become
// admins with access; everybody else starts without access until an admin
// grants it.
type User struct {
	// TelegramID is the Telegram user id and the primary key.
	TelegramID int64

	// Username is the Telegram @username, empty when the user has none.
	Username string

	// IsAdmin allows the admin panel, product uploads and price edits.
	IsAdmin bool

	// HasAccess allows the parser menu.
	HasAccess bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the username or a placeholder when it is empty.
func (u *User) DisplayName() string {
	if u.Username == "" {
		return "Не указано"
	}
	return u.Username
}

// Setting keys stored in the settings table.
const (
	// SettingSiteBaseDiscount is the percentage subtracted from listed prices
	// before they are compared with product thresholds.
	SettingSiteBaseDiscount = "site_base_discount"

	// SettingNotificationChannel is the Telegram chat id notifications go to.
	SettingNotificationChannel = "notification_channel_id"
)

// DefaultSiteBaseDiscount is used when SettingSiteBaseDiscount is unset or malformed.
const DefaultSiteBaseDiscount = 11

// Setting is a key/value pair persisted in the settings table.
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}
