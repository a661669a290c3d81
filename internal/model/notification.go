package model

import "time"

// ChannelNotification records the last offer announced in the channel for a URL.
type ChannelNotification struct {
	ID          int64
	URL         string
	ProductName string

	// LastPrice is the announced price after the site discount.
	// HasPrice is false when the price was never recorded.
	LastPrice float64
	HasPrice  bool

	LastSentAt time.Time

	// LastSeenAt is kept from older databases and never updated.
	LastSeenAt time.Time

	ChannelID string
}

// ShouldNotify decides whether an offer at price is worth announcing given
// the previous record for the same URL (nil when there is none).
// A new URL, a record without a price or a strictly lower price qualifies.
func ShouldNotify(prev *ChannelNotification, price int64) bool {
	if prev == nil || !prev.HasPrice {
		return true
	}
	return float64(price) < prev.LastPrice
}
