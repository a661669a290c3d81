package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// GetSentNotification returns the notification record for url, or nil, nil.
func (s *Store) GetSentNotification(ctx context.Context, url string) (*model.ChannelNotification, error) {
	query := s.rebind(`
	SELECT id, url, product_name, last_price, last_sent_at, last_seen_at, channel_id
	FROM channel_notifications
	WHERE url = ?
	`)

	var (
		rec               model.ChannelNotification
		productName       sql.NullString
		lastPrice         sql.NullFloat64
		lastSent, lastSee sql.NullInt64
		channelID         sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, url).Scan(
		&rec.ID,
		&rec.URL,
		&productName,
		&lastPrice,
		&lastSent,
		&lastSee,
		&channelID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	rec.ProductName = productName.String
	rec.LastPrice = lastPrice.Float64
	rec.HasPrice = lastPrice.Valid
	rec.LastSentAt = fromUnix(lastSent)
	rec.LastSeenAt = fromUnix(lastSee)
	rec.ChannelID = channelID.String
	return &rec, nil
}

// UpsertSentNotification records that an offer at price (after the site
// discount) was announced for url. last_sent_at becomes now; last_seen_at is
// never touched. Empty productName or channelID keep the stored values.
func (s *Store) UpsertSentNotification(ctx context.Context, url string, price float64, productName, channelID string) error {
	query := s.rebind(`
	INSERT INTO channel_notifications (url, product_name, last_price, last_sent_at, channel_id)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		last_price = excluded.last_price,
		last_sent_at = excluded.last_sent_at,
		product_name = COALESCE(excluded.product_name, channel_notifications.product_name),
		channel_id = COALESCE(excluded.channel_id, channel_notifications.channel_id)
	`)

	_, err := s.db.ExecContext(ctx, query,
		url,
		nullString(productName),
		price,
		s.unixNow(),
		nullString(channelID),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert notification: %w", err)
	}
	return nil
}

// CleanupOldNotifications deletes records last sent more than days ago and
// returns how many were deleted.
func (s *Store) CleanupOldNotifications(ctx context.Context, days int) (int64, error) {
	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour).Unix()

	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM channel_notifications WHERE last_sent_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up notifications: %w", err)
	}
	return result.RowsAffected()
}
