package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wbpricebot/wbwatch/internal/model"
)

const userColumns = `telegram_id, username, is_admin, has_access, created_at, updated_at`

// GetOrCreateUser returns the user with the given id, creating it when missing.
// A new user gets is_admin = has_access = admin. Existing users are returned
// unchanged, so revoking an admin's access in the database sticks.
func (s *Store) GetOrCreateUser(ctx context.Context, telegramID int64, username string, admin bool) (*model.User, error) {
	user, err := s.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	now := s.unixNow()
	query := s.rebind(`
	INSERT INTO users (telegram_id, username, is_admin, has_access, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(telegram_id) DO NOTHING
	`)
	_, err = s.db.ExecContext(ctx, query,
		telegramID,
		nullString(username),
		boolToInt(admin),
		boolToInt(admin),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.GetUser(ctx, telegramID)
}

// GetUser retrieves a user by Telegram id. It returns nil, nil when the user
// does not exist.
func (s *Store) GetUser(ctx context.Context, telegramID int64) (*model.User, error) {
	query := s.rebind(`SELECT ` + userColumns + ` FROM users WHERE telegram_id = ?`)

	user, err := scanUser(s.db.QueryRowContext(ctx, query, telegramID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ListUsers returns all users, admins first, then by registration time.
func (s *Store) ListUsers(ctx context.Context) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY is_admin DESC, created_at ASC, telegram_id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// GrantAccess gives the user access to the parser menu.
// It reports false when the user does not exist.
func (s *Store) GrantAccess(ctx context.Context, telegramID int64) (bool, error) {
	return s.setAccess(ctx, telegramID, true)
}

// RevokeAccess removes the user's access to the parser menu.
// It reports false when the user does not exist.
func (s *Store) RevokeAccess(ctx context.Context, telegramID int64) (bool, error) {
	return s.setAccess(ctx, telegramID, false)
}

func (s *Store) setAccess(ctx context.Context, telegramID int64, access bool) (bool, error) {
	query := s.rebind(`UPDATE users SET has_access = ?, updated_at = ? WHERE telegram_id = ?`)

	result, err := s.db.ExecContext(ctx, query, boolToInt(access), s.unixNow(), telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to update access: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		user               model.User
		username           sql.NullString
		isAdmin, hasAccess int
		created, updated   sql.NullInt64
	)

	err := row.Scan(
		&user.TelegramID,
		&username,
		&isAdmin,
		&hasAccess,
		&created,
		&updated,
	)
	if err != nil {
		return nil, err
	}

	user.Username = username.String
	user.IsAdmin = isAdmin != 0
	user.HasAccess = hasAccess != 0
	user.CreatedAt = fromUnix(created)
	user.UpdatedAt = fromUnix(updated)
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
