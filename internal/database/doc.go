// Package database provides persistent storage for wbwatch.
//
// The Store keeps:
//   - Telegram users and their admin/access flags
//   - Key/value settings (site discount, notification channel)
//   - Global products with price windows, keywords and exclusions
//   - Channel notifications used to avoid repeating announcements
//
// DATABASE_URL selects the backend. SQLite (modernc.org/sqlite, CGO-free) is
// the default and runs with a single connection in WAL mode. PostgreSQL is
// reached through pgx's database/sql driver. Queries are written once with
// "?" placeholders and rebound for PostgreSQL; timestamps are unix seconds so
// both schemas compare them the same way.
package database
