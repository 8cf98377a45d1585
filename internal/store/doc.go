// Package store provides persistent storage for manga-admin using SQLite.
//
// # Architecture
//
// Persistence is split into small interfaces, one per resource:
//
//   - NotificationStore: reader notifications and their sent flag
//   - RepositoryStore: manga content sources, refresh and stats
//   - UserStore: site reader accounts
//   - MangaStore: the manga catalogue
//   - SettingsStore: the single site settings row
//   - AuditStore: who changed what from the dashboard
//   - AdminStore: dashboard admins, login sessions and passkeys
//
// Store embeds the first six plus Ping and Close. SQLiteStore implements
// every interface in a single struct; MockStore does the same in memory.
//
// # SQLite Configuration
//
// Two database/sql drivers are linked in:
//
//   - "sqlite": modernc.org/sqlite, pure Go, the default
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//
// Every connection runs with WAL mode, foreign keys on and a busy timeout.
// Timestamps are stored as fixed-width UTC RFC3339 strings so that ORDER BY
// and range comparisons work on the text column.
//
// # Error Handling
//
//   - ErrNotFound: the requested row does not exist
//   - ErrInvalid: validation failed; the wrapped message names the field
//   - ErrUsernameExists: a unique username was reused
//
// Use errors.Is to test for them; messages carry extra context.
//
// # Testing
//
// Use NewMockStore() for handler tests and NewSQLiteStore with a temp
// directory (or ":memory:") for integration tests.
package store
