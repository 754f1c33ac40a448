// Package store provides persistent storage for projectcamp on SQLite or Postgres.
//
// # Architecture
//
// The store package uses an interface-driven architecture with multiple specialized
// interfaces:
//
//   - UserStore: Accounts, email verification and password reset tokens
//   - ProjectStore: Projects
//   - MemberStore: Project memberships and their roles
//   - TaskStore: Tasks and subtasks
//   - NoteStore: Project notes
//   - AuditStore: Append-only audit trail
//
// SQLStore implements all interfaces in a single struct over database/sql,
// allowing easy composition while maintaining clear interface boundaries.
//
// # Roles
//
// users.role is a global role carried in access tokens. project_members.role
// is the role a user holds inside one project and is the only role consulted
// by project authorization. The two are never derived from each other.
//
// # Single-use tokens
//
// ConsumeEmailVerificationToken and ResetPasswordWithToken are conditional
// UPDATE ... RETURNING statements. The row is matched and the token cleared in
// one statement, so two concurrent requests cannot both redeem it.
//
// # Dialects
//
// SQLite (modernc.org/sqlite, no cgo) is the default:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//
// Postgres is reached through the pgx stdlib driver. Queries are written with
// ? placeholders and rebound to $n for Postgres. Timestamps are RFC3339 UTC
// text in both dialects.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested entity does not exist
//   - ErrDuplicateEmail, ErrDuplicateUsername: users uniqueness
//   - ErrDuplicateMember: (project_id, user_id) uniqueness
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	store := store.NewMockStore()
//	// store implements all Store interfaces
//
// Use NewSQLiteStore(filepath.Join(t.TempDir(), "test.db")) for integration tests.
//
// # Migrations
//
// Migrations are embedded goose files in internal/store/migrations/<dialect>/
// and run automatically when a store is opened.
package store
