// Package auth provides login and request authentication for manga-admin.
//
// # Credentials
//
// A Verifier decides whether a username/password pair may log in:
//
//   - StaticVerifier: one fixed identity from config (admin/admin by default),
//     compared in constant time.
//   - StoreVerifier: bcrypt hashes in the admin_users table, created by
//     `manga-admin bootstrap`.
//   - ChainVerifier: tries verifiers in order.
//
// # Sessions
//
// A successful login creates a Session through a SessionStore and stores its
// opaque token in the signed manga_admin_session cookie (gorilla/securecookie).
//
//   - MemorySessions: process memory, swept every minute.
//   - StoreSessions: the admin_sessions table, survives restarts.
//
// Sessions expire after auth.session_ttl (7 days by default).
//
// # Bearer Tokens
//
// When auth.jwt_secret is set, HS256 JWTs with sub=username are accepted in
// the Authorization header. `manga-admin token` issues them for the CLI and TUI.
//
// # HTTP
//
// Gate.Require wraps protected handlers. Anonymous callers receive
//
//	401 {"success": false, "message": "Authentication required"}
//
// and authenticated ones find an AuthContext via FromContext.
package auth
