// Package dashboard is the Go side of the admin dashboard: an HTTP client
// for the /api surface and a Controller holding what the dashboard shows.
//
// The Controller reproduces the browser page's behaviour for terminal
// front ends. It checks the session on start, loads every panel
// concurrently after login with each failure isolated to its own panel,
// refetches only the active tab on switch, asks a Confirmer before
// destructive actions and keeps at most one toast visible.
package dashboard
