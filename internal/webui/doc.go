// Package webui embeds the browser dashboard and serves it with cache headers.
//
// The page is plain HTML, CSS and JavaScript with no build step. It talks to
// the /api routes with the session cookie and mirrors internal/dashboard:
// login gate, parallel load with per-panel failure toasts, tab refetch, a
// blocking confirm modal before deletes and a single 3 second toast.
package webui
