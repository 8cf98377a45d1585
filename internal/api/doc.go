// Package api serves the dashboard's JSON API under /api.
//
// Routes are registered on a gorilla/mux subrouter. Protected routes are
// wrapped individually with the auth Gate so unknown paths and unsupported
// methods answer 404 and 405 without requiring a session. Unknown routes
// answer with {"error": ...}; everything else uses the success envelope
// {"success", "message", "data"} or a resource list keyed by resource name.
//
// The full handler is wrapped with chi's RequestID, RealIP and Recoverer
// middleware, an access log and rs/cors.
package api
