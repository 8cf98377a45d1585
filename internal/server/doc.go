// Package server assembles manga-admin from configuration and runs it.
//
// New opens the database, seeds it, builds the login verifiers, session
// store, cookie codec, notifier and idempotency cache, and mounts the API
// and the embedded dashboard on one HTTP server. Run listens on TCP or on a
// tailnet via tsnet, optionally serves the standard gRPC health service, and
// shuts everything down within five seconds once its context is canceled.
package server
