// Package dedupe stores the first response to each Idempotency-Key for a
// configurable window so retried mutations are answered without re-running.
package dedupe
