// Package timeouts provides the context deadlines used around datastore and
// collaborator I/O.
//
// Guidelines:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads or lookups
//   - Medium: list queries, moderate writes
//   - Long: transactions touching multiple collections
//   - SideEffect: best-effort post-commit calls (icon upload, notification);
//     deliberately short so they can never stall a caller-visible path.
package timeouts

import "time"

const (
	ping       = 2 * time.Second
	short      = 5 * time.Second
	medium     = 10 * time.Second
	long       = 30 * time.Second
	sideEffect = 5 * time.Second
)

// Ping returns the timeout for health checks.
func Ping() time.Duration { return ping }

// Short returns the timeout for single-document reads.
func Short() time.Duration { return short }

// Medium returns the timeout for list queries and simple writes.
func Medium() time.Duration { return medium }

// Long returns the timeout for multi-collection transactions.
func Long() time.Duration { return long }

// SideEffect returns the timeout for best-effort post-commit calls.
func SideEffect() time.Duration { return sideEffect }
