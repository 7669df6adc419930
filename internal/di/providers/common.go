package providers

import "context"

// RunContext is cancelled by the shutdown signal. Providers that block at
// startup (database connect, index rebuild) honour it.
type RunContext struct {
	context.Context
}
