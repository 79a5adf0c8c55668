// Package delivery defines the transports that expose the use cases.
package delivery

import "context"

// Delivery is a transport started by the application after wiring completes.
type Delivery interface {
	Serve(ctx context.Context) error
}
