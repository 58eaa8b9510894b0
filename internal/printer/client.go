// Package printer delivers formatted receipt payloads to named printers
// through a locally running print service.
package printer

import (
	"context"

	"comanda/internal/receipt"
)

// State of the print-service connection.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateError      State = "error"
)

// Client is the capability surface of the print service. Alternate transports
// can be substituted in tests.
type Client interface {
	// Connect establishes the connection. Concurrent calls collapse into a
	// single in-flight attempt; calling while connected is a no-op.
	Connect(ctx context.Context) error
	Close() error
	Active() bool
	State() State

	// Printers enumerates the printer names known to the service.
	Printers(ctx context.Context) ([]string, error)
	// Find resolves a configured printer name to the service's handle for it.
	Find(ctx context.Context, name string) (string, error)
	// Print sends an ordered payload to the named printer.
	Print(ctx context.Context, printerName string, segments []receipt.Segment) error
}
