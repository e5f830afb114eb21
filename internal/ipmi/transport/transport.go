// Package transport carries IPMI requests to a BMC: over the Linux
// OpenIPMI character device, or over RMCP/RMCP+ UDP datagrams.
package transport

import (
	"context"

	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// Connection is a synchronous request/reply channel to a BMC. SendRecv
// blocks until the response arrives or ctx expires. Implementations are
// not safe for concurrent callers; a connection belongs to one session.
type Connection interface {
	SendRecv(ctx context.Context, req protocol.Request) (protocol.Response, error)
	Close() error
}

// BMCAddressProvider is implemented by connections that can report the
// BMC's own slave address. Callers fall back to the default 0x20.
type BMCAddressProvider interface {
	BMCAddress() uint8
}

// BMCAddress returns the connection's view of the local BMC address.
func BMCAddress(c Connection) uint8 {
	if p, ok := c.(BMCAddressProvider); ok {
		return p.BMCAddress()
	}
	return protocol.BMCSlaveAddress
}
