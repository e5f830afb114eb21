// Package catalog holds the IPMI command catalogue: one request builder and
// one response parser per (NetFn, command) pair. Builders produce
// protocol.Request values; parsers consume the response body that follows a
// successful completion code.
package catalog

import (
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// Command is a typed IPMI request. The response parser for a command is
// uniquely determined by its concrete type; clients pair each command's
// Request with the matching Parse function.
type Command interface {
	Request() protocol.Request
}
