package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

func TestWrapNetworkError(t *testing.T) {
	if WrapNetworkError(nil, "10.0.0.1") != nil {
		t.Error("nil error must stay nil")
	}

	err := WrapNetworkError(fmt.Errorf("read udp: i/o timeout"), "10.0.0.1")
	msg := err.Error()
	if !strings.Contains(msg, "10.0.0.1") {
		t.Errorf("address missing from message: %s", msg)
	}
	if !strings.Contains(msg, "timed out") {
		t.Errorf("reason not extracted: %s", msg)
	}
	if !strings.Contains(msg, "ipmiq discover") {
		t.Errorf("try hint missing: %s", msg)
	}
}

func TestWrapProtocolError_CompletionCode(t *testing.T) {
	inner := &protocol.CompletionError{
		NetFn: protocol.NetFnStorage,
		Cmd:   0x43,
		Code:  protocol.CompletionReservationCancelled,
	}
	err := WrapProtocolError(inner, "Get SEL Entry")
	if !strings.Contains(err.Error(), "0xC5") {
		t.Errorf("completion code not surfaced: %s", err)
	}

	var completion *protocol.CompletionError
	if !errors.As(err, &completion) {
		t.Error("wrapped error must unwrap to the completion error")
	}
}

func TestWrapSessionError(t *testing.T) {
	err := WrapSessionError(errors.New("session: authentication failed"), "bmc1")
	if !strings.Contains(err.Error(), "rejected the credentials") {
		t.Errorf("reason not extracted: %s", err)
	}
}

func TestUnwrapChain(t *testing.T) {
	base := errors.New("root cause")
	wrapped := WrapConfigError(base, "profiles.yaml")
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is must reach the root cause")
	}
}
