package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapNetworkError wraps network errors with user-friendly context
func WrapNetworkError(err error, addr string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to communicate with BMC at %s", addr),
		Reason:  extractNetworkReason(err),
		Hint:    "The host may not expose RMCP on UDP 623, or a firewall may be dropping it",
		Try:     fmt.Sprintf("ipmiq discover --host %s", addr),
		Err:     err,
	}
}

// WrapSessionError wraps session setup failures with user-friendly context
func WrapSessionError(err error, addr string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to open a session with BMC at %s", addr),
		Reason:  extractSessionReason(err),
		Hint:    "Check the username, password, and requested privilege level",
		Try:     "ipmiq device --host " + addr + " --username <user>",
		Err:     err,
	}
}

// WrapProtocolError wraps IPMI protocol errors with user-friendly context
func WrapProtocolError(err error, operation string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("IPMI operation failed: %s", operation),
		Reason:  extractProtocolReason(err),
		Hint:    "The BMC may not support this command, or the addressed sensor/record may not exist",
		Try:     "ipmiq device --host <host> to check BMC capabilities",
		Err:     err,
	}
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Profiles need a host plus credentials, or device: /dev/ipmiN for local access",
		Try:     fmt.Sprintf("ipmiq validate-config --config %s", configPath),
		Err:     err,
	}
}

func extractNetworkReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "Request timed out - BMC may be offline or unreachable"
	}
	if strings.Contains(errStr, "connection refused") {
		return "Connection refused - nothing is listening on the RMCP port"
	}
	if strings.Contains(errStr, "no route to host") {
		return "No route to host - network routing issue or BMC unreachable"
	}
	if strings.Contains(errStr, "permission denied") {
		return "Permission denied - opening /dev/ipmiN usually needs elevated privileges"
	}

	return "Network communication failed"
}

func extractSessionReason(err error) string {
	errStr := err.Error()

	if strings.Contains(errStr, "authentication failed") {
		return "The BMC rejected the credentials"
	}
	if strings.Contains(errStr, "cipher suite") {
		return "The BMC does not offer the supported cipher suite (RAKP-HMAC-SHA1 / HMAC-SHA1-96 / AES-CBC-128)"
	}
	if strings.Contains(errStr, "privilege") {
		return "The requested privilege level was not granted"
	}

	return "Session setup failed"
}

func extractProtocolReason(err error) string {
	var completion *protocol.CompletionError
	if errors.As(err, &completion) {
		return fmt.Sprintf("BMC returned completion code 0x%02X: %s", uint8(completion.Code), completion.Code)
	}
	if strings.Contains(err.Error(), "parse") {
		return "Received an invalid or malformed response from the BMC"
	}
	if strings.Contains(err.Error(), "timeout") {
		return "BMC did not respond within the timeout period"
	}

	return "IPMI protocol error occurred"
}
