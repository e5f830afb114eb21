package protocol

// Request and response envelopes shared by every command in the catalogue.

import "fmt"

// Request is a request-shaped IPMI message: NetFn, command byte, and the
// encoded body. Target carries the responder address for bridged requests;
// the zero value targets the local BMC.
type Request struct {
	NetFn  NetFn
	Cmd    uint8
	Data   []byte
	Target Address
}

// NewRequest builds a request addressed to the local BMC.
func NewRequest(netFn NetFn, cmd uint8, data []byte) Request {
	return Request{NetFn: netFn, Cmd: cmd, Data: data, Target: BMC()}
}

// Bridged reports whether the request addresses a responder other than the
// local BMC.
func (r Request) Bridged(bmcAddr uint8) bool {
	return !r.Target.IsBMC(bmcAddr)
}

// Response is a de-framed IPMI response: the echoed NetFn/cmd pair, the
// completion code, and the body that follows it.
type Response struct {
	NetFn uint8
	Cmd   uint8
	Code  CompletionCode
	Data  []byte
}

// Matches reports whether the response answers the given request.
func (r Response) Matches(req Request) bool {
	return r.NetFn == req.NetFn.ResponseValue() && r.Cmd == req.Cmd
}

// ParseError reports a malformed response body.
type ParseError struct {
	What string
}

func (e *ParseError) Error() string {
	return "parse: " + e.What
}

// Parsef builds a ParseError with a formatted description.
func Parsef(format string, args ...any) error {
	return &ParseError{What: fmt.Sprintf(format, args...)}
}

// ErrShortResponse is the common "not enough data" parse failure.
func ErrShortResponse(cmd string, have, want int) error {
	return Parsef("%s response too short: %d bytes, need %d", cmd, have, want)
}
