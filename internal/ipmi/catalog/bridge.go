package catalog

// Send Message encapsulation for IPMB bridging. A request to a non-local
// responder travels as the tracked payload of Send Message; the reply comes
// back one layer deep in the Get Message queue or, on tracked requests, in
// the Send Message response itself.

import (
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

// SendMessage wraps an inner request for delivery over the named channel.
type SendMessage struct {
	Channel protocol.Channel
	// Tracked asks the BMC to track the request and return the response
	// in-band.
	Tracked bool
	Payload []byte
}

func (c SendMessage) Request() protocol.Request {
	ch := uint8(c.Channel) & 0xF
	if c.Tracked {
		ch |= 0x40
	}
	body := make([]byte, 0, 1+len(c.Payload))
	body = append(body, ch)
	body = append(body, c.Payload...)
	return protocol.NewRequest(protocol.NetFnApp, cmdSendMessage, body)
}

// BridgeRequest frames an inner request as an IPMB message suitable for the
// Send Message payload. rqSeq distinguishes concurrent bridged requests.
func BridgeRequest(inner protocol.Request, rqAddr uint8, rqSeq uint8) SendMessage {
	payload := protocol.FrameIPMB(
		inner.Target.SlaveAddress,
		inner.NetFn.RequestValue(),
		inner.Target.Lun,
		rqAddr, rqSeq, protocol.LunSMS,
		inner.Cmd, inner.Data,
	)
	return SendMessage{Channel: inner.Target.Channel, Tracked: true, Payload: payload}
}

// UnwrapBridgedResponse strips one layer of IPMB framing from a tracked
// Send Message response and returns the inner command response.
func UnwrapBridgedResponse(data []byte) (protocol.Response, error) {
	frame, err := protocol.UnframeIPMB(data)
	if err != nil {
		return protocol.Response{}, err
	}
	if len(frame.Data) < 1 {
		return protocol.Response{}, protocol.Parsef("bridged response carries no completion code")
	}
	return protocol.Response{
		NetFn: frame.NetFn,
		Cmd:   frame.Cmd,
		Code:  protocol.CompletionCode(frame.Data[0]),
		Data:  frame.Data[1:],
	}, nil
}
