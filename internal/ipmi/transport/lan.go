package transport

// LAN connection: RMCP datagrams carrying session-wrapped, IPMB-framed
// IPMI messages. Handles IPMI 1.5 and RMCP+ session activation and
// software bridging of requests whose responder is not the BMC.

import (
	"context"
	"fmt"
	"time"

	"github.com/tturner/ipmiq/internal/ipmi/catalog"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
	"github.com/tturner/ipmiq/internal/ipmi/session"
	"github.com/tturner/ipmiq/internal/logging"
)

// DefaultTimeout bounds each request/reply exchange when the caller's
// context has no deadline.
const DefaultTimeout = 5 * time.Second

// LAN is a Connection over RMCP/RMCP+.
type LAN struct {
	udp     *UDP
	wrapper session.Wrapper
	timeout time.Duration
	ipmbSeq uint8
	log     *logging.Logger
}

// DialLAN opens a sessionless LAN connection to addr. Callers activate a
// session with ActivateV15 or ActivateV2Plus before issuing session-scoped
// commands.
func DialLAN(addr string) (*LAN, error) {
	udp, err := DialUDP(addr)
	if err != nil {
		return nil, err
	}
	return &LAN{
		udp:     udp,
		wrapper: session.None{},
		timeout: DefaultTimeout,
		log:     logging.Default(),
	}, nil
}

// SetTimeout overrides the per-exchange deadline.
func (l *LAN) SetTimeout(d time.Duration) { l.timeout = d }

// SessionID returns the active session id, zero when sessionless.
func (l *LAN) SessionID() uint32 { return l.wrapper.ID() }

// SendRecv implements Connection.
func (l *LAN) SendRecv(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if req.Bridged(protocol.BMCSlaveAddress) {
		return l.sendBridged(ctx, req)
	}
	return l.exchange(ctx, req)
}

func (l *LAN) sendBridged(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	l.ipmbSeq = (l.ipmbSeq + 1) & 0x3F
	outer := catalog.BridgeRequest(req, protocol.RemoteConsoleAddress, l.ipmbSeq)

	resp, err := l.exchange(ctx, outer.Request())
	if err != nil {
		return protocol.Response{}, err
	}
	if !resp.Code.IsSuccess() {
		return protocol.Response{}, &protocol.CompletionError{
			NetFn: protocol.NetFnApp, Cmd: 0x34, Code: resp.Code,
		}
	}
	inner, err := catalog.UnwrapBridgedResponse(resp.Data)
	if err != nil {
		return protocol.Response{}, err
	}
	return inner, nil
}

// exchange performs one framed request/reply round trip to the BMC.
func (l *LAN) exchange(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	l.ipmbSeq = (l.ipmbSeq + 1) & 0x3F
	payload := protocol.FrameIPMB(
		protocol.BMCSlaveAddress, req.NetFn.RequestValue(), req.Target.Lun,
		protocol.RemoteConsoleAddress, l.ipmbSeq, protocol.LunBMC,
		req.Cmd, req.Data,
	)

	wrapped, err := l.wrapper.Wrap(payload)
	if err != nil {
		return protocol.Response{}, err
	}
	if err := l.udp.Send(ctx, FrameRMCP(RMCPClassIPMI, wrapped)); err != nil {
		return protocol.Response{}, err
	}

	body, err := l.recvSession(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	inner, err := l.wrapper.Unwrap(body)
	if err != nil {
		return protocol.Response{}, err
	}
	return parseIPMBResponse(inner, req)
}

// recvSession reads one RMCP datagram of IPMI class and returns the
// session portion.
func (l *LAN) recvSession(ctx context.Context) ([]byte, error) {
	for {
		packet, err := l.udp.Recv(ctx, l.timeout)
		if err != nil {
			return nil, err
		}
		class, body, err := UnframeRMCP(packet)
		if err != nil {
			l.log.Debug("dropping malformed rmcp datagram: %v", err)
			continue
		}
		if class != RMCPClassIPMI {
			l.log.Debug("dropping rmcp class 0x%02X datagram", class)
			continue
		}
		return body, nil
	}
}

func parseIPMBResponse(payload []byte, req protocol.Request) (protocol.Response, error) {
	frame, err := protocol.UnframeIPMB(payload)
	if err != nil {
		return protocol.Response{}, err
	}
	if len(frame.Data) < 1 {
		return protocol.Response{}, protocol.Parsef("response carries no completion code")
	}
	resp := protocol.Response{
		NetFn: frame.NetFn,
		Cmd:   frame.Cmd,
		Code:  protocol.CompletionCode(frame.Data[0]),
		Data:  frame.Data[1:],
	}
	if !resp.Matches(req) {
		return protocol.Response{}, protocol.Parsef(
			"response (0x%02X, 0x%02X) does not match request (0x%02X, 0x%02X)",
			resp.NetFn, resp.Cmd, req.NetFn.ResponseValue(), req.Cmd)
	}
	return resp, nil
}

// execute runs a catalogued command and fails on non-success completion.
func (l *LAN) execute(ctx context.Context, cmd catalog.Command) ([]byte, error) {
	req := cmd.Request()
	resp, err := l.SendRecv(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Code.IsSuccess() {
		return nil, &protocol.CompletionError{NetFn: req.NetFn, Cmd: req.Cmd, Code: resp.Code}
	}
	return resp.Data, nil
}

// ActivateV15 opens a legacy IPMI 1.5 session: Get Channel Auth
// Capabilities, Get Session Challenge, Activate Session.
func (l *LAN) ActivateV15(ctx context.Context, creds session.Credentials) error {
	data, err := l.execute(ctx, catalog.GetChannelAuthCapabilities{
		Channel:   protocol.ChannelCurrent,
		Privilege: creds.Privilege,
	})
	if err != nil {
		return fmt.Errorf("get channel auth capabilities: %w", err)
	}
	caps, err := catalog.ParseChannelAuthCapabilities(data)
	if err != nil {
		return err
	}
	best, ok := caps.Best()
	if !ok {
		return fmt.Errorf("lan: no supported authentication type on channel %d", caps.Channel)
	}

	data, err = l.execute(ctx, catalog.GetSessionChallenge{
		AuthType: catalog.AuthNone,
		Username: creds.Username,
	})
	if err != nil {
		return fmt.Errorf("get session challenge: %w", err)
	}
	challenge, err := catalog.ParseSessionChallenge(data)
	if err != nil {
		return err
	}

	v15, err := session.NewV15(session.AuthType(best), creds.Password)
	if err != nil {
		return err
	}
	v15.PreSession(challenge.TemporarySessionID)
	l.wrapper = v15

	data, err = l.execute(ctx, catalog.ActivateSession{
		AuthType:        catalog.AuthType(best),
		Privilege:       creds.Privilege,
		Challenge:       challenge.Challenge,
		InitialSequence: 0xDEADBEEF,
	})
	if err != nil {
		l.wrapper = session.None{}
		return fmt.Errorf("activate session: %w", err)
	}
	active, err := catalog.ParseActiveSession(data)
	if err != nil {
		l.wrapper = session.None{}
		return err
	}

	v15.Activate(active.SessionID, active.InitialSequence)
	l.log.Info("ipmi 1.5 session active (id 0x%08X, auth %s)", active.SessionID, catalog.AuthType(best))
	return nil
}

// ActivateV2Plus opens an RMCP+ session: Open Session Request/Response,
// RAKP1-4, then Set Session Privilege Level. Any handshake failure leaves
// the connection sessionless.
func (l *LAN) ActivateV2Plus(ctx context.Context, creds session.Credentials, consoleID uint32) error {
	data, err := l.execute(ctx, catalog.GetChannelAuthCapabilities{
		Channel:   protocol.ChannelCurrent,
		Privilege: creds.Privilege,
		V2:        true,
	})
	if err != nil {
		return fmt.Errorf("get channel auth capabilities: %w", err)
	}
	caps, err := catalog.ParseChannelAuthCapabilities(data)
	if err != nil {
		return err
	}
	if !caps.IPMI2Supported {
		return fmt.Errorf("lan: channel %d does not support IPMI 2.0 sessions", caps.Channel)
	}

	h, err := session.NewHandshake(creds, session.CipherSuite3, consoleID)
	if err != nil {
		return err
	}

	steps := []struct {
		name    string
		produce func() ([]byte, error)
		consume func([]byte) error
	}{
		{"open session", h.OpenSessionRequest, h.HandleOpenSessionResponse},
		{"rakp 1/2", h.RAKP1, h.HandleRAKP2},
		{"rakp 3/4", h.RAKP3, h.HandleRAKP4},
	}
	for _, step := range steps {
		out, err := step.produce()
		if err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		if err := l.udp.Send(ctx, FrameRMCP(RMCPClassIPMI, out)); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		in, err := l.recvSession(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
		if err := step.consume(in); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	sess, err := h.Session()
	if err != nil {
		return err
	}
	l.wrapper = sess

	data, err = l.execute(ctx, catalog.SetSessionPrivilege{Privilege: creds.Privilege})
	if err != nil {
		l.wrapper = session.None{}
		return fmt.Errorf("set session privilege: %w", err)
	}
	granted, err := catalog.ParseSessionPrivilege(data)
	if err == nil && granted < creds.Privilege {
		l.log.Info("granted privilege %s below requested %s", granted, creds.Privilege)
	}
	l.log.Info("rmcp+ session active (id 0x%08X)", sess.ID())
	return nil
}

// CloseSession sends Close Session for the active session and drops to
// sessionless operation.
func (l *LAN) CloseSession(ctx context.Context) error {
	id := l.wrapper.ID()
	if id == 0 {
		return nil
	}
	_, err := l.execute(ctx, catalog.CloseSession{SessionID: id})

	switch s := l.wrapper.(type) {
	case *session.V15:
		s.Close()
	case *session.V20:
		s.Close()
	}
	l.wrapper = session.None{}
	return err
}

// Close tears down the session when one is active and releases the
// socket.
func (l *LAN) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.CloseSession(ctx); err != nil {
		l.log.Debug("close session: %v", err)
	}
	return l.udp.Close()
}

// Ping sends an ASF Presence Ping over the connection's socket.
func (l *LAN) Ping(ctx context.Context) (Pong, error) {
	return Ping(ctx, l.udp, l.timeout)
}
