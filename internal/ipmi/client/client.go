// Package client is the typed face of the library: it executes catalogued
// commands over a transport connection and layers SDR/SEL iteration and
// the sensor reading pipeline on top.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/tturner/ipmiq/internal/ipmi/catalog"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
	"github.com/tturner/ipmiq/internal/ipmi/transport"
	"github.com/tturner/ipmiq/internal/logging"
)

// Client owns a transport connection and executes typed commands over it.
// Not safe for concurrent callers: operations are synchronous
// request/reply on one session.
type Client struct {
	conn    transport.Connection
	bmcAddr uint8
	log     *logging.Logger
}

// New wraps an open connection.
func New(conn transport.Connection) *Client {
	return &Client{
		conn:    conn,
		bmcAddr: transport.BMCAddress(conn),
		log:     logging.Default(),
	}
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// BMCAddress returns the local BMC slave address for bridging decisions.
func (c *Client) BMCAddress() uint8 { return c.bmcAddr }

// Execute sends a catalogued command and returns the response body after
// checking the completion code. Non-success codes surface as
// *protocol.CompletionError.
func (c *Client) Execute(ctx context.Context, cmd catalog.Command) ([]byte, error) {
	req := cmd.Request()
	resp, err := c.conn.SendRecv(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.Code.IsSuccess() {
		return nil, &protocol.CompletionError{NetFn: req.NetFn, Cmd: req.Cmd, Code: resp.Code}
	}
	return resp.Data, nil
}

// completionCode extracts the completion code from an execution error.
func completionCode(err error) (protocol.CompletionCode, bool) {
	var ce *protocol.CompletionError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return 0, false
}

// DeviceID runs Get Device ID.
func (c *Client) DeviceID(ctx context.Context) (catalog.DeviceID, error) {
	data, err := c.Execute(ctx, catalog.GetDeviceID{})
	if err != nil {
		return catalog.DeviceID{}, err
	}
	return catalog.ParseDeviceID(data)
}

// ChannelInfo runs Get Channel Info.
func (c *Client) ChannelInfo(ctx context.Context, ch protocol.Channel) (catalog.ChannelInfo, error) {
	data, err := c.Execute(ctx, catalog.GetChannelInfo{Channel: ch})
	if err != nil {
		return catalog.ChannelInfo{}, err
	}
	return catalog.ParseChannelInfo(data)
}

// ChannelAccess runs Get Channel Access.
func (c *Client) ChannelAccess(ctx context.Context, ch protocol.Channel, nonVolatile bool) (catalog.ChannelAccess, error) {
	data, err := c.Execute(ctx, catalog.GetChannelAccess{Channel: ch, NonVolatile: nonVolatile})
	if err != nil {
		return catalog.ChannelAccess{}, err
	}
	return catalog.ParseChannelAccess(data)
}

// AuthCapabilities runs Get Channel Auth Capabilities.
func (c *Client) AuthCapabilities(ctx context.Context, ch protocol.Channel, priv protocol.PrivilegeLevel) (catalog.ChannelAuthCapabilities, error) {
	data, err := c.Execute(ctx, catalog.GetChannelAuthCapabilities{Channel: ch, Privilege: priv, V2: true})
	if err != nil {
		return catalog.ChannelAuthCapabilities{}, err
	}
	return catalog.ParseChannelAuthCapabilities(data)
}

// CipherSuites pages through Get Channel Cipher Suites and returns the
// concatenated record data.
func (c *Client) CipherSuites(ctx context.Context, ch protocol.Channel) ([]byte, error) {
	var out []byte
	for index := uint8(0); index < 0x40; index++ {
		data, err := c.Execute(ctx, catalog.GetChannelCipherSuites{Channel: ch, ListIndex: index})
		if err != nil {
			return nil, err
		}
		chunk, err := catalog.ParseCipherSuiteChunk(data)
		if err != nil {
			return nil, err
		}
		out = append(out, chunk.Data...)
		if len(chunk.Data) < 16 {
			break
		}
	}
	return out, nil
}

// SELInfo runs Get SEL Info.
func (c *Client) SELInfo(ctx context.Context) (catalog.SELInfo, error) {
	data, err := c.Execute(ctx, catalog.GetSELInfo{})
	if err != nil {
		return catalog.SELInfo{}, err
	}
	return catalog.ParseSELInfo(data)
}

// SELAllocInfo runs Get SEL Allocation Info.
func (c *Client) SELAllocInfo(ctx context.Context) (catalog.AllocInfo, error) {
	data, err := c.Execute(ctx, catalog.GetSELAllocInfo{})
	if err != nil {
		return catalog.AllocInfo{}, err
	}
	return catalog.ParseAllocInfo(data)
}

// ClearSEL reserves the log and initiates erasure, then polls until the
// BMC reports completion.
func (c *Client) ClearSEL(ctx context.Context) error {
	data, err := c.Execute(ctx, catalog.ReserveSEL{})
	if err != nil {
		return fmt.Errorf("reserve sel: %w", err)
	}
	reservation, err := catalog.ParseReservationID(data)
	if err != nil {
		return err
	}

	initiate := true
	for {
		data, err := c.Execute(ctx, catalog.ClearSEL{ReservationID: reservation, Initiate: initiate})
		if err != nil {
			return fmt.Errorf("clear sel: %w", err)
		}
		status, err := catalog.ParseClearSELStatus(data)
		if err != nil {
			return err
		}
		if status == catalog.ClearSELComplete {
			return nil
		}
		initiate = false
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// SDRRepositoryInfo runs Get SDR Repository Info.
func (c *Client) SDRRepositoryInfo(ctx context.Context) (catalog.SDRRepositoryInfo, error) {
	data, err := c.Execute(ctx, catalog.GetSDRRepositoryInfo{})
	if err != nil {
		return catalog.SDRRepositoryInfo{}, err
	}
	return catalog.ParseSDRRepositoryInfo(data)
}

// SDRAllocInfo runs Get SDR Repository Allocation Info.
func (c *Client) SDRAllocInfo(ctx context.Context) (catalog.AllocInfo, error) {
	data, err := c.Execute(ctx, catalog.GetSDRRepositoryAllocInfo{})
	if err != nil {
		return catalog.AllocInfo{}, err
	}
	return catalog.ParseAllocInfo(data)
}

// DeviceSDRInfo queries a sensor device for its SDR population.
func (c *Client) DeviceSDRInfo(ctx context.Context, target protocol.Address) (catalog.DeviceSDRInfo, error) {
	data, err := c.Execute(ctx, catalog.GetDeviceSDRInfo{Target: target, SDRCount: true})
	if err != nil {
		return catalog.DeviceSDRInfo{}, err
	}
	return catalog.ParseDeviceSDRInfo(data)
}

// LANConfig reads one LAN configuration parameter.
func (c *Client) LANConfig(ctx context.Context, ch protocol.Channel, param catalog.LANParam) (catalog.LANConfigData, error) {
	data, err := c.Execute(ctx, catalog.GetLANConfig{Channel: ch, Param: param})
	if err != nil {
		return catalog.LANConfigData{}, err
	}
	return catalog.ParseLANConfigData(data)
}

// SetLANConfig writes one LAN configuration parameter.
func (c *Client) SetLANConfig(ctx context.Context, ch protocol.Channel, param catalog.LANParam, value []byte) error {
	_, err := c.Execute(ctx, catalog.SetLANConfig{Channel: ch, Param: param, Data: value})
	return err
}
