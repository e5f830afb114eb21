//go:build linux

package transport

// Character-device transport over the Linux OpenIPMI driver. Requests go
// down with IPMICTL_SEND_COMMAND and replies come back through
// IPMICTL_RECEIVE_MSG_TRUNC, matched by the driver-echoed message id.

import (
	"context"
	"fmt"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/tturner/ipmiq/internal/ipmi/protocol"
	"github.com/tturner/ipmiq/internal/logging"
)

// OpenIPMI ioctl vocabulary, from <linux/ipmi.h>.
const (
	ipmiIOCMagic = 'i'

	iocWrite = 1
	iocRead  = 2

	ipmiSystemInterfaceAddrType = 0x0C
	ipmiIPMBAddrType            = 0x01
	ipmiBMCChannel              = 0xF

	ipmiResponseRecvType = 1
)

type ipmiMsg struct {
	netfn   uint8
	cmd     uint8
	dataLen uint16
	data    *byte
}

type ipmiReq struct {
	addr    *byte
	addrLen uint32
	msgid   int64
	msg     ipmiMsg
}

type ipmiRecv struct {
	recvType int32
	addr     *byte
	addrLen  uint32
	msgid    int64
	msg      ipmiMsg
}

type ipmiSystemInterfaceAddr struct {
	addrType int32
	channel  int16
	lun      uint8
}

type ipmiIPMBAddr struct {
	addrType  int32
	channel   int16
	slaveAddr uint8
	lun       uint8
}

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | ipmiIOCMagic<<8 | nr
}

var (
	ioctlSendCommand  = ioc(iocRead, 13, unsafe.Sizeof(ipmiReq{}))
	ioctlRecvMsgTrunc = ioc(iocRead|iocWrite, 11, unsafe.Sizeof(ipmiRecv{}))
	ioctlGetMyAddress = ioc(iocRead, 18, unsafe.Sizeof(uint32(0)))
)

// File is a connection over /dev/ipmiN. One open handle per transport;
// the device enforces exclusivity of the message id space per fd.
type File struct {
	f       *os.File
	msgid   int64
	bmcAddr uint8
	// recvPollInterval bounds each poll(2) wait so ctx cancellation is
	// honored between polls.
	recvPollInterval time.Duration
}

// OpenFile opens an OpenIPMI character device such as /dev/ipmi0.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	t := &File{f: f, bmcAddr: protocol.BMCSlaveAddress, recvPollInterval: 100 * time.Millisecond}

	// The driver knows the BMC's slave address; fall back to 0x20.
	var addr uint32
	if err := t.ioctl(ioctlGetMyAddress, unsafe.Pointer(&addr)); err == nil && addr <= 0xFF {
		t.bmcAddr = uint8(addr)
	}
	return t, nil
}

// BMCAddress reports the local BMC slave address from the driver.
func (t *File) BMCAddress() uint8 { return t.bmcAddr }

func (t *File) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, t.f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

// nextMsgID assigns the driver-visible message id, wrapping mod 2^31.
func (t *File) nextMsgID() int64 {
	t.msgid = (t.msgid + 1) & 0x7FFFFFFF
	return t.msgid
}

// SendRecv issues one request and waits for its matching reply.
func (t *File) SendRecv(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	msgid, err := t.send(req)
	if err != nil {
		return protocol.Response{}, err
	}
	return t.recv(ctx, msgid, req)
}

func (t *File) send(req protocol.Request) (int64, error) {
	data := req.Data
	var dataPtr *byte
	if len(data) > 0 {
		dataPtr = &data[0]
	}

	msgid := t.nextMsgID()
	kreq := ipmiReq{
		msgid: msgid,
		msg: ipmiMsg{
			netfn:   req.NetFn.RequestValue(),
			cmd:     req.Cmd,
			dataLen: uint16(len(data)),
			data:    dataPtr,
		},
	}

	// Bridged requests go out with an IPMB address; the driver handles
	// the Send Message encapsulation itself.
	var sysAddr ipmiSystemInterfaceAddr
	var ipmbAddr ipmiIPMBAddr
	if req.Bridged(t.bmcAddr) {
		ipmbAddr = ipmiIPMBAddr{
			addrType:  ipmiIPMBAddrType,
			channel:   int16(req.Target.Channel),
			slaveAddr: req.Target.SlaveAddress,
			lun:       req.Target.Lun.Value(),
		}
		kreq.addr = (*byte)(unsafe.Pointer(&ipmbAddr))
		kreq.addrLen = uint32(unsafe.Sizeof(ipmbAddr))
	} else {
		sysAddr = ipmiSystemInterfaceAddr{
			addrType: ipmiSystemInterfaceAddrType,
			channel:  ipmiBMCChannel,
			lun:      req.Target.Lun.Value(),
		}
		kreq.addr = (*byte)(unsafe.Pointer(&sysAddr))
		kreq.addrLen = uint32(unsafe.Sizeof(sysAddr))
	}

	if err := t.ioctl(ioctlSendCommand, unsafe.Pointer(&kreq)); err != nil {
		return 0, fmt.Errorf("ipmi send ioctl: %w", err)
	}
	return msgid, nil
}

func (t *File) recv(ctx context.Context, msgid int64, req protocol.Request) (protocol.Response, error) {
	deadline, hasDeadline := ctx.Deadline()

	for {
		if err := ctx.Err(); err != nil {
			return protocol.Response{}, err
		}

		waitMs := int(t.recvPollInterval / time.Millisecond)
		if hasDeadline {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return protocol.Response{}, fmt.Errorf("ipmi recv: %w", context.DeadlineExceeded)
			}
			if remaining < t.recvPollInterval {
				waitMs = int(remaining/time.Millisecond) + 1
			}
		}

		fds := []unix.PollFd{{Fd: int32(t.f.Fd()), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, waitMs)
		if err != nil && err != unix.EINTR {
			return protocol.Response{}, fmt.Errorf("poll %s: %w", t.f.Name(), err)
		}
		if n == 0 {
			continue
		}

		resp, gotID, err := t.readOne()
		if err != nil {
			return protocol.Response{}, err
		}

		// The driver queues replies per fd; an id mismatch means a stale
		// reply from an earlier timed-out request. Discard it.
		if gotID != msgid {
			logging.Default().Debug("%s: discarding reply with message id %d, waiting for %d",
				t.f.Name(), gotID, msgid)
			continue
		}
		if !resp.Matches(req) {
			return protocol.Response{}, protocol.Parsef(
				"response (0x%02X, 0x%02X) does not match request (0x%02X, 0x%02X)",
				resp.NetFn, resp.Cmd, req.NetFn.ResponseValue(), req.Cmd)
		}
		return resp, nil
	}
}

func (t *File) readOne() (protocol.Response, int64, error) {
	buf := make([]byte, 1024)
	var addr ipmiSystemInterfaceAddr

	recv := ipmiRecv{
		addr:    (*byte)(unsafe.Pointer(&addr)),
		addrLen: uint32(unsafe.Sizeof(addr)),
		msg: ipmiMsg{
			dataLen: uint16(len(buf)),
			data:    &buf[0],
		},
	}

	if err := t.ioctl(ioctlRecvMsgTrunc, unsafe.Pointer(&recv)); err != nil {
		return protocol.Response{}, 0, fmt.Errorf("ipmi recv ioctl: %w", err)
	}

	if !protocol.IsResponse(recv.msg.netfn) {
		return protocol.Response{}, 0, protocol.Parsef("received non-response netfn 0x%02X", recv.msg.netfn)
	}
	if recv.msg.dataLen < 1 {
		return protocol.Response{}, 0, protocol.Parsef("response carries no completion code")
	}

	data := buf[:recv.msg.dataLen]
	return protocol.Response{
		NetFn: recv.msg.netfn,
		Cmd:   recv.msg.cmd,
		Code:  protocol.CompletionCode(data[0]),
		Data:  append([]byte(nil), data[1:]...),
	}, recv.msgid, nil
}

// Close releases the device.
func (t *File) Close() error {
	return t.f.Close()
}
