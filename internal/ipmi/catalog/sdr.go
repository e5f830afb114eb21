package catalog

// SDR repository (NetFn 0x0A) and device SDR (NetFn 0x04) commands.

import (
	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

const (
	cmdGetSDRRepoInfo      = 0x20
	cmdGetSDRRepoAllocInfo = 0x21
	cmdReserveSDRRepo      = 0x22
	cmdGetSDR              = 0x23

	cmdGetDeviceSDRInfo = 0x20
	cmdGetDeviceSDR     = 0x21
	cmdReserveDeviceSDR = 0x22
)

// SDR record id sentinels.
const (
	SDRFirstRecord uint16 = 0x0000
	SDRLastRecord  uint16 = 0xFFFF
)

// GetSDRRepositoryInfo requests repository version and usage.
type GetSDRRepositoryInfo struct{}

func (GetSDRRepositoryInfo) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnStorage, cmdGetSDRRepoInfo, nil)
}

// SDRRepositoryInfo is the parsed response.
type SDRRepositoryInfo struct {
	VersionMajor      uint8
	VersionMinor      uint8
	Records           uint16
	FreeBytes         uint16
	LastAddTime       uint32
	LastEraseTime     uint32
	Overflow          bool
	SupportsDelete    bool
	SupportsPartial   bool
	SupportsReserve   bool
	SupportsGetAlloc  bool
	UpdateMode        uint8
}

// ParseSDRRepositoryInfo decodes the response body.
func ParseSDRRepositoryInfo(data []byte) (SDRRepositoryInfo, error) {
	if len(data) < 14 {
		return SDRRepositoryInfo{}, protocol.ErrShortResponse("Get SDR Repository Info", len(data), 14)
	}
	return SDRRepositoryInfo{
		VersionMajor:     data[0] & 0xF,
		VersionMinor:     data[0] >> 4 & 0xF,
		Records:          codec.Uint16(data[1:3]),
		FreeBytes:        codec.Uint16(data[3:5]),
		LastAddTime:      codec.Uint32(data[5:9]),
		LastEraseTime:    codec.Uint32(data[9:13]),
		Overflow:         codec.Bit(data[13], 7),
		UpdateMode:       data[13] >> 5 & 0x3,
		SupportsDelete:   codec.Bit(data[13], 3),
		SupportsPartial:  codec.Bit(data[13], 2),
		SupportsReserve:  codec.Bit(data[13], 1),
		SupportsGetAlloc: codec.Bit(data[13], 0),
	}, nil
}

// GetSDRRepositoryAllocInfo requests repository allocation details.
type GetSDRRepositoryAllocInfo struct{}

func (GetSDRRepositoryAllocInfo) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnStorage, cmdGetSDRRepoAllocInfo, nil)
}

// ReserveSDRRepository obtains a reservation id for partial record reads.
type ReserveSDRRepository struct{}

func (ReserveSDRRepository) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnStorage, cmdReserveSDRRepo, nil)
}

// GetSDR reads one repository record, or a chunk of one under a
// reservation.
type GetSDR struct {
	ReservationID uint16
	RecordID      uint16
	Offset        uint8
	Length        uint8 // 0xFF reads the whole record
}

func (c GetSDR) Request() protocol.Request {
	body := make([]byte, 6)
	codec.PutUint16(body[0:], c.ReservationID)
	codec.PutUint16(body[2:], c.RecordID)
	body[4] = c.Offset
	length := c.Length
	if length == 0 {
		length = 0xFF
	}
	body[5] = length
	return protocol.NewRequest(protocol.NetFnStorage, cmdGetSDR, body)
}

// SDRChunk is the parsed Get SDR response.
type SDRChunk struct {
	NextRecordID uint16
	Data         []byte
}

// ParseSDRChunk decodes the response body.
func ParseSDRChunk(data []byte) (SDRChunk, error) {
	if len(data) < 2 {
		return SDRChunk{}, protocol.ErrShortResponse("Get SDR", len(data), 2)
	}
	return SDRChunk{
		NextRecordID: codec.Uint16(data[0:2]),
		Data:         append([]byte(nil), data[2:]...),
	}, nil
}

// GetDeviceSDRInfo queries a sensor device for its SDR count.
type GetDeviceSDRInfo struct {
	Target protocol.Address
	// SDRCount requests the number of SDRs rather than sensors.
	SDRCount bool
}

func (c GetDeviceSDRInfo) Request() protocol.Request {
	op := uint8(0)
	if c.SDRCount {
		op = 1
	}
	req := protocol.NewRequest(protocol.NetFnSensor, cmdGetDeviceSDRInfo, []byte{op})
	if c.Target != (protocol.Address{}) {
		req.Target = c.Target
	}
	return req
}

// DeviceSDRInfo is the parsed response.
type DeviceSDRInfo struct {
	Count           uint8
	DynamicPopulace bool
	LUNsWithSensors [4]bool
	ChangeIndicator uint32
}

// ParseDeviceSDRInfo decodes the response body.
func ParseDeviceSDRInfo(data []byte) (DeviceSDRInfo, error) {
	if len(data) < 2 {
		return DeviceSDRInfo{}, protocol.ErrShortResponse("Get Device SDR Info", len(data), 2)
	}
	info := DeviceSDRInfo{
		Count:           data[0],
		DynamicPopulace: codec.Bit(data[1], 7),
	}
	for i := 0; i < 4; i++ {
		info.LUNsWithSensors[i] = codec.Bit(data[1], uint(i))
	}
	if info.DynamicPopulace && len(data) >= 6 {
		info.ChangeIndicator = codec.Uint32(data[2:6])
	}
	return info, nil
}

// GetDeviceSDR reads a record from a sensor device's own SDR store. The
// wire layout matches Get SDR.
type GetDeviceSDR struct {
	Target        protocol.Address
	ReservationID uint16
	RecordID      uint16
	Offset        uint8
	Length        uint8
}

func (c GetDeviceSDR) Request() protocol.Request {
	body := make([]byte, 6)
	codec.PutUint16(body[0:], c.ReservationID)
	codec.PutUint16(body[2:], c.RecordID)
	body[4] = c.Offset
	length := c.Length
	if length == 0 {
		length = 0xFF
	}
	body[5] = length
	req := protocol.NewRequest(protocol.NetFnSensor, cmdGetDeviceSDR, body)
	if c.Target != (protocol.Address{}) {
		req.Target = c.Target
	}
	return req
}

// ReserveDeviceSDRRepository reserves a sensor device's SDR store.
type ReserveDeviceSDRRepository struct {
	Target protocol.Address
}

func (c ReserveDeviceSDRRepository) Request() protocol.Request {
	req := protocol.NewRequest(protocol.NetFnSensor, cmdReserveDeviceSDR, nil)
	if c.Target != (protocol.Address{}) {
		req.Target = c.Target
	}
	return req
}
