package catalog

// System Event Log (NetFn 0x0A) commands.

import (
	"github.com/tturner/ipmiq/internal/ipmi/codec"
	"github.com/tturner/ipmiq/internal/ipmi/protocol"
)

const (
	cmdGetSELInfo      = 0x40
	cmdGetSELAllocInfo = 0x41
	cmdReserveSEL      = 0x42
	cmdGetSELEntry     = 0x43
	cmdClearSEL        = 0x47
)

// SEL record id sentinels.
const (
	SELFirstEntry uint16 = 0x0000
	SELLastEntry  uint16 = 0xFFFF
)

// GetSELInfo requests SEL device capabilities and usage.
type GetSELInfo struct{}

func (GetSELInfo) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnStorage, cmdGetSELInfo, nil)
}

// SELInfo is the parsed response.
type SELInfo struct {
	VersionMajor    uint8
	VersionMinor    uint8
	Entries         uint16
	FreeBytes       uint16
	LastAddTime     uint32
	LastEraseTime   uint32
	Overflow        bool
	SupportsDelete      bool
	SupportsPartialAdd  bool
	SupportsReserve     bool
	SupportsGetAlloc    bool
}

// ParseSELInfo decodes the response body.
func ParseSELInfo(data []byte) (SELInfo, error) {
	if len(data) < 14 {
		return SELInfo{}, protocol.ErrShortResponse("Get SEL Info", len(data), 14)
	}
	return SELInfo{
		VersionMajor:       data[0] & 0xF,
		VersionMinor:       data[0] >> 4 & 0xF,
		Entries:            codec.Uint16(data[1:3]),
		FreeBytes:          codec.Uint16(data[3:5]),
		LastAddTime:        codec.Uint32(data[5:9]),
		LastEraseTime:      codec.Uint32(data[9:13]),
		Overflow:           codec.Bit(data[13], 7),
		SupportsDelete:     codec.Bit(data[13], 3),
		SupportsPartialAdd: codec.Bit(data[13], 2),
		SupportsReserve:    codec.Bit(data[13], 1),
		SupportsGetAlloc:   codec.Bit(data[13], 0),
	}, nil
}

// GetSELAllocInfo requests SEL storage allocation details.
type GetSELAllocInfo struct{}

func (GetSELAllocInfo) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnStorage, cmdGetSELAllocInfo, nil)
}

// AllocInfo describes storage allocation for the SEL or SDR repository.
type AllocInfo struct {
	AllocationUnits  uint16
	AllocationSize   uint16
	FreeUnits        uint16
	LargestFreeBlock uint16
	MaxRecordSize    uint8
}

// ParseAllocInfo decodes an allocation info body (shared SEL/SDR layout).
func ParseAllocInfo(data []byte) (AllocInfo, error) {
	if len(data) < 9 {
		return AllocInfo{}, protocol.ErrShortResponse("Get Allocation Info", len(data), 9)
	}
	return AllocInfo{
		AllocationUnits:  codec.Uint16(data[0:2]),
		AllocationSize:   codec.Uint16(data[2:4]),
		FreeUnits:        codec.Uint16(data[4:6]),
		LargestFreeBlock: codec.Uint16(data[6:8]),
		MaxRecordSize:    data[8],
	}, nil
}

// ReserveSEL obtains a reservation id for partial reads and clears.
type ReserveSEL struct{}

func (ReserveSEL) Request() protocol.Request {
	return protocol.NewRequest(protocol.NetFnStorage, cmdReserveSEL, nil)
}

// ParseReservationID decodes a reservation id body (shared SEL/SDR layout).
func ParseReservationID(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, protocol.ErrShortResponse("Reserve", len(data), 2)
	}
	return codec.Uint16(data[0:2]), nil
}

// GetSELEntry reads one SEL record, or part of one under a reservation.
type GetSELEntry struct {
	ReservationID uint16 // zero when reading whole records
	RecordID      uint16
	Offset        uint8
	Length        uint8 // 0xFF reads the whole record
}

func (c GetSELEntry) Request() protocol.Request {
	body := make([]byte, 6)
	codec.PutUint16(body[0:], c.ReservationID)
	codec.PutUint16(body[2:], c.RecordID)
	body[4] = c.Offset
	length := c.Length
	if length == 0 {
		length = 0xFF
	}
	body[5] = length
	return protocol.NewRequest(protocol.NetFnStorage, cmdGetSELEntry, body)
}

// SELEntryChunk is the parsed Get SEL Entry response: the id of the next
// record and the requested bytes of this one.
type SELEntryChunk struct {
	NextRecordID uint16
	Data         []byte
}

// ParseSELEntryChunk decodes the response body.
func ParseSELEntryChunk(data []byte) (SELEntryChunk, error) {
	if len(data) < 2 {
		return SELEntryChunk{}, protocol.ErrShortResponse("Get SEL Entry", len(data), 2)
	}
	return SELEntryChunk{
		NextRecordID: codec.Uint16(data[0:2]),
		Data:         append([]byte(nil), data[2:]...),
	}, nil
}

// ClearSEL erases the log, or polls erasure progress when Initiate is false.
type ClearSEL struct {
	ReservationID uint16
	Initiate      bool
}

func (c ClearSEL) Request() protocol.Request {
	body := make([]byte, 6)
	codec.PutUint16(body[0:], c.ReservationID)
	body[2], body[3], body[4] = 'C', 'L', 'R'
	if c.Initiate {
		body[5] = 0xAA
	} else {
		body[5] = 0x00
	}
	return protocol.NewRequest(protocol.NetFnStorage, cmdClearSEL, body)
}

// ClearSELStatus reports erasure progress.
type ClearSELStatus uint8

const (
	ClearSELInProgress ClearSELStatus = 0x0
	ClearSELComplete   ClearSELStatus = 0x1
)

// ParseClearSELStatus decodes the response body.
func ParseClearSELStatus(data []byte) (ClearSELStatus, error) {
	if len(data) < 1 {
		return 0, protocol.ErrShortResponse("Clear SEL", len(data), 1)
	}
	return ClearSELStatus(data[0] & 0xF), nil
}
