package protocol

import "fmt"

// CompletionCode is the single-byte outcome prefix of every IPMI response.
type CompletionCode uint8

const (
	CompletionOK CompletionCode = 0x00

	CompletionNodeBusy                CompletionCode = 0xC0
	CompletionInvalidCommand          CompletionCode = 0xC1
	CompletionInvalidCommandForLUN    CompletionCode = 0xC2
	CompletionProcessingTimeout       CompletionCode = 0xC3
	CompletionOutOfSpace              CompletionCode = 0xC4
	CompletionReservationCancelled    CompletionCode = 0xC5
	CompletionRequestDataTruncated    CompletionCode = 0xC6
	CompletionRequestDataLenInvalid   CompletionCode = 0xC7
	CompletionRequestDataLenExceeded  CompletionCode = 0xC8
	CompletionParameterOutOfRange     CompletionCode = 0xC9
	CompletionCannotReturnBytes       CompletionCode = 0xCA
	CompletionDatapointNotPresent     CompletionCode = 0xCB
	CompletionInvalidDataField        CompletionCode = 0xCC
	CompletionIllegalForSensor        CompletionCode = 0xCD
	CompletionResponseUnavailable     CompletionCode = 0xCE
	CompletionDuplicateRequest        CompletionCode = 0xCF
	CompletionSDRInUpdate             CompletionCode = 0xD0
	CompletionDeviceInFwUpdate        CompletionCode = 0xD1
	CompletionBMCInitializing         CompletionCode = 0xD2
	CompletionDestinationUnavailable  CompletionCode = 0xD3
	CompletionInsufficientPrivilege   CompletionCode = 0xD4
	CompletionNotSupportedInState     CompletionCode = 0xD5
	CompletionSubFunctionDisabled     CompletionCode = 0xD6
	CompletionUnspecified             CompletionCode = 0xFF
)

var completionText = map[CompletionCode]string{
	CompletionOK:                     "command completed normally",
	CompletionNodeBusy:               "node busy",
	CompletionInvalidCommand:         "invalid command",
	CompletionInvalidCommandForLUN:   "invalid command for given LUN",
	CompletionProcessingTimeout:      "timeout while processing command",
	CompletionOutOfSpace:             "out of space",
	CompletionReservationCancelled:   "reservation cancelled or invalid reservation id",
	CompletionRequestDataTruncated:   "request data truncated",
	CompletionRequestDataLenInvalid:  "request data length invalid",
	CompletionRequestDataLenExceeded: "request data field length limit exceeded",
	CompletionParameterOutOfRange:    "parameter out of range",
	CompletionCannotReturnBytes:      "cannot return number of requested data bytes",
	CompletionDatapointNotPresent:    "requested sensor, data, or record not present",
	CompletionInvalidDataField:       "invalid data field in request",
	CompletionIllegalForSensor:       "command illegal for specified sensor or record type",
	CompletionResponseUnavailable:    "command response could not be provided",
	CompletionDuplicateRequest:       "cannot execute duplicated request",
	CompletionSDRInUpdate:            "SDR repository in update mode",
	CompletionDeviceInFwUpdate:       "device in firmware update mode",
	CompletionBMCInitializing:        "BMC initialization in progress",
	CompletionDestinationUnavailable: "destination unavailable",
	CompletionInsufficientPrivilege:  "insufficient privilege level",
	CompletionNotSupportedInState:    "command not supported in present state",
	CompletionSubFunctionDisabled:    "sub-function disabled or unavailable",
	CompletionUnspecified:            "unspecified error",
}

// IsSuccess reports whether the code indicates normal completion.
func (c CompletionCode) IsSuccess() bool {
	return c == CompletionOK
}

func (c CompletionCode) String() string {
	if s, ok := completionText[c]; ok {
		return s
	}
	switch {
	case c >= 0x01 && c <= 0x7E:
		return fmt.Sprintf("OEM completion code 0x%02X", uint8(c))
	case c >= 0x80 && c <= 0xBE:
		return fmt.Sprintf("command-specific completion code 0x%02X", uint8(c))
	}
	return fmt.Sprintf("reserved completion code 0x%02X", uint8(c))
}

// CompletionError is returned when a response carries a non-success
// completion code. The raw byte is preserved verbatim.
type CompletionError struct {
	NetFn NetFn
	Cmd   uint8
	Code  CompletionCode
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s command 0x%02X failed: %s (0x%02X)", e.NetFn, e.Cmd, e.Code, uint8(e.Code))
}
