package ofmsg

import "encoding/binary"

// ErrType is the high-level error category of an OFPT_ERROR message.
type ErrType uint16

// ErrCode is the precise error, interpreted relative to ErrType.
type ErrCode uint16

const (
	ErrTypeHelloFailed ErrType = iota
	ErrTypeBadRequest
	ErrTypeBadAction
	ErrTypeBadInstruction
	ErrTypeBadMatch
	ErrTypeFlowModFailed
	ErrTypeGroupModFailed
	ErrTypePortModFailed
	ErrTypeTableModFailed
	ErrTypeQueueOpFailed
	ErrTypeSwitchConfigFailed
	ErrTypeRoleRequestFailed
	ErrTypeMeterModFailed
	ErrTypeTableFeaturesFailed
	// ErrTypeTLVTableMod is the Nicira vendor error type used for
	// failed TLV table modifications.
	ErrTypeTLVTableMod ErrType = 0xffff
)

// Codes under ErrTypeTLVTableMod. A DUP_ENTRY or ALREADY_MAPPED error
// indicates a race with another controller allocating the same
// option; any other code is a hard negotiation failure.
const (
	ErrCodeTLVAlreadyMapped ErrCode = iota
	ErrCodeTLVDupEntry
	ErrCodeTLVIndexOutOfRange
	ErrCodeTLVMapped
	ErrCodeTLVUnknown
	ErrCodeTLVOFBConflict
	ErrCodeTLVOFBOnlyOne
	ErrCodeTLVInvalidTLVDeletion
)

// ErrorMsg is a decoded OFPT_ERROR message.
type ErrorMsg struct {
	Type ErrType
	Code ErrCode
	Data []byte
}

// DecodeError parses an OFPT_ERROR message body.
func DecodeError(body []byte) ErrorMsg {
	if len(body) < 4 {
		return ErrorMsg{}
	}

	return ErrorMsg{
		Type: ErrType(binary.BigEndian.Uint16(body[0:2])),
		Code: ErrCode(binary.BigEndian.Uint16(body[2:4])),
		Data: body[4:],
	}
}

// IsTunnelOptionRace reports whether e is the "another controller
// already allocated this option" race spec.md §4.1 treats specially.
func (e ErrorMsg) IsTunnelOptionRace() bool {
	return e.Type == ErrTypeTLVTableMod &&
		(e.Code == ErrCodeTLVAlreadyMapped || e.Code == ErrCodeTLVDupEntry)
}
