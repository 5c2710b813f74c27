package evt

// Status and reason codes carried by events. HCI codes are from
// [Vol 2, Part D, 1.3], ATT codes from [Vol 3, Part F, 3.4.1.1].
const (
	StatusSuccess uint8 = 0x00

	// HCI
	ErrUnknownConnID          uint8 = 0x02
	ErrConnTimeout            uint8 = 0x08
	ErrRemoteUser             uint8 = 0x13
	ErrLocalHost              uint8 = 0x16
	ErrConnFailedEstablishing uint8 = 0x3E

	// ATT
	ErrAttInvalidHandle     uint8 = 0x01
	ErrAttInsufficientAuthn uint8 = 0x05
	ErrAttAttrNotFound      uint8 = 0x0A
	ErrAttUnlikely          uint8 = 0x0E
)
