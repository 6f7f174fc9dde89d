package crazyflie

import (
	"encoding/binary"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

const (
	logControlCreateBlock   = 0x00
	logControlDeleteBlock   = 0x02
	logControlStartBlock    = 0x03
	logControlStopBlock     = 0x04
	logControlReset         = 0x05
	logControlCreateBlockV2 = 0x06
)

// logControlError maps the errno the firmware answers block commands with.
func logControlError(code byte) error {
	switch code {
	case 0:
		return nil
	case 2:
		return ErrorLogBlockOrItemNotFound
	case 7:
		return ErrorLogBlockTooLong
	case 12:
		return ErrorLogBlockNoMemory
	default:
		return ErrorUnknown
	}
}

// ---- LOG REQUEST: GET INFO ----
type LogRequestGetInfo struct{ V2 bool }

func (p *LogRequestGetInfo) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogRequestGetInfo) Channel() crtp.Channel {
	return 0
}

func (p *LogRequestGetInfo) Bytes() []byte {
	if p.V2 {
		return []byte{tocCommandGetInfoV2}
	}
	return []byte{tocCommandGetInfo}
}

// ---- LOG RESPONSE: GET INFO ----
type LogResponseGetInfo struct {
	V2        bool
	Count     int
	CRC       uint32
	MaxPacket uint8
	MaxOps    uint8
}

func (p *LogResponseGetInfo) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogResponseGetInfo) Channel() crtp.Channel {
	return 0
}

func (p *LogResponseGetInfo) LoadFromBytes(b []byte) error {
	if p.V2 {
		if len(b) < 10 || b[1] != tocCommandGetInfoV2 {
			return crtp.ErrorPacketIncorrectType
		}
		p.Count = int(binary.LittleEndian.Uint16(b[2:4]))
		p.CRC = binary.LittleEndian.Uint32(b[4:8])
		p.MaxPacket = b[8]
		p.MaxOps = b[9]
		return nil
	}

	if len(b) < 9 || b[1] != tocCommandGetInfo {
		return crtp.ErrorPacketIncorrectType
	}
	p.Count = int(b[2])
	p.CRC = binary.LittleEndian.Uint32(b[3:7])
	p.MaxPacket = b[7]
	p.MaxOps = b[8]
	return nil
}

// ---- LOG REQUEST: GET ITEM ----
type LogRequestGetItem struct {
	V2 bool
	ID uint16
}

func (p *LogRequestGetItem) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogRequestGetItem) Channel() crtp.Channel {
	return 0
}

func (p *LogRequestGetItem) Bytes() []byte {
	if p.V2 {
		return append([]byte{tocCommandGetItemV2}, idBytes(p.ID, true)...)
	}
	return append([]byte{tocCommandGetItem}, idBytes(p.ID, false)...)
}

// ---- LOG RESPONSE: GET ITEM ----
type LogResponseGetItem struct {
	V2       bool
	ID       uint16
	Datatype byte
	Name     string
}

func (p *LogResponseGetItem) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogResponseGetItem) Channel() crtp.Channel {
	return 0
}

func (p *LogResponseGetItem) LoadFromBytes(b []byte) error {
	command := byte(tocCommandGetItem)
	if p.V2 {
		command = tocCommandGetItemV2
	}
	if len(b) < 2 || b[1] != command {
		return crtp.ErrorPacketIncorrectType
	}

	id, n, ok := idFromBytes(b[2:], p.V2)
	if !ok || id != p.ID || len(b) < 3+n {
		return crtp.ErrorPacketIncorrectType
	}

	name, ok := splitName(b[3+n:])
	if !ok {
		return crtp.ErrorPacketIncorrectType
	}

	p.Datatype = b[2+n] & 0x0F
	p.Name = name
	return nil
}

// ---- LOG REQUEST: BLOCK CLEAR ALL ----
type LogRequestBlockClearAll struct{}

func (p *LogRequestBlockClearAll) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogRequestBlockClearAll) Channel() crtp.Channel {
	return 1
}

func (p *LogRequestBlockClearAll) Bytes() []byte {
	return []byte{logControlReset}
}

// ---- LOG RESPONSE: BLOCK CLEAR ALL ----
type LogResponseBlockClearAll struct{}

func (p *LogResponseBlockClearAll) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogResponseBlockClearAll) Channel() crtp.Channel {
	return 1
}

func (p *LogResponseBlockClearAll) LoadFromBytes(b []byte) error {
	if len(b) < 2 || b[1] != logControlReset {
		return crtp.ErrorPacketIncorrectType
	}
	// this is just an acknowledgement packet, so no need to do anything other than detect its reception
	return nil
}

// ---- LOG REQUEST: BLOCK ADD ----
type LogRequestBlockAdd struct {
	V2                bool
	BlockID           uint8
	VariableIDs       []uint16
	VariableDatatypes []uint8
}

func (p *LogRequestBlockAdd) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogRequestBlockAdd) Channel() crtp.Channel {
	return 1
}

func (p *LogRequestBlockAdd) Bytes() []byte {
	command := byte(logControlCreateBlock)
	if p.V2 {
		command = logControlCreateBlockV2
	}

	packet := []byte{command, p.BlockID}
	for i := range p.VariableIDs {
		packet = append(packet, p.VariableDatatypes[i])
		packet = append(packet, idBytes(p.VariableIDs[i], p.V2)...)
	}
	return packet
}

// ---- LOG RESPONSE: BLOCK CONTROL ----
// Add, delete, start and stop are all acknowledged as command, block id, errno.
type LogResponseBlockControl struct {
	Command byte
	BlockID uint8
}

func (p *LogResponseBlockControl) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogResponseBlockControl) Channel() crtp.Channel {
	return 1
}

func (p *LogResponseBlockControl) LoadFromBytes(b []byte) error {
	if len(b) < 4 || b[1] != p.Command || b[2] != p.BlockID {
		return crtp.ErrorPacketIncorrectType
	}

	return logControlError(b[3])
}

// ---- LOG REQUEST: BLOCK DELETE ----
type LogRequestBlockDelete struct {
	BlockID uint8
}

func (p *LogRequestBlockDelete) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogRequestBlockDelete) Channel() crtp.Channel {
	return 1
}

func (p *LogRequestBlockDelete) Bytes() []byte {
	return []byte{logControlDeleteBlock, p.BlockID}
}

// ---- LOG REQUEST: BLOCK START ----
type LogRequestBlockStart struct {
	BlockID uint8
	Period  uint8 // in units of 10ms
}

func (p *LogRequestBlockStart) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogRequestBlockStart) Channel() crtp.Channel {
	return 1
}

func (p *LogRequestBlockStart) Bytes() []byte {
	return []byte{logControlStartBlock, p.BlockID, p.Period}
}

// ---- LOG REQUEST: BLOCK STOP ----
type LogRequestBlockStop struct {
	BlockID uint8
}

func (p *LogRequestBlockStop) Port() crtp.Port {
	return crtp.PortLog
}

func (p *LogRequestBlockStop) Channel() crtp.Channel {
	return 1
}

func (p *LogRequestBlockStop) Bytes() []byte {
	return []byte{logControlStopBlock, p.BlockID}
}
