package crazyflie

import (
	"encoding/binary"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

// The TOC commands come in two generations. V2 widens the item id to 16 bits;
// firmware since 2021 only answers V2, older firmware only V1.
const (
	tocCommandGetItem   = 0x00
	tocCommandGetInfo   = 0x01
	tocCommandGetItemV2 = 0x02
	tocCommandGetInfoV2 = 0x03
)

// idBytes encodes a TOC item id in the width the protocol version expects.
func idBytes(id uint16, v2 bool) []byte {
	if v2 {
		return []byte{byte(id), byte(id >> 8)}
	}
	return []byte{byte(id)}
}

// idFromBytes decodes a TOC item id, returning it and the number of bytes it used.
func idFromBytes(b []byte, v2 bool) (uint16, int, bool) {
	if v2 {
		if len(b) < 2 {
			return 0, 0, false
		}
		return binary.LittleEndian.Uint16(b), 2, true
	}
	if len(b) < 1 {
		return 0, 0, false
	}
	return uint16(b[0]), 1, true
}

// ---- PARAM REQUEST: GET INFO ----
type ParamRequestGetInfo struct{ V2 bool }

func (p *ParamRequestGetInfo) Port() crtp.Port {
	return crtp.PortParam
}

func (p *ParamRequestGetInfo) Channel() crtp.Channel {
	return 0
}

func (p *ParamRequestGetInfo) Bytes() []byte {
	if p.V2 {
		return []byte{tocCommandGetInfoV2}
	}
	return []byte{tocCommandGetInfo}
}

// ---- PARAM RESPONSE: GET INFO ----
type ParamResponseGetInfo struct {
	V2    bool
	Count int
	CRC   uint32
}

func (p *ParamResponseGetInfo) Port() crtp.Port {
	return crtp.PortParam
}

func (p *ParamResponseGetInfo) Channel() crtp.Channel {
	return 0
}

func (p *ParamResponseGetInfo) LoadFromBytes(b []byte) error { // b[0] is the CRTP Header, but packets are only passed to this function if this header matches the packet's Port() and Channel()
	if p.V2 {
		if len(b) < 8 || b[1] != tocCommandGetInfoV2 {
			return crtp.ErrorPacketIncorrectType
		}
		p.Count = int(binary.LittleEndian.Uint16(b[2:4]))
		p.CRC = binary.LittleEndian.Uint32(b[4:8])
		return nil
	}

	if len(b) < 7 || b[1] != tocCommandGetInfo {
		return crtp.ErrorPacketIncorrectType
	}
	p.Count = int(b[2])
	p.CRC = binary.LittleEndian.Uint32(b[3:7])
	return nil
}

// ---- PARAM REQUEST: GET ITEM ----
type ParamRequestReadMeta struct {
	V2 bool
	ID uint16
}

func (p *ParamRequestReadMeta) Port() crtp.Port {
	return crtp.PortParam
}

func (p *ParamRequestReadMeta) Channel() crtp.Channel {
	return 0
}

func (p *ParamRequestReadMeta) Bytes() []byte {
	if p.V2 {
		return append([]byte{tocCommandGetItemV2}, idBytes(p.ID, true)...)
	}
	return append([]byte{tocCommandGetItem}, idBytes(p.ID, false)...)
}

// ---- PARAM RESPONSE: GET ITEM ----
type ParamResponseReadMeta struct {
	V2       bool
	ID       uint16
	Datatype byte
	ReadOnly bool
	Name     string
}

func (p *ParamResponseReadMeta) Port() crtp.Port {
	return crtp.PortParam
}

func (p *ParamResponseReadMeta) Channel() crtp.Channel {
	return 0
}

func (p *ParamResponseReadMeta) LoadFromBytes(b []byte) error {
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

	meta := b[2+n]
	name, ok := splitName(b[3+n:])
	if !ok {
		return crtp.ErrorPacketIncorrectType
	}

	p.Datatype = meta & 0x0F
	p.ReadOnly = meta&(1<<6) != 0
	p.Name = name
	return nil
}

// ---- PARAM REQUEST: READ VALUE ----
type ParamRequestReadValue struct {
	V2 bool
	ID uint16
}

func (p *ParamRequestReadValue) Port() crtp.Port {
	return crtp.PortParam
}

func (p *ParamRequestReadValue) Channel() crtp.Channel {
	return 1
}

func (p *ParamRequestReadValue) Bytes() []byte {
	return idBytes(p.ID, p.V2)
}

// ---- PARAM RESPONSE: READ VALUE ----
type ParamResponseReadValue struct {
	V2   bool
	ID   uint16
	Data []uint8
}

func (p *ParamResponseReadValue) Port() crtp.Port {
	return crtp.PortParam
}

func (p *ParamResponseReadValue) Channel() crtp.Channel {
	return 1
}

func (p *ParamResponseReadValue) LoadFromBytes(b []byte) error {
	id, n, ok := idFromBytes(b[1:], p.V2)
	if !ok || id != p.ID {
		return crtp.ErrorPacketIncorrectType
	}

	start := 1 + n
	if p.V2 {
		// V2 read responses carry a status byte before the value
		if len(b) < start+1 {
			return crtp.ErrorPacketIncorrectType
		}
		if b[start] != 0 {
			return ErrorParamNotFound
		}
		start++
	}

	p.Data = append([]byte(nil), b[start:]...)
	return nil
}

// ---- PARAM REQUEST: WRITE VALUE ----
type ParamRequestWriteValue struct {
	V2   bool
	ID   uint16
	Data []byte
}

func (p *ParamRequestWriteValue) Port() crtp.Port {
	return crtp.PortParam
}

func (p *ParamRequestWriteValue) Channel() crtp.Channel {
	return 2
}

func (p *ParamRequestWriteValue) Bytes() []byte {
	return append(idBytes(p.ID, p.V2), p.Data...)
}

// ---- PARAM RESPONSE: WRITE VALUE ----
type ParamResponseWriteValue struct {
	V2   bool
	ID   uint16
	Data []byte
}

func (p *ParamResponseWriteValue) Port() crtp.Port {
	return crtp.PortParam
}

func (p *ParamResponseWriteValue) Channel() crtp.Channel {
	return 2
}

func (p *ParamResponseWriteValue) LoadFromBytes(b []byte) error {
	id, n, ok := idFromBytes(b[1:], p.V2)
	if !ok || id != p.ID {
		return crtp.ErrorPacketIncorrectType
	}

	// the firmware echoes the value it now holds
	p.Data = append([]byte(nil), b[1+n:]...)
	return nil
}
