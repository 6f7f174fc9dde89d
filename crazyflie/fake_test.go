package crazyflie

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

type fakeVariable struct {
	name     string // group.name
	datatype byte   // includes the read only bit for params
	value    []byte
}

// fakeFirmware answers param and log requests the way the Crazyflie
// firmware does. Replies are delivered synchronously from PacketSend.
type fakeFirmware struct {
	lock     sync.Mutex
	callback func([]byte)
	silent   bool // no ack at all, as if nothing is listening
	v1Only   bool // ignore the V2 TOC commands

	params  []fakeVariable
	logs    []fakeVariable
	blocks  map[uint8][]uint16
	started map[uint8]uint8

	sent      [][]byte
	priority  [][]byte
	setpoints [][]byte
	tocItems  int // number of TOC item requests served
	flushes   int
	stuck     bool // queued packets never drain
	removed   bool
	bootReply bool
}

func newFakeFirmware() *fakeFirmware {
	return &fakeFirmware{
		params: []fakeVariable{
			{"crtp_pwm.enable", 0x08, []byte{0}},
			{"crtp_pwm.timeoutMs", 0x09, []byte{50, 0}},
			{"pm.vbat", 0x06 | 0x40, []byte{0x00, 0x00, 0x80, 0x40}}, // 4.0
		},
		logs: []fakeVariable{
			{"crtp_pwm.m1", 2, nil},
			{"crtp_pwm.m2", 2, nil},
			{"crtp_pwm.m3", 2, nil},
			{"crtp_pwm.m4", 2, nil},
			{"crtp_pwm.seq", 2, nil},
		},
		blocks:  make(map[uint8][]uint16),
		started: make(map[uint8]uint8),
	}
}

func (f *fakeFirmware) ClientRegister(channel uint8, address uint64, responseCallback func([]byte)) {
	f.lock.Lock()
	f.callback = responseCallback
	f.removed = false
	silent := f.silent
	f.lock.Unlock()

	if !silent {
		responseCallback([]byte{}) // the first ping is acked
	}
}

func (f *fakeFirmware) ClientRemove(channel uint8, address uint64) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.removed = true
}

func (f *fakeFirmware) ClientWaitUntilAllPacketsHaveBeenSent(channel uint8, address uint64, timeout time.Duration) bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.flushes++
	return !f.stuck
}

func (f *fakeFirmware) PacketSend(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	return f.receive(request, false)
}

func (f *fakeFirmware) PacketSendPriority(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	return f.receive(request, true)
}

func (f *fakeFirmware) PacketSendSetpoint(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	data, err := crtp.Encode(request)
	if err != nil {
		return err
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	f.setpoints = append(f.setpoints, data)
	return nil
}

func (f *fakeFirmware) receive(request crtp.RequestPacketPtr, priority bool) error {
	data, err := crtp.Encode(request)
	if err != nil {
		return err
	}

	f.lock.Lock()
	if priority {
		f.priority = append(f.priority, data)
	} else {
		f.sent = append(f.sent, data)
	}
	var reply []byte
	if !f.silent {
		reply = f.answer(data)
	}
	callback := f.callback
	f.lock.Unlock()

	if reply != nil && callback != nil {
		callback(reply)
	}
	return nil
}

// deliver injects an unsolicited packet, such as log data.
func (f *fakeFirmware) deliver(packet []byte) {
	f.lock.Lock()
	callback := f.callback
	f.lock.Unlock()
	callback(packet)
}

func (f *fakeFirmware) answer(data []byte) []byte {
	header := crtp.Header(data[0])
	body := data[1:]

	switch header.Port() {
	case crtp.PortParam:
		return f.answerParam(data[0], header.Channel(), body)
	case crtp.PortLog:
		return f.answerLog(data[0], header.Channel(), body)
	case crtp.PortLink:
		if data[0] == 0xFF && len(body) >= 2 && body[0] == 0xFE && body[1] == 0xFF && f.bootReply {
			return []byte{0xFF, 0xFE, 0xFF, 0x78, 0x56, 0x34, 0x12}
		}
	}
	return nil
}

func (f *fakeFirmware) id(b []byte) (uint16, int) {
	if f.v1Only {
		return uint16(b[0]), 1
	}
	return binary.LittleEndian.Uint16(b), 2
}

func (f *fakeFirmware) tocInfo(header byte, body []byte, count int, extra ...byte) []byte {
	if body[0] == tocCommandGetInfoV2 && !f.v1Only {
		reply := []byte{header, tocCommandGetInfoV2, byte(count), byte(count >> 8), 0xEF, 0xBE, 0xAD, 0xDE}
		return append(reply, extra...)
	}
	if body[0] == tocCommandGetInfo && f.v1Only {
		reply := []byte{header, tocCommandGetInfo, byte(count), 0x0D, 0xF0, 0xAD, 0x0B}
		return append(reply, extra...)
	}
	return nil
}

func (f *fakeFirmware) tocItem(header byte, body []byte, list []fakeVariable) []byte {
	if (body[0] == tocCommandGetItemV2) == f.v1Only {
		return nil
	}

	id, n := f.id(body[1:])
	if int(id) >= len(list) {
		return nil
	}
	f.tocItems++

	item := list[id]
	group, name := item.name, ""
	for i := range item.name {
		if item.name[i] == '.' {
			group, name = item.name[:i], item.name[i+1:]
			break
		}
	}

	reply := append([]byte{header}, body[:1+n]...)
	reply = append(reply, item.datatype)
	reply = append(reply, group...)
	reply = append(reply, 0)
	reply = append(reply, name...)
	return append(reply, 0)
}

func (f *fakeFirmware) answerParam(header byte, channel crtp.Channel, body []byte) []byte {
	switch channel {
	case 0:
		if body[0] == tocCommandGetInfo || body[0] == tocCommandGetInfoV2 {
			return f.tocInfo(header, body, len(f.params))
		}
		return f.tocItem(header, body, f.params)

	case 1:
		id, n := f.id(body)
		reply := append([]byte{header}, body[:n]...)
		if !f.v1Only {
			reply = append(reply, 0)
		}
		return append(reply, f.params[id].value...)

	case 2:
		id, n := f.id(body)
		f.params[id].value = append([]byte(nil), body[n:]...)
		return append([]byte{header}, body...)
	}
	return nil
}

func (f *fakeFirmware) answerLog(header byte, channel crtp.Channel, body []byte) []byte {
	switch channel {
	case 0:
		if body[0] == tocCommandGetInfo || body[0] == tocCommandGetInfoV2 {
			return f.tocInfo(header, body, len(f.logs), 26, 16)
		}
		return f.tocItem(header, body, f.logs)

	case 1:
		switch body[0] {
		case logControlReset:
			f.blocks = make(map[uint8][]uint16)
			return []byte{header, logControlReset, 0, 0}
		case logControlCreateBlockV2:
			ids := []uint16{}
			for i := 2; i+2 < len(body); i += 3 {
				ids = append(ids, binary.LittleEndian.Uint16(body[i+1:]))
			}
			f.blocks[body[1]] = ids
			return []byte{header, body[0], body[1], 0}
		case logControlCreateBlock:
			ids := []uint16{}
			for i := 2; i+1 < len(body); i += 2 {
				ids = append(ids, uint16(body[i+1]))
			}
			f.blocks[body[1]] = ids
			return []byte{header, body[0], body[1], 0}
		case logControlStartBlock:
			if _, ok := f.blocks[body[1]]; !ok {
				return []byte{header, body[0], body[1], 2}
			}
			f.started[body[1]] = body[2]
			return []byte{header, body[0], body[1], 0}
		case logControlStopBlock:
			delete(f.started, body[1])
			return []byte{header, body[0], body[1], 0}
		case logControlDeleteBlock:
			delete(f.blocks, body[1])
			return []byte{header, body[0], body[1], 0}
		}
	}
	return nil
}

func (f *fakeFirmware) setpointsSent() [][]byte {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([][]byte(nil), f.setpoints...)
}
