package crazyflie

import (
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

// Link port channel 3 frames as header 0xFF, which the nRF51 intercepts
// before the packet ever reaches the STM32 firmware.
const (
	bootloaderTarget     = 0xFE
	bootloaderInit       = 0xFF
	bootloaderResetToFw  = 0xF0
	bootloaderRebootToFw = 0x01
)

// ---- BOOTLOADER REQUEST: INIT ----
type BootloaderRequestInit struct{}

func (p *BootloaderRequestInit) Port() crtp.Port {
	return crtp.PortLink
}

func (p *BootloaderRequestInit) Channel() crtp.Channel {
	return 0x03
}

func (p *BootloaderRequestInit) Bytes() []byte {
	return []byte{bootloaderTarget, bootloaderInit}
}

// ---- BOOTLOADER REQUEST: REBOOT TO FIRMWARE ----
type BootloaderRequestRebootToFirmware struct{}

func (p *BootloaderRequestRebootToFirmware) Port() crtp.Port {
	return crtp.PortLink
}

func (p *BootloaderRequestRebootToFirmware) Channel() crtp.Channel {
	return 0x03
}

func (p *BootloaderRequestRebootToFirmware) Bytes() []byte {
	return []byte{bootloaderTarget, bootloaderResetToFw, bootloaderRebootToFw}
}

// ---- BOOTLOADER RESPONSE: ADDRESS ----
// The init command is answered with the low 32 bits of the nRF51 address.
type BootloaderResponseAddress struct {
	NewAddress uint64
}

func (p *BootloaderResponseAddress) Port() crtp.Port {
	return crtp.PortGreedy
}

func (p *BootloaderResponseAddress) Channel() crtp.Channel {
	return 0x00 // doesn't matter when using greedy port
}

func (p *BootloaderResponseAddress) LoadFromBytes(b []byte) error {
	if len(b) < 7 || b[0] != 0xFF || b[1] != bootloaderTarget || b[2] != bootloaderInit {
		return crtp.ErrorPacketIncorrectType
	}

	p.NewAddress = uint64(b[3]) | (uint64(b[4]) << 8) | (uint64(b[5]) << 16) | (uint64(b[6]) << 24) | (uint64(0xb1) << 32)
	return nil
}
