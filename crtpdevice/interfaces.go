package crtpdevice

import (
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

// CrtpDevice is a transport able to carry CRTP packets to one or more
// Crazyflies, each addressed by radio channel and address.
type CrtpDevice interface {
	ClientRegister(channel uint8, address uint64, responseCallback func([]byte))
	ClientRemove(channel uint8, address uint64)
	// ClientWaitUntilAllPacketsHaveBeenSent reports whether the client's
	// packets all left before timeout.
	ClientWaitUntilAllPacketsHaveBeenSent(channel uint8, address uint64, timeout time.Duration) bool

	PacketSend(channel uint8, address uint64, request crtp.RequestPacketPtr) error
	PacketSendPriority(channel uint8, address uint64, request crtp.RequestPacketPtr) error
	// PacketSendSetpoint goes out after the priority packets and replaces a
	// setpoint of the same client that has not left yet.
	PacketSendSetpoint(channel uint8, address uint64, request crtp.RequestPacketPtr) error
}

// Link is an opened CrtpDevice that owns hardware.
type Link interface {
	CrtpDevice
	Close()
}
