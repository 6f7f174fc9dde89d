package crazyflie

import (
	"encoding/binary"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

// ---- CONTROL REQUEST: MOTOR PWM ----
// Four raw motor compares on the crtp_pwm port, m1 first.
type MotorRequestPWM struct {
	PWMPort crtp.Port
	M       [4]uint16
}

func (p *MotorRequestPWM) Port() crtp.Port {
	return p.PWMPort
}

func (p *MotorRequestPWM) Channel() crtp.Channel {
	return 0
}

func (p *MotorRequestPWM) Bytes() []byte {
	packet := make([]byte, 8)
	for i, m := range p.M {
		binary.LittleEndian.PutUint16(packet[2*i:], m)
	}
	return packet
}

// generic commander packet type for direct motor control
const genericTypeMotors = 8

// ---- CONTROL REQUEST: MOTOR GENERIC ----
type MotorRequestGeneric struct {
	M [4]uint16
}

func (p *MotorRequestGeneric) Port() crtp.Port {
	return crtp.PortCommanderGeneric
}

func (p *MotorRequestGeneric) Channel() crtp.Channel {
	return 0
}

func (p *MotorRequestGeneric) Bytes() []byte {
	packet := make([]byte, 9)
	packet[0] = genericTypeMotors
	for i, m := range p.M {
		binary.LittleEndian.PutUint16(packet[1+2*i:], m)
	}
	return packet
}
