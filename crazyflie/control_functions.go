package crazyflie

import "github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"

// MotorFormat selects the packet layout motor setpoints are sent in.
type MotorFormat string

const (
	MotorFormatPort    MotorFormat = "port"
	MotorFormatGeneric MotorFormat = "generic"
)

// MotorSetpointSend sends one four motor setpoint, replacing one still waiting
// for the link. pwmPort is only used by the port format.
func (cf *Crazyflie) MotorSetpointSend(format MotorFormat, pwmPort crtp.Port, m [4]uint16) error {
	switch format {
	case MotorFormatGeneric:
		return cf.PacketSendSetpoint(&MotorRequestGeneric{m})
	case MotorFormatPort, "":
		return cf.PacketSendSetpoint(&MotorRequestPWM{pwmPort, m})
	default:
		return ErrorUnknownMotorFormat
	}
}
