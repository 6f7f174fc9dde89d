package crtp

const (
	PortConsole          Port = 0x00
	PortParam            Port = 0x02
	PortSetpoint         Port = 0x03
	PortMem              Port = 0x04
	PortLog              Port = 0x05
	PortPosition         Port = 0x06
	PortCommanderGeneric Port = 0x07
	PortSetpointHL       Port = 0x08
	PortPWM              Port = 0x09
	PortPlatform         Port = 0x0D
	PortLink             Port = 0x0F
	PortEmpty1           Port = 0xF3
	PortEmpty2           Port = 0xF7
	PortGreedy           Port = 0xFF
)

// Reserved reports whether the stock firmware already serves port.
func (port Port) Reserved() bool {
	switch port {
	case PortConsole, PortParam, PortSetpoint, PortMem, PortLog, PortPosition,
		PortCommanderGeneric, PortSetpointHL, PortPlatform, PortLink:
		return true
	}
	return false
}

// MaxPayload is the largest number of data bytes following the header.
const MaxPayload = 30

type Header byte
type Port byte
type Channel byte
type Speed byte

func HeaderBytes(port Port, channel Channel) byte {
	var link byte = 3
	return ((byte(port) & 0x0F) << 4) |
		((link & 0x03) << 2) |
		((byte(channel) & 0x03) << 0)
}

func (header Header) Channel() Channel {
	return Channel((byte(header) >> 0) & 0x03)
}

func (header Header) Port() Port {
	return Port((byte(header) >> 4) & 0x0F)
}

// IsEmpty reports whether the header marks a null packet, which the
// Crazyflie sends when it has nothing queued for us.
func (header Header) IsEmpty() bool {
	return byte(header) == byte(PortEmpty1) || byte(header) == byte(PortEmpty2)
}

// Encode frames a request as header byte followed by its payload.
func Encode(request RequestPacketPtr) ([]byte, error) {
	body := request.Bytes()
	if len(body) > MaxPayload {
		return nil, ErrorPacketTooLong
	}

	data := make([]byte, len(body)+1)
	data[0] = HeaderBytes(request.Port(), request.Channel())
	copy(data[1:], body)
	return data, nil
}
