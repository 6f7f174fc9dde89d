package crtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawRequest struct {
	port    Port
	channel Channel
	body    []byte
}

func (r *rawRequest) Port() Port       { return r.port }
func (r *rawRequest) Channel() Channel { return r.channel }
func (r *rawRequest) Bytes() []byte    { return r.body }

func TestHeaderBytes(t *testing.T) {
	assert.Equal(t, byte(0x2C), HeaderBytes(PortParam, 0))
	assert.Equal(t, byte(0x2E), HeaderBytes(PortParam, 2))
	assert.Equal(t, byte(0x9C), HeaderBytes(PortPWM, 0))
	assert.Equal(t, byte(0x7C), HeaderBytes(PortCommanderGeneric, 0))
	assert.Equal(t, byte(0xFF), HeaderBytes(PortLink, 3))
}

func TestHeaderDecode(t *testing.T) {
	h := Header(HeaderBytes(PortLog, 2))
	assert.Equal(t, PortLog, h.Port())
	assert.Equal(t, Channel(2), h.Channel())
	assert.False(t, h.IsEmpty())

	assert.True(t, Header(0xF3).IsEmpty())
	assert.True(t, Header(0xF7).IsEmpty())
	assert.False(t, Header(0xFF).IsEmpty())
}

func TestEncode(t *testing.T) {
	data, err := Encode(&rawRequest{PortPWM, 0, []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x9C, 1, 2, 3}, data)

	data, err = Encode(&rawRequest{PortParam, 0, nil})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2C}, data)

	_, err = Encode(&rawRequest{PortPWM, 0, make([]byte, 31)})
	assert.Equal(t, ErrorPacketTooLong, err)
}

func TestReservedPorts(t *testing.T) {
	for _, port := range []Port{PortConsole, PortParam, PortLog, PortSetpointHL, PortLink} {
		assert.True(t, port.Reserved(), "port 0x%X", byte(port))
	}
	assert.False(t, PortPWM.Reserved())
	assert.False(t, Port(0x0A).Reserved())
}
