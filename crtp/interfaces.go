package crtp

// RequestPacketPtr is anything that can be framed and sent: Bytes is the
// payload without the header, which Encode derives from Port and Channel.
type RequestPacketPtr interface {
	Port() Port
	Channel() Channel
	Bytes() []byte
}

// ResponsePacketPtr decodes a received packet, header included. It returns
// ErrorPacketIncorrectType for packets that are not the awaited answer.
type ResponsePacketPtr interface {
	Port() Port
	Channel() Channel
	LoadFromBytes([]byte) error
}
