package crazyusb

import "fmt"

type crtpUsbError uint8

func (e crtpUsbError) Error() string {
	return fmt.Sprintf("crazyusb: %s", crtpUsbErrorString[e])
}

const (
	ErrorDeviceNotFound crtpUsbError = iota
	ErrorDeviceAlreadyOpen
	ErrorWriteLength
	ErrorClosed
)

var crtpUsbErrorString = map[crtpUsbError]string{
	ErrorDeviceNotFound:    "device not found",
	ErrorDeviceAlreadyOpen: "device has already been opened",
	ErrorWriteLength:       "incorrect number of bytes written to endpoint",
	ErrorClosed:            "link has been closed",
}
