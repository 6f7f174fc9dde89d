package crazyradio

import (
	"context"
	"time"

	"github.com/google/gousb"
)

const (
	controlTimeout = 250 * time.Millisecond
	readTimeout    = 50 * time.Millisecond
	writeTimeout   = 50 * time.Millisecond

	vendorRequestOut = uint8(gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice)
)

type RadioDevice struct {
	context   *gousb.Context
	device    *gousb.Device
	closeIntf func()
	dataOut   *gousb.OutEndpoint
	dataIn    *gousb.InEndpoint
	address   uint64
	channel   uint8
}

func OpenRadio(usbContext *gousb.Context, dev *gousb.Device) (*RadioDevice, error) {
	dev.ControlTimeout = controlTimeout

	intf, closeIntf, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		return nil, err
	}

	// open the endpoint for transfers out
	dOut, err := intf.OutEndpoint(0x01)
	if err != nil {
		closeIntf()
		dev.Close()
		return nil, err
	}

	// open the endpoint for transfers in
	dIn, err := intf.InEndpoint(0x01)
	if err != nil {
		closeIntf()
		dev.Close()
		return nil, err
	}

	radio := &RadioDevice{
		context:   usbContext,
		device:    dev,
		closeIntf: closeIntf,
		dataOut:   dOut,
		dataIn:    dIn,
		channel:   0xFF, // forces the first SetChannel through to the hardware
	}

	// can initialize the default states!
	radio.SetDatarate(RadioDatarate_2MPS)
	radio.SetChannel(80)
	radio.SetAddress(0xE7E7E7E7E7)
	radio.SetPower(RadioPower_0DBM)
	radio.SetArc(3)
	radio.SetArdBytes(32)
	return radio, nil
}

func isRadio(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == radioVendorID && desc.Product == radioProductID
}

// CountConnectedRadios reports how many Crazyradios are plugged in.
func CountConnectedRadios() int {
	usbContext := gousb.NewContext()
	defer usbContext.Close()

	count := 0
	usbContext.OpenDevices(
		func(desc *gousb.DeviceDesc) bool {
			if isRadio(desc) {
				count += 1
			}
			return false
		})

	return count
}

// OpenAllRadios opens every Crazyradio plugged into the host, ordered as
// libusb enumerates them.
func OpenAllRadios() ([]*RadioDevice, error) {
	usbContext := gousb.NewContext()
	usbContext.Debug(0)

	radioDevices, _ := usbContext.OpenDevices(isRadio)

	if len(radioDevices) == 0 {
		usbContext.Close()
		return nil, ErrorDeviceNotFound
	}

	radios := make([]*RadioDevice, 0, len(radioDevices))

	for _, radioDevice := range radioDevices {
		radio, err := OpenRadio(usbContext, radioDevice)
		if err == nil {
			radios = append(radios, radio)
		}
	}

	if len(radios) == 0 {
		usbContext.Close()
		return nil, ErrorDeviceNotFound
	}

	return radios, nil
}

// Close releases the device. The libusb context is shared between all radios
// returned by one OpenAllRadios call, so it is only released by CloseContext.
func (radio *RadioDevice) Close() {
	radio.closeIntf()
	radio.device.Close()
}

func (radio *RadioDevice) CloseContext() {
	radio.context.Close()
}

func (radio *RadioDevice) vendorRequest(command radioCommand, value uint16, data []byte) error {
	_, err := radio.device.Control(vendorRequestOut, uint8(command), value, 0, data)
	return err
}

func (radio *RadioDevice) SetChannel(channel uint8) error {
	if channel > 125 {
		return ErrorInvalidChannel
	}
	if radio.channel == channel {
		return nil
	}

	err := radio.vendorRequest(SET_RADIO_CHANNEL, uint16(channel), nil)
	if err == nil {
		radio.channel = channel
	}
	return err
}

func (radio *RadioDevice) SetDatarate(datarate radioDatarate) error {
	if datarate > RadioDatarate_2MPS {
		return ErrorInvalidDatarate
	}

	return radio.vendorRequest(SET_DATA_RATE, uint16(datarate), nil)
}

func (radio *RadioDevice) SetPower(power radioPower) error {
	if power > RadioPower_0DBM {
		return ErrorInvalidPower
	}

	return radio.vendorRequest(SET_RADIO_POWER, uint16(power), nil)
}

func (radio *RadioDevice) SetArc(arc uint8) error {
	if arc > 15 {
		return ErrorInvalidArc
	}

	return radio.vendorRequest(SET_RADIO_ARC, uint16(arc), nil)
}

func (radio *RadioDevice) SetArdTime(delay uint8) error {
	// Auto Retransmit Delay:
	// 0x00 - Wait 250uS
	// 0x01 - Wait 500uS
	// ........
	// 0x0F - Wait 4000uS
	if delay > 0x0F {
		return ErrorInvalidArdTime
	}

	return radio.vendorRequest(SET_RADIO_ARD, uint16(delay), nil)
}

func (radio *RadioDevice) SetArdBytes(nbytes uint8) error {
	// 0x00 - 0 Byte
	// ........
	// 0x20 - 32 Bytes
	if nbytes > 0x20 {
		return ErrorInvalidArdBytes
	}

	return radio.vendorRequest(SET_RADIO_ARD, uint16(0x80|nbytes), nil)
}

func (radio *RadioDevice) SetAckEnable(enable uint8) error {
	return radio.vendorRequest(SET_ACK_ENABLE, uint16(enable), nil)
}

func (radio *RadioDevice) SetAddress(address uint64) error {
	if radio.address == address {
		return nil
	}

	err := radio.vendorRequest(SET_RADIO_ADDRESS, 0, addressBytes(address))
	if err == nil {
		radio.address = address
	}

	return err
}

// addressBytes lays out the 40 bit pipe address most significant byte first.
func addressBytes(address uint64) []byte {
	a := make([]byte, 5)
	a[4] = uint8((address >> 0) & 0xFF)
	a[3] = uint8((address >> 8) & 0xFF)
	a[2] = uint8((address >> 16) & 0xFF)
	a[1] = uint8((address >> 24) & 0xFF)
	a[0] = uint8((address >> 32) & 0xFF)
	return a
}

func (radio *RadioDevice) SendPacket(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	// write the outgoing packet
	length, err := radio.dataOut.WriteContext(ctx, data)
	if err != nil {
		return err
	}
	if len(data) != length {
		return ErrorWriteLength
	}
	return nil
}

func (radio *RadioDevice) ReadResponse() (bool, []byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	// read the acknowledgement
	resp := make([]byte, 64) // largest packet size
	length, err := radio.dataIn.ReadContext(ctx, resp)
	if err != nil {
		return false, nil, err
	}
	if length == 0 {
		return false, nil, nil
	}

	// ACK structure:
	// uint8_t resp : 1
	// uint8_t power detector : 1
	// uint8_t reserved : 2
	// uint8_t retransmission count : 4
	// uint8_t ackdata[1:32 bytes]
	ackReceived := (resp[0] & 0x01) != 0
	return ackReceived, resp[1:length], nil // return just the data portion of the acknowledgement
}
