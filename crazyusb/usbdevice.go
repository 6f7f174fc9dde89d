package crazyusb

import (
	"context"
	"errors"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
	"github.com/google/gousb"
)

const (
	crazyflieVendorID  = 0x0483
	crazyflieProductID = 0x5740

	controlTimeout = 200 * time.Millisecond
	readTimeout    = 20 * time.Millisecond
	writeTimeout   = 20 * time.Millisecond

	vendorRequestOut = uint8(gousb.ControlOut | gousb.ControlVendor | gousb.ControlDevice)
)

type usbDevice struct {
	device    *gousb.Device
	context   *gousb.Context
	closeIntf func()
	dataOut   *gousb.OutEndpoint
	dataIn    *gousb.InEndpoint
}

func isCrazyflie(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == crazyflieVendorID && desc.Product == crazyflieProductID
}

// CountConnectedCrazyflies reports how many Crazyflies are plugged in over USB.
func CountConnectedCrazyflies() int {
	usbContext := gousb.NewContext()
	defer usbContext.Close()

	count := 0
	usbContext.OpenDevices(
		func(desc *gousb.DeviceDesc) bool {
			if isCrazyflie(desc) {
				count += 1
			}
			return false
		})

	return count
}

func openUsbDevice(index int) (*usbDevice, error) {
	usbContext := gousb.NewContext()
	usbContext.Debug(0)

	usbDevices, _ := usbContext.OpenDevices(isCrazyflie)

	if index < 0 || index >= len(usbDevices) {
		for _, dev := range usbDevices {
			dev.Close()
		}
		usbContext.Close()
		return nil, ErrorDeviceNotFound
	}

	for i, dev := range usbDevices {
		if i != index {
			dev.Close()
		}
	}

	dev := usbDevices[index]
	dev.ControlTimeout = controlTimeout

	intf, closeIntf, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		usbContext.Close()
		return nil, err
	}

	// open the endpoint for transfers out
	dOut, err := intf.OutEndpoint(0x01)
	if err != nil {
		closeIntf()
		dev.Close()
		usbContext.Close()
		return nil, err
	}

	// open the endpoint for transfers in
	dIn, err := intf.InEndpoint(0x01)
	if err != nil {
		closeIntf()
		dev.Close()
		usbContext.Close()
		return nil, err
	}

	// now have a usb device and context pointing to the crazyflie!
	crtpUsb := &usbDevice{
		device:    dev,
		context:   usbContext,
		closeIntf: closeIntf,
		dataOut:   dOut,
		dataIn:    dIn,
	}

	// toggle CRTP off and on again so the firmware drops any stale link state
	if err = crtpUsb.DisableCRTP(); err == nil {
		err = crtpUsb.EnableCRTP()
	}
	if err != nil {
		closeIntf()
		dev.Close()
		usbContext.Close()
		return nil, err
	}

	return crtpUsb, nil
}

func (crtpUsb *usbDevice) EnableCRTP() error {
	_, err := crtpUsb.device.Control(vendorRequestOut, 0x01, 0x01, 1, nil)
	return err
}

func (crtpUsb *usbDevice) DisableCRTP() error {
	_, err := crtpUsb.device.Control(vendorRequestOut, 0x01, 0x01, 0, nil)
	return err
}

func (crtpUsb *usbDevice) Close() {
	crtpUsb.DisableCRTP()
	crtpUsb.closeIntf()
	crtpUsb.device.Close()
	crtpUsb.context.Close()
}

func (crtpUsb *usbDevice) SendPacket(data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	length, err := crtpUsb.dataOut.WriteContext(ctx, data)
	if err != nil {
		return err
	}
	if len(data) != length {
		return ErrorWriteLength
	}
	return nil
}

func (crtpUsb *usbDevice) ReadResponse() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	resp := make([]byte, 64) // largest packet size
	length, err := crtpUsb.dataIn.ReadContext(ctx, resp)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) || length == 0 {
		return []byte{byte(crtp.PortEmpty1)}, nil // emulate the empty queue packet, since USB just times out on empty queue
	}

	if err != nil {
		return nil, err
	}

	return resp[:length], nil
}
