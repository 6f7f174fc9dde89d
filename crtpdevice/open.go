package crtpdevice

import (
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyradio"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyusb"
)

// Open claims the hardware named by uri.
func Open(uri URI) (Link, error) {
	if uri.Scheme == SchemeUSB {
		usb, err := crazyusb.Open(uri.Index)
		if err != nil {
			return nil, err
		}
		return usb, nil
	}

	datarate, err := crazyradio.ParseDatarate(uri.Datarate)
	if err != nil {
		return nil, err
	}

	radio, err := crazyradio.Open(uri.Index, datarate)
	if err != nil {
		return nil, err
	}
	return radio, nil
}
