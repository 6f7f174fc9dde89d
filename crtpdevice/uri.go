package crtpdevice

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	SchemeRadio = "radio"
	SchemeUSB   = "usb"

	DefaultChannel  uint8  = 80
	DefaultDatarate        = "2M"
	DefaultAddress  uint64 = 0xE7E7E7E7E7
)

// URI identifies a Crazyflie link, e.g. radio://0/80/2M/E7E7E7E7E7 or usb://0.
type URI struct {
	Scheme   string
	Index    int
	Channel  uint8
	Datarate string
	Address  uint64
}

func (u URI) String() string {
	if u.Scheme == SchemeUSB {
		return fmt.Sprintf("usb://%d", u.Index)
	}
	return fmt.Sprintf("radio://%d/%d/%s/%X", u.Index, u.Channel, u.Datarate, u.Address)
}

// ParseURI parses a link URI. Missing radio segments take the firmware
// defaults (channel 80, 2M, E7E7E7E7E7). Query parameters are ignored.
func ParseURI(s string) (URI, error) {
	uri := URI{
		Channel:  DefaultChannel,
		Datarate: DefaultDatarate,
		Address:  DefaultAddress,
	}

	scheme, rest, ok := strings.Cut(s, "://")
	if !ok {
		return uri, fmt.Errorf("crtpdevice: %q is not a link uri", s)
	}
	rest, _, _ = strings.Cut(rest, "?")

	uri.Scheme = strings.ToLower(scheme)
	if uri.Scheme != SchemeRadio && uri.Scheme != SchemeUSB {
		return uri, fmt.Errorf("crtpdevice: unsupported scheme %q", scheme)
	}

	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if parts[0] == "" {
		return uri, fmt.Errorf("crtpdevice: %q is missing the device index", s)
	}

	index, err := strconv.Atoi(parts[0])
	if err != nil || index < 0 {
		return uri, fmt.Errorf("crtpdevice: invalid device index %q", parts[0])
	}
	uri.Index = index

	if uri.Scheme == SchemeUSB {
		if len(parts) > 1 {
			return uri, fmt.Errorf("crtpdevice: usb uri %q takes only an index", s)
		}
		return uri, nil
	}

	if len(parts) > 4 {
		return uri, fmt.Errorf("crtpdevice: too many segments in %q", s)
	}

	if len(parts) > 1 {
		channel, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil || channel > 125 {
			return uri, fmt.Errorf("crtpdevice: invalid channel %q", parts[1])
		}
		uri.Channel = uint8(channel)
	}

	if len(parts) > 2 {
		switch d := strings.ToUpper(parts[2]); d {
		case "250K", "1M", "2M":
			uri.Datarate = d
		default:
			return uri, fmt.Errorf("crtpdevice: invalid datarate %q", parts[2])
		}
	}

	if len(parts) > 3 {
		address, err := strconv.ParseUint(strings.TrimPrefix(parts[3], "0x"), 16, 64) // trim any leading hex prefix
		if err != nil || address > 0xFFFFFFFFFF {
			return uri, fmt.Errorf("crtpdevice: invalid address %q", parts[3])
		}
		uri.Address = address
	}

	return uri, nil
}
