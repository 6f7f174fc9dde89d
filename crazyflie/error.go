package crazyflie

import "fmt"

type crazyflieError uint8

func (e crazyflieError) Error() string {
	return fmt.Sprintf("crazyflie: %s", crazyflieErrorString[e])
}

const (
	ErrorNoResponse crazyflieError = iota
	ErrorDisconnected
	ErrorQueueNotEmpty

	ErrorLogBlockOrItemNotFound
	ErrorLogBlockNoMemory
	ErrorLogBlockTooLong
	ErrorLogBlockPeriodTooShort

	ErrorParamNotFound
	ErrorParamReadOnly
	ErrorParamWrongType

	ErrorUnknownMotorFormat

	ErrorUnknown
)

var crazyflieErrorString = map[crazyflieError]string{
	ErrorNoResponse:             "not responding",
	ErrorDisconnected:           "disconnected while awaiting a response",
	ErrorQueueNotEmpty:          "packets still unacknowledged",
	ErrorLogBlockOrItemNotFound: "log block or item not found",
	ErrorLogBlockNoMemory:       "no memory to allocated log block",
	ErrorLogBlockTooLong:        "log block is too long",
	ErrorLogBlockPeriodTooShort: "log block reporting period too short",

	ErrorParamNotFound:  "parameter not found",
	ErrorParamReadOnly:  "parameter is read only",
	ErrorParamWrongType: "value does not match the parameter type",

	ErrorUnknownMotorFormat: "unknown motor packet format",

	ErrorUnknown: "an unknown error occurred",
}
