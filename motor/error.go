package motor

import "fmt"

type motorError uint8

func (e motorError) Error() string {
	return fmt.Sprintf("motor: %s", motorErrorString[e])
}

const (
	ErrorArgumentCount motorError = iota
	ErrorNotANumber
	ErrorInvalidRate
)

var motorErrorString = map[motorError]string{
	ErrorArgumentCount: "expected 1 or 4 motor values",
	ErrorNotANumber:    "motor value is not a number or percentage",
	ErrorInvalidRate:   "send rate must be above 0 and at most 1000 Hz",
}
