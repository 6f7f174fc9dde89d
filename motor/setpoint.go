package motor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxPWM is the full scale of a motor compare value.
const MaxPWM = math.MaxUint16

// Setpoint holds the compare values of motors m1 to m4.
type Setpoint [4]uint16

// Zero is the disarm setpoint.
var Zero = Setpoint{}

func (s Setpoint) String() string {
	return fmt.Sprintf("m1=%d m2=%d m3=%d m4=%d", s[0], s[1], s[2], s[3])
}

// Clamp limits v to [0, max].
func Clamp(v int64, max uint16) uint16 {
	if v < 0 {
		return 0
	}
	if v > int64(max) {
		return max
	}
	return uint16(v)
}

// Scale returns the setpoint with every motor multiplied by f in [0, 1].
func (s Setpoint) Scale(f float64) Setpoint {
	if f >= 1 {
		return s
	}
	if f <= 0 {
		return Zero
	}

	var out Setpoint
	for i, m := range s {
		out[i] = uint16(math.Round(float64(m) * f))
	}
	return out
}

// ParseSetpoint reads one value, applied to all four motors, or four values.
// A value is a decimal integer or a percentage of max such as "25%".
func ParseSetpoint(args []string, max uint16) (Setpoint, error) {
	var s Setpoint

	if len(args) != 1 && len(args) != 4 {
		return s, ErrorArgumentCount
	}

	for i, arg := range args {
		v, err := parseValue(arg, max)
		if err != nil {
			return s, fmt.Errorf("m%d %q: %w", i+1, arg, err)
		}
		s[i] = v
	}

	if len(args) == 1 {
		s = Setpoint{s[0], s[0], s[0], s[0]}
	}
	return s, nil
}

func parseValue(arg string, max uint16) (uint16, error) {
	arg = strings.TrimSpace(arg)

	if percent, ok := strings.CutSuffix(arg, "%"); ok {
		p, err := strconv.ParseFloat(strings.TrimSpace(percent), 64)
		if err != nil || math.IsNaN(p) {
			return 0, ErrorNotANumber
		}
		p = math.Max(0, math.Min(100, p))
		return uint16(math.Round(p / 100 * float64(max))), nil
	}

	v, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			if strings.HasPrefix(arg, "-") {
				return 0, nil
			}
			return max, nil
		}
		return 0, ErrorNotANumber
	}
	return Clamp(v, max), nil
}
