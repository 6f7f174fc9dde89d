package motor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSender records every call as a line of text, in order.
type fakeSender struct {
	lock      sync.Mutex
	calls     []string
	setpoints []Setpoint
	sendErr   error
	paramErr  error
	stuck     bool // the link stopped acknowledging
}

func (f *fakeSender) MotorSetpointSend(format crazyflie.MotorFormat, pwmPort crtp.Port, m [4]uint16) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("send %s 0x%02X", format, pwmPort))
	f.setpoints = append(f.setpoints, m)
	return f.sendErr
}

func (f *fakeSender) ParamWriteFromFloat64(name string, value float64) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("param %s=%g", name, value))
	return f.paramErr
}

func (f *fakeSender) PacketQueueWaitForEmpty(timeout time.Duration) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("flush %s", timeout))
	if f.stuck {
		return crazyflie.ErrorQueueNotEmpty
	}
	return nil
}

func (f *fakeSender) snapshot() ([]string, []Setpoint) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]string(nil), f.calls...), append([]Setpoint(nil), f.setpoints...)
}

func newStreamer(sender Sender) *Streamer {
	return &Streamer{
		Sender:      sender,
		Format:      crazyflie.MotorFormatPort,
		PWMPort:     crtp.PortPWM,
		Rate:        200,
		StopRepeats: 3,
		Enable:      true,
	}
}

func TestRunSinglePacket(t *testing.T) {
	sender := &fakeSender{}
	s := newStreamer(sender)
	s.TimeoutMs = 100

	target := Setpoint{1000, 2000, 3000, 4000}
	result, err := s.Run(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.False(t, result.Interrupted)

	calls, setpoints := sender.snapshot()
	assert.Equal(t, []string{
		"param crtp_pwm.timeoutMs=100",
		"param crtp_pwm.enable=1",
		"send port 0x09",
		"send port 0x09",
		"send port 0x09",
		"send port 0x09",
		"flush 1s",
		"param crtp_pwm.enable=0",
	}, calls)
	assert.Equal(t, []Setpoint{target, Zero, Zero, Zero}, setpoints)
}

func TestRunHold(t *testing.T) {
	sender := &fakeSender{}
	s := newStreamer(sender)
	s.Hold = 100 * time.Millisecond
	s.Enable = false
	s.Format = crazyflie.MotorFormatGeneric

	sent := 0
	s.Progress = func(n int, _ Setpoint) { sent = n }

	target := Setpoint{100, 100, 100, 100}
	result, err := s.Run(context.Background(), target)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Elapsed, s.Hold)
	assert.GreaterOrEqual(t, result.Sent, 5)
	assert.Equal(t, result.Sent, sent)

	calls, setpoints := sender.snapshot()
	assert.Len(t, setpoints, result.Sent+3)
	assert.Equal(t, "send generic 0x09", calls[0])
	assert.Equal(t, "flush 1s", calls[len(calls)-1])
	for _, sp := range setpoints[:result.Sent] {
		assert.Equal(t, target, sp)
	}
}

func TestRunCancelledStillStops(t *testing.T) {
	sender := &fakeSender{}
	s := newStreamer(sender)
	s.Hold = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	result, err := s.Run(ctx, Setpoint{1, 2, 3, 4})
	require.NoError(t, err)
	assert.True(t, result.Interrupted)
	assert.Less(t, result.Elapsed, time.Second)

	calls, setpoints := sender.snapshot()
	assert.Equal(t, "param crtp_pwm.enable=0", calls[len(calls)-1])
	assert.Equal(t, "flush 1s", calls[len(calls)-2])
	assert.Equal(t, []Setpoint{Zero, Zero, Zero}, setpoints[len(setpoints)-3:])
}

func TestRunSendErrorStillDisarms(t *testing.T) {
	broken := errors.New("link down")
	sender := &fakeSender{sendErr: broken}
	s := newStreamer(sender)
	s.Hold = time.Second

	_, err := s.Run(context.Background(), Setpoint{1, 2, 3, 4})
	assert.Equal(t, broken, err)

	calls, _ := sender.snapshot()
	assert.Equal(t, "param crtp_pwm.enable=0", calls[len(calls)-1])
}

func TestRunArmFailure(t *testing.T) {
	sender := &fakeSender{paramErr: crazyflie.ErrorParamNotFound}
	s := newStreamer(sender)

	_, err := s.Run(context.Background(), Setpoint{1, 2, 3, 4})
	assert.Equal(t, crazyflie.ErrorParamNotFound, err)

	_, setpoints := sender.snapshot()
	assert.Empty(t, setpoints)
}

func TestRunRamp(t *testing.T) {
	sender := &fakeSender{}
	s := newStreamer(sender)
	s.Enable = false
	s.Hold = 150 * time.Millisecond
	s.Ramp = 100 * time.Millisecond

	target := Setpoint{4000, 4000, 4000, 4000}
	result, err := s.Run(context.Background(), target)
	require.NoError(t, err)

	_, setpoints := sender.snapshot()
	streamed := setpoints[:result.Sent]
	assert.Less(t, streamed[0][0], target[0])
	assert.Equal(t, target, streamed[len(streamed)-1])
	for i := 1; i < len(streamed); i++ {
		assert.GreaterOrEqual(t, streamed[i][0], streamed[i-1][0])
	}
}

func TestRunInvalidRate(t *testing.T) {
	s := newStreamer(&fakeSender{})
	s.Rate = 0

	_, err := s.Run(context.Background(), Zero)
	assert.Equal(t, ErrorInvalidRate, err)
}

func TestStopDefaultsRepeats(t *testing.T) {
	sender := &fakeSender{}
	s := newStreamer(sender)
	s.StopRepeats = 0

	require.NoError(t, s.Stop())
	_, setpoints := sender.snapshot()
	assert.Len(t, setpoints, DefaultStopRepeats)
}

func TestRunRateTooHigh(t *testing.T) {
	sender := &fakeSender{}
	s := newStreamer(sender)
	s.Rate = 2e9

	_, err := s.Run(context.Background(), Setpoint{1, 2, 3, 4})
	assert.Equal(t, ErrorInvalidRate, err)

	_, err = s.Stream(context.Background(), 0, func(time.Duration) Setpoint { return Zero })
	assert.Equal(t, ErrorInvalidRate, err)

	// nothing was armed, so there is nothing to undo
	calls, _ := sender.snapshot()
	assert.Empty(t, calls)

	assert.True(t, ValidRate(MaxRate))
	assert.False(t, ValidRate(MaxRate+1))
	assert.False(t, ValidRate(-1))
}

func TestRunLinkLostStillDisarms(t *testing.T) {
	sender := &fakeSender{stuck: true}
	s := newStreamer(sender)
	s.FlushTimeout = 20 * time.Millisecond

	_, err := s.Run(context.Background(), Setpoint{1, 2, 3, 4})
	assert.Equal(t, crazyflie.ErrorQueueNotEmpty, err)

	calls, _ := sender.snapshot()
	require.GreaterOrEqual(t, len(calls), 2)
	assert.Equal(t, "flush 20ms", calls[len(calls)-2])
	assert.Equal(t, "param crtp_pwm.enable=0", calls[len(calls)-1])
}

func TestShutdownDisarmsAfterStopFailure(t *testing.T) {
	broken := errors.New("link down")
	sender := &fakeSender{sendErr: broken}
	s := newStreamer(sender)

	assert.Equal(t, broken, s.Shutdown())

	calls, _ := sender.snapshot()
	assert.Equal(t, "param crtp_pwm.enable=0", calls[len(calls)-1])
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestRunWarnsWhenPeriodExceedsFirmwareTimeout(t *testing.T) {
	buf := captureLog(t)
	s := newStreamer(&fakeSender{})
	s.Rate = 10 // 100ms between packets, the firmware gives up after 50ms

	_, err := s.Run(context.Background(), Zero)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "send period 100ms exceeds the firmware timeout 50ms")
}

func TestRunDoesNotWarnWithinFirmwareTimeout(t *testing.T) {
	buf := captureLog(t)

	s := newStreamer(&fakeSender{})
	_, err := s.Run(context.Background(), Zero)
	require.NoError(t, err)

	// a longer configured timeout covers the slower rate
	s.Rate = 10
	s.TimeoutMs = 200
	_, err = s.Run(context.Background(), Zero)
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "exceeds the firmware timeout")
}
