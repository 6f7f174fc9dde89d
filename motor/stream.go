package motor

import (
	"context"
	"log"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

const (
	ParamEnable    = "crtp_pwm.enable"
	ParamTimeoutMs = "crtp_pwm.timeoutMs"

	// firmware default of crtp_pwm.timeoutMs
	DefaultFirmwareTimeout = 50 * time.Millisecond

	DefaultStopRepeats = 3

	// how long Stop waits for the zero setpoint to be acknowledged
	DefaultFlushTimeout = time.Second

	// above this the radio cannot keep up and the period rounds towards zero
	MaxRate = 1000

	// Forever streams until the context is cancelled.
	Forever time.Duration = -1
)

// Sender is the part of a connected Crazyflie a Streamer drives.
type Sender interface {
	MotorSetpointSend(format crazyflie.MotorFormat, pwmPort crtp.Port, m [4]uint16) error
	ParamWriteFromFloat64(name string, value float64) error
	PacketQueueWaitForEmpty(timeout time.Duration) error
}

// Streamer runs the enable, stream, stop, disable sequence of a motor test.
type Streamer struct {
	Sender  Sender
	Format  crazyflie.MotorFormat
	PWMPort crtp.Port

	Rate float64       // packets per second
	Hold time.Duration // zero sends a single packet
	Ramp time.Duration // linear ramp from zero at the start of the hold

	StopRepeats  int
	FlushTimeout time.Duration // how long Stop waits for the link, DefaultFlushTimeout if zero
	Enable       bool          // toggle crtp_pwm.enable around the stream
	TimeoutMs   uint16 // written to crtp_pwm.timeoutMs on enable when non-zero

	// Progress is called after every streamed packet.
	Progress func(sent int, setpoint Setpoint)
}

// Result summarises a finished run.
type Result struct {
	Sent        int
	Elapsed     time.Duration
	Interrupted bool
}

// ValidRate reports whether rate packets per second can be streamed.
func ValidRate(rate float64) bool {
	return rate > 0 && rate <= MaxRate
}

func (s *Streamer) period() time.Duration {
	return time.Duration(float64(time.Second) / s.Rate)
}

func (s *Streamer) firmwareTimeout() time.Duration {
	if s.TimeoutMs > 0 {
		return time.Duration(s.TimeoutMs) * time.Millisecond
	}
	return DefaultFirmwareTimeout
}

func (s *Streamer) send(setpoint Setpoint) error {
	return s.Sender.MotorSetpointSend(s.Format, s.PWMPort, setpoint)
}

// Arm enables the firmware motor port, writing the timeout first.
func (s *Streamer) Arm() error {
	if !s.Enable {
		return nil
	}

	if s.TimeoutMs > 0 {
		if err := s.Sender.ParamWriteFromFloat64(ParamTimeoutMs, float64(s.TimeoutMs)); err != nil {
			return err
		}
	}
	return s.Sender.ParamWriteFromFloat64(ParamEnable, 1)
}

// Stop sends the zero setpoint StopRepeats times and waits up to FlushTimeout
// for it to leave. A zero setpoint replaces any setpoint the link still holds.
func (s *Streamer) Stop() error {
	repeats := s.StopRepeats
	if repeats <= 0 {
		repeats = DefaultStopRepeats
	}
	timeout := s.FlushTimeout
	if timeout <= 0 {
		timeout = DefaultFlushTimeout
	}

	var err error
	for i := 0; i < repeats; i++ {
		if e := s.send(Zero); e != nil && err == nil {
			err = e
		}
	}
	if e := s.Sender.PacketQueueWaitForEmpty(timeout); e != nil && err == nil {
		err = e
	}
	return err
}

// Shutdown runs Stop and then Disarm, even when Stop fails, and returns the
// first error.
func (s *Streamer) Shutdown() error {
	err := s.Stop()
	if disarmErr := s.Disarm(); err == nil {
		err = disarmErr
	}
	return err
}

// Disarm disables the firmware motor port, which zeroes the motors once.
func (s *Streamer) Disarm() error {
	if !s.Enable {
		return nil
	}
	return s.Sender.ParamWriteFromFloat64(ParamEnable, 0)
}

// Stream sends setpoint(elapsed) at Rate for hold, or until ctx is done. A
// hold of zero sends one packet, Forever never expires.
func (s *Streamer) Stream(ctx context.Context, hold time.Duration, setpoint func(elapsed time.Duration) Setpoint) (Result, error) {
	var result Result
	if !ValidRate(s.Rate) {
		return result, ErrorInvalidRate
	}

	start := time.Now()
	ticker := time.NewTicker(s.period())
	defer ticker.Stop()

	for {
		elapsed := time.Since(start)
		sp := setpoint(elapsed)
		if err := s.send(sp); err != nil {
			result.Elapsed = elapsed
			return result, err
		}
		result.Sent++
		if s.Progress != nil {
			s.Progress(result.Sent, sp)
		}

		if hold != Forever && time.Since(start) >= hold {
			result.Elapsed = time.Since(start)
			return result, nil
		}

		select {
		case <-ctx.Done():
			result.Elapsed = time.Since(start)
			result.Interrupted = true
			return result, nil
		case <-ticker.C:
		}
	}
}

// Run performs a complete motor test at target. The stop and disarm steps run
// even when streaming fails or ctx is cancelled.
func (s *Streamer) Run(ctx context.Context, target Setpoint) (Result, error) {
	if !ValidRate(s.Rate) {
		return Result{}, ErrorInvalidRate
	}
	if s.period() > s.firmwareTimeout() {
		log.Printf("warning: send period %s exceeds the firmware timeout %s, motors will stutter", s.period(), s.firmwareTimeout())
	}

	if err := s.Arm(); err != nil {
		return Result{}, err
	}

	result, err := s.Stream(ctx, s.Hold, func(elapsed time.Duration) Setpoint {
		if s.Ramp <= 0 {
			return target
		}
		return target.Scale(float64(elapsed) / float64(s.Ramp))
	})

	if shutdownErr := s.Shutdown(); err == nil {
		err = shutdownErr
	}
	return result, err
}
