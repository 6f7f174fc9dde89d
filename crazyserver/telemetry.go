package crazyserver

import (
	"log"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
)

// TelemetryVariables are echoed by the crtp_pwm firmware module.
var TelemetryVariables = []string{"crtp_pwm.m1", "crtp_pwm.m2", "crtp_pwm.m3", "crtp_pwm.m4", "crtp_pwm.seq"}

type telemetryMessage struct {
	Timestamp uint32             `json:"timestamp"`
	Values    map[string]float64 `json:"values"`
}

// StartTelemetry logs the crtp_pwm variables every period and broadcasts
// them on the sockets. The log TOC must be loaded.
func (s *Server) StartTelemetry(period time.Duration) error {
	for _, name := range TelemetryVariables {
		if !s.cf.LogVariableExists(name) {
			return crazyflie.ErrorLogBlockOrItemNotFound
		}
	}

	blockid, err := s.cf.LogBlockAdd(TelemetryVariables)
	if err != nil {
		return err
	}

	samples, unsubscribe, err := s.cf.LogBlockSubscribe(blockid, 8)
	if err != nil {
		s.cf.LogBlockDelete(blockid)
		return err
	}

	if err := s.cf.LogBlockStart(blockid, period); err != nil {
		unsubscribe()
		s.cf.LogBlockDelete(blockid)
		return err
	}

	s.telemetryBlock = blockid
	s.telemetryStop = unsubscribe
	s.telemetryDone = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for sample := range samples {
			msg := telemetryMessage{
				Timestamp: sample.Timestamp,
				Values:    make(map[string]float64, len(sample.Values)),
			}
			for name, val := range sample.Values {
				msg.Values[name], _ = crazyflie.ValueToFloat64(val)
			}
			s.socketSendData("crtp_pwm", msg)
		}
	}(s.telemetryDone)

	log.Printf("Telemetry block %d started every %s", blockid, period)
	return nil
}

func (s *Server) StopTelemetry() {
	if s.telemetryStop == nil {
		return
	}

	s.telemetryStop()
	<-s.telemetryDone
	if err := s.cf.LogBlockDelete(s.telemetryBlock); err != nil {
		log.Printf("Error while deleting telemetry block: %s", err)
	}
	s.telemetryStop = nil
}
