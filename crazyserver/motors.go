package crazyserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/motor"
	"github.com/gorilla/mux"
)

func (s *Server) motorsInitRoute(r *mux.Router) {
	r.HandleFunc("/motors", s.motorsGet).Methods("GET")
	r.HandleFunc("/motors", s.motorsSet).Methods("PUT")
	r.HandleFunc("/motors/arm", s.motorsArm).Methods("POST")
	r.HandleFunc("/motors/disarm", s.motorsDisarm).Methods("POST")
}

type motorsResponse struct {
	Armed  bool   `json:"armed"`
	Status string `json:"status"`
	Max    uint16 `json:"max"`
	M1     uint16 `json:"m1"`
	M2     uint16 `json:"m2"`
	M3     uint16 `json:"m3"`
	M4     uint16 `json:"m4"`
}

// motors left out keep their current value
type motorsRequest struct {
	M1 *int64 `json:"m1"`
	M2 *int64 `json:"m2"`
	M3 *int64 `json:"m3"`
	M4 *int64 `json:"m4"`
}

func (s *Server) motorsState() motorsResponse {
	s.motorLock.Lock()
	defer s.motorLock.Unlock()

	return motorsResponse{
		Armed:  s.armed,
		Status: s.cf.Status().String(),
		Max:    s.max,
		M1:     s.setpoint[0],
		M2:     s.setpoint[1],
		M3:     s.setpoint[2],
		M4:     s.setpoint[3],
	}
}

// Setpoint returns the setpoint streamed while armed.
func (s *Server) Setpoint() motor.Setpoint {
	s.motorLock.Lock()
	defer s.motorLock.Unlock()
	return s.setpoint
}

func (s *Server) SetSetpoint(setpoint motor.Setpoint) {
	s.motorLock.Lock()
	for i := range setpoint {
		setpoint[i] = motor.Clamp(int64(setpoint[i]), s.max)
	}
	s.setpoint = setpoint
	s.motorLock.Unlock()

	s.socketSendData("motors", s.motorsState())
}

// Arm enables the firmware motor port and starts streaming the setpoint.
func (s *Server) Arm() error {
	s.armLock.Lock()
	defer s.armLock.Unlock()

	s.motorLock.Lock()
	armed := s.armed
	s.motorLock.Unlock()
	if armed {
		return nil
	}

	if err := s.streamer.Arm(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.motorLock.Lock()
	s.stopStream = cancel
	s.streamDone = done
	s.armed = true
	s.motorLock.Unlock()

	go func() {
		defer close(done)
		_, err := s.streamer.Stream(ctx, motor.Forever, func(time.Duration) motor.Setpoint {
			return s.Setpoint()
		})
		if err != nil {
			log.Printf("Motor stream stopped: %s", err)
		}
	}()

	log.Printf("Motors armed")
	return nil
}

// Disarm stops streaming, sends the stop packets and disables the firmware
// motor port. An Arm issued meanwhile waits until this has finished.
func (s *Server) Disarm() error {
	s.armLock.Lock()
	defer s.armLock.Unlock()

	s.motorLock.Lock()
	if !s.armed {
		s.motorLock.Unlock()
		return nil
	}
	s.armed = false
	stopStream, done := s.stopStream, s.streamDone
	s.motorLock.Unlock()

	// the stream reads the setpoint under motorLock, so wait for it unlocked
	stopStream()
	<-done

	err := s.streamer.Shutdown()

	log.Printf("Motors disarmed")
	return err
}

func (s *Server) motorsGet(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.motorsState())
}

func (s *Server) motorsSet(w http.ResponseWriter, r *http.Request) {
	var req motorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Bad request!")
		return
	}

	// clamp against the raw request so negative or oversized values saturate
	s.motorLock.Lock()
	setpoint := s.setpoint
	for i, v := range []*int64{req.M1, req.M2, req.M3, req.M4} {
		if v != nil {
			setpoint[i] = motor.Clamp(*v, s.max)
		}
	}
	s.motorLock.Unlock()

	s.SetSetpoint(setpoint)
	respondJSON(w, http.StatusOK, s.motorsState())
}

func (s *Server) motorsArm(w http.ResponseWriter, r *http.Request) {
	if err := s.Arm(); err != nil {
		respondError(w, r, statusFor(err), err.Error())
		return
	}
	s.socketSendData("motors", s.motorsState())
	respondJSON(w, http.StatusOK, s.motorsState())
}

func (s *Server) motorsDisarm(w http.ResponseWriter, r *http.Request) {
	if err := s.Disarm(); err != nil {
		respondError(w, r, statusFor(err), err.Error())
		return
	}
	s.socketSendData("motors", s.motorsState())
	respondJSON(w, http.StatusOK, s.motorsState())
}
