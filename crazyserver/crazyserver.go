package crazyserver

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/motor"
	"github.com/gorilla/mux"
)

// Copter is the part of a connected Crazyflie the server exposes.
type Copter interface {
	motor.Sender

	Status() crazyflie.CrazyflieStatus
	ParamGetToc() []crazyflie.ParamTocItem
	ParamRead(name string) (interface{}, error)

	LogVariableExists(name string) bool
	LogBlockAdd(variables []string) (uint8, error)
	LogBlockStart(blockid uint8, period time.Duration) error
	LogBlockDelete(blockid uint8) error
	LogBlockSubscribe(blockid uint8, buffer int) (<-chan crazyflie.LogBlockData, func(), error)
}

// Server is a REST and websocket front end to one Crazyflie's motors.
type Server struct {
	cf       Copter
	streamer *motor.Streamer
	max      uint16

	armLock    sync.Mutex // held across whole arm and disarm sequences
	motorLock  sync.Mutex
	setpoint   motor.Setpoint
	armed      bool
	stopStream context.CancelFunc
	streamDone chan struct{}

	socketsLock     sync.Mutex
	sockets         map[string]socket
	socketsMaxIndex int

	telemetryBlock uint8
	telemetryStop  func()
	telemetryDone  chan struct{}

	router *mux.Router
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the server around cf. Setpoints sent through it are clamped to max.
func New(cf Copter, streamer *motor.Streamer, max uint16) *Server {
	s := &Server{
		cf:       cf,
		streamer: streamer,
		max:      max,
		sockets:  make(map[string]socket),
		router:   mux.NewRouter(),
	}

	s.motorsInitRoute(s.router)
	s.paramInitRoute(s.router)
	s.socketsInitRoute(s.router)
	return s
}

// ServeStatic serves path on /static with its index.html on /.
func (s *Server) ServeStatic(path string) {
	s.router.PathPrefix("/static").Handler(http.StripPrefix("/static", http.FileServer(http.Dir(path))))
	s.router.Handle("/", http.FileServer(http.Dir(path)))
	s.router.Handle("/favicon.ico", http.FileServer(http.Dir(path)))
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is done, then disarms the motors.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{Addr: addr, Handler: s.router}

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errs:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = server.Shutdown(shutdownCtx)
	}

	s.Close()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close disarms the motors and ends the telemetry stream.
func (s *Server) Close() {
	if err := s.Disarm(); err != nil {
		log.Printf("Error while disarming: %s", err)
	}
	s.StopTelemetry()
	s.closeSockets()
}

func respondJSON(w http.ResponseWriter, httpStatus int, resp interface{}) {
	w.Header().Set("Content-type", "application/json; charset=UTF-8")
	w.WriteHeader(httpStatus)

	json.NewEncoder(w).Encode(resp)
}

func respondError(w http.ResponseWriter, r *http.Request, httpStatus int, msg string) {
	respondJSON(w, httpStatus, errorResponse{Error: msg})
}

// statusFor maps errors from the Crazyflie onto HTTP statuses.
func statusFor(err error) int {
	switch err {
	case crazyflie.ErrorParamNotFound:
		return http.StatusNotFound
	case crazyflie.ErrorParamReadOnly:
		return http.StatusForbidden
	case crazyflie.ErrorParamWrongType:
		return http.StatusBadRequest
	case crazyflie.ErrorNoResponse, crazyflie.ErrorDisconnected, crazyflie.ErrorQueueNotEmpty:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
