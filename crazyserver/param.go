package crazyserver

import (
	"encoding/json"
	"net/http"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
	"github.com/gorilla/mux"
)

func (s *Server) paramInitRoute(r *mux.Router) {
	r.HandleFunc("/params", s.paramIndex).Methods("GET")
	r.HandleFunc("/params/{name}", s.paramGet).Methods("GET")
	r.HandleFunc("/params/{name}", s.paramSet).Methods("PUT")
}

type paramIndexResponse struct {
	Params []crazyflie.ParamTocItem `json:"params"`
}

type paramValue struct {
	Name  string   `json:"name"`
	Value *float64 `json:"value"`
}

func (s *Server) paramIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, paramIndexResponse{s.cf.ParamGetToc()})
}

func (s *Server) paramRead(w http.ResponseWriter, r *http.Request, name string) {
	val, err := s.cf.ParamRead(name)
	if err != nil {
		respondError(w, r, statusFor(err), err.Error())
		return
	}

	fval, ok := crazyflie.ValueToFloat64(val)
	if !ok {
		respondError(w, r, http.StatusInternalServerError, "Unsupported parameter type")
		return
	}

	respondJSON(w, http.StatusOK, paramValue{name, &fval})
}

func (s *Server) paramGet(w http.ResponseWriter, r *http.Request) {
	s.paramRead(w, r, mux.Vars(r)["name"])
}

func (s *Server) paramSet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req paramValue
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
		respondError(w, r, http.StatusBadRequest, "Bad request!")
		return
	}

	if err := s.cf.ParamWriteFromFloat64(name, *req.Value); err != nil {
		respondError(w, r, statusFor(err), err.Error())
		return
	}

	// answer with what the firmware now holds
	s.paramRead(w, r, name)
}
