package crazyserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crazyflie"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/motor"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCopter struct {
	lock      sync.Mutex
	params    map[string]float64
	readonly  map[string]bool
	setpoints []motor.Setpoint
	flushes   int
	samples   chan crazyflie.LogBlockData
	started   time.Duration
	deleted   bool

	disableGate chan struct{} // holds back writes of crtp_pwm.enable=0
	gated       bool
}

func newFakeCopter() *fakeCopter {
	return &fakeCopter{
		params:   map[string]float64{"crtp_pwm.enable": 0, "crtp_pwm.timeoutMs": 50, "pm.vbat": 3.7},
		readonly: map[string]bool{"pm.vbat": true},
	}
}

func (f *fakeCopter) MotorSetpointSend(format crazyflie.MotorFormat, pwmPort crtp.Port, m [4]uint16) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.setpoints = append(f.setpoints, m)
	return nil
}

func (f *fakeCopter) ParamWriteFromFloat64(name string, value float64) error {
	f.lock.Lock()
	if gate := f.disableGate; gate != nil && name == motor.ParamEnable && value == 0 {
		f.gated = true
		f.lock.Unlock()
		<-gate
		f.lock.Lock()
	}
	defer f.lock.Unlock()
	if _, ok := f.params[name]; !ok {
		return crazyflie.ErrorParamNotFound
	}
	if f.readonly[name] {
		return crazyflie.ErrorParamReadOnly
	}
	f.params[name] = value
	return nil
}

func (f *fakeCopter) PacketQueueWaitForEmpty(timeout time.Duration) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.flushes++
	return nil
}

func (f *fakeCopter) Status() crazyflie.CrazyflieStatus {
	return crazyflie.StatusConnected
}

func (f *fakeCopter) ParamGetToc() []crazyflie.ParamTocItem {
	return []crazyflie.ParamTocItem{
		{Group: "crtp_pwm", Name: "enable", Type: "uint8", Access: "RW"},
		{Group: "crtp_pwm", Name: "timeoutMs", Type: "uint16", Access: "RW"},
		{Group: "pm", Name: "vbat", Type: "float", Access: "RO"},
	}
}

func (f *fakeCopter) ParamRead(name string) (interface{}, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	v, ok := f.params[name]
	if !ok {
		return nil, crazyflie.ErrorParamNotFound
	}
	return float32(v), nil
}

func (f *fakeCopter) LogVariableExists(name string) bool {
	return strings.HasPrefix(name, "crtp_pwm.")
}

func (f *fakeCopter) LogBlockAdd(variables []string) (uint8, error) {
	return 3, nil
}

func (f *fakeCopter) LogBlockStart(blockid uint8, period time.Duration) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.started = period
	return nil
}

func (f *fakeCopter) LogBlockDelete(blockid uint8) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.deleted = true
	return nil
}

func (f *fakeCopter) LogBlockSubscribe(blockid uint8, buffer int) (<-chan crazyflie.LogBlockData, func(), error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.samples = make(chan crazyflie.LogBlockData, buffer)
	samples := f.samples
	var once sync.Once
	return samples, func() { once.Do(func() { close(samples) }) }, nil
}

func (f *fakeCopter) param(name string) float64 {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.params[name]
}

func (f *fakeCopter) sent() []motor.Setpoint {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]motor.Setpoint(nil), f.setpoints...)
}

func newTestServer(t *testing.T) (*Server, *fakeCopter, *httptest.Server) {
	t.Helper()

	cf := newFakeCopter()
	streamer := &motor.Streamer{
		Sender:      cf,
		Format:      crazyflie.MotorFormatPort,
		PWMPort:     crtp.PortPWM,
		Rate:        100,
		StopRepeats: 3,
		Enable:      true,
	}
	s := New(cf, streamer, 40000)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, cf, ts
}

func do(t *testing.T, method, url, body string, out interface{}) int {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestMotorsSetClamps(t *testing.T) {
	_, _, ts := newTestServer(t)

	var state motorsResponse
	assert.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/motors", "", &state))
	assert.False(t, state.Armed)
	assert.Equal(t, uint16(40000), state.Max)
	assert.Equal(t, "connected", state.Status)

	assert.Equal(t, http.StatusOK, do(t, "PUT", ts.URL+"/motors", `{"m1":1000,"m2":-5,"m3":99999,"m4":4000}`, &state))
	assert.Equal(t, motorsResponse{Status: "connected", Max: 40000, M1: 1000, M2: 0, M3: 40000, M4: 4000}, state)

	// motors left out keep their value
	assert.Equal(t, http.StatusOK, do(t, "PUT", ts.URL+"/motors", `{"m2":2000}`, &state))
	assert.Equal(t, uint16(1000), state.M1)
	assert.Equal(t, uint16(2000), state.M2)

	var e errorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, "PUT", ts.URL+"/motors", `{"m1":`, &e))
	assert.NotEmpty(t, e.Error)
}

func TestArmStreamsAndDisarmStops(t *testing.T) {
	s, cf, ts := newTestServer(t)
	s.SetSetpoint(motor.Setpoint{1000, 2000, 3000, 4000})

	var state motorsResponse
	assert.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/motors/arm", "", &state))
	assert.True(t, state.Armed)
	assert.Equal(t, float64(1), cf.param(motor.ParamEnable))

	require.Eventually(t, func() bool { return len(cf.sent()) >= 3 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, motor.Setpoint{1000, 2000, 3000, 4000}, cf.sent()[0])

	// arming twice is harmless
	assert.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/motors/arm", "", &state))

	assert.Equal(t, http.StatusOK, do(t, "POST", ts.URL+"/motors/disarm", "", &state))
	assert.False(t, state.Armed)
	assert.Equal(t, float64(0), cf.param(motor.ParamEnable))

	sent := cf.sent()
	assert.Equal(t, []motor.Setpoint{motor.Zero, motor.Zero, motor.Zero}, sent[len(sent)-3:])

	// no more packets once disarmed
	count := len(cf.sent())
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, cf.sent(), count)
}

func TestArmWaitsForPendingDisarm(t *testing.T) {
	s, cf, _ := newTestServer(t)
	require.NoError(t, s.Arm())

	gate := make(chan struct{})
	cf.lock.Lock()
	cf.disableGate = gate
	cf.lock.Unlock()

	disarmed := make(chan error, 1)
	go func() { disarmed <- s.Disarm() }()
	require.Eventually(t, func() bool {
		cf.lock.Lock()
		defer cf.lock.Unlock()
		return cf.gated
	}, time.Second, time.Millisecond)

	armed := make(chan error, 1)
	go func() { armed <- s.Arm() }()

	select {
	case <-armed:
		t.Fatal("armed while disarming")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-disarmed)
	require.NoError(t, <-armed)

	// the later arm wins on both ends
	assert.True(t, s.motorsState().Armed)
	assert.Equal(t, float64(1), cf.param(motor.ParamEnable))
}

func TestParams(t *testing.T) {
	_, cf, ts := newTestServer(t)

	var index paramIndexResponse
	assert.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/params", "", &index))
	assert.Len(t, index.Params, 3)

	var val paramValue
	assert.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/params/crtp_pwm.timeoutMs", "", &val))
	assert.Equal(t, "crtp_pwm.timeoutMs", val.Name)
	assert.Equal(t, float64(50), *val.Value)

	assert.Equal(t, http.StatusOK, do(t, "PUT", ts.URL+"/params/crtp_pwm.timeoutMs", `{"value":100}`, &val))
	assert.Equal(t, float64(100), *val.Value)
	assert.Equal(t, float64(100), cf.param("crtp_pwm.timeoutMs"))

	var e errorResponse
	assert.Equal(t, http.StatusNotFound, do(t, "GET", ts.URL+"/params/nope.nope", "", &e))
	assert.Equal(t, http.StatusForbidden, do(t, "PUT", ts.URL+"/params/pm.vbat", `{"value":1}`, &e))
	assert.Equal(t, http.StatusBadRequest, do(t, "PUT", ts.URL+"/params/crtp_pwm.enable", `{}`, &e))
}

func TestWebsocketTelemetry(t *testing.T) {
	s, cf, ts := newTestServer(t)
	require.NoError(t, s.StartTelemetry(100*time.Millisecond))
	cf.lock.Lock()
	assert.Equal(t, 100*time.Millisecond, cf.started)
	cf.lock.Unlock()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sockets/websocket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// the current motor state greets every new socket
	var msg outMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "motors", msg.Source)

	var index socketIndexResp
	assert.Equal(t, http.StatusOK, do(t, "GET", ts.URL+"/sockets", "", &index))
	assert.Equal(t, []string{"websocket/websocket0"}, index.Sockets)

	cf.samples <- crazyflie.LogBlockData{
		BlockID:   3,
		Timestamp: 1234,
		Values:    map[string]interface{}{"crtp_pwm.m1": uint16(1000), "crtp_pwm.seq": uint16(9)},
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "crtp_pwm", msg.Source)
	assert.Equal(t, float64(1234), msg.Data["timestamp"])
	values := msg.Data["values"].(map[string]interface{})
	assert.Equal(t, float64(1000), values["crtp_pwm.m1"])
	assert.Equal(t, float64(9), values["crtp_pwm.seq"])

	s.StopTelemetry()
	assert.True(t, cf.deleted)
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>crazypwm</h1>"), 0644))

	s, _, _ := newTestServer(t)
	s.ServeStatic(dir)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(crazyflie.ErrorNoResponse))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(crazyflie.ErrorQueueNotEmpty))
	assert.Equal(t, http.StatusInternalServerError, statusFor(fmt.Errorf("other")))
}
