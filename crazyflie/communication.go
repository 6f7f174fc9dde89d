package crazyflie

import (
	"container/list"
	"sync"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

const statusTimeoutDuration time.Duration = 1 * time.Second

func (cf *Crazyflie) communicationSystemInit() {
	cf.disconnect = make(chan bool)
	cf.waitGroup = &sync.WaitGroup{}

	cf.statusLock.Lock()
	cf.lastResponse = time.Now()
	cf.statusLock.Unlock()

	// setup the communication callbacks
	cf.callbackLock.Lock()
	cf.responseCallbacks = map[crtp.Port](*list.List){
		crtp.PortConsole:          list.New(),
		crtp.PortParam:            list.New(),
		crtp.PortSetpoint:         list.New(),
		crtp.PortMem:              list.New(),
		crtp.PortLog:              list.New(),
		crtp.PortPosition:         list.New(),
		crtp.PortCommanderGeneric: list.New(),
		crtp.PortPWM:              list.New(),
		crtp.PortPlatform:         list.New(),
		crtp.PortLink:             list.New(),
		crtp.PortGreedy:           list.New(),
	}
	cf.callbackLock.Unlock()

	cf.waitGroup.Add(1)
	go cf.statusTimeoutThread()
}

func (cf *Crazyflie) statusTimeoutThread() {
	defer cf.waitGroup.Done()

	ticker := time.NewTicker(statusTimeoutDuration / 4)
	defer ticker.Stop()

	for {
		select {
		case <-cf.disconnect:
			return
		case <-ticker.C:
			cf.statusLock.Lock()
			if cf.status == StatusConnected && time.Since(cf.lastResponse) > statusTimeoutDuration {
				cf.status = StatusNoResponse
			}
			cf.statusLock.Unlock()
		}
	}
}

func (cf *Crazyflie) callbackAdd(port crtp.Port, callback func([]byte)) *list.Element {
	cf.callbackLock.Lock()
	defer cf.callbackLock.Unlock()

	callbacks, ok := cf.responseCallbacks[port]
	if !ok {
		callbacks = list.New()
		cf.responseCallbacks[port] = callbacks
	}
	return callbacks.PushBack(callback)
}

func (cf *Crazyflie) callbackRemove(port crtp.Port, e *list.Element) {
	cf.callbackLock.Lock()
	defer cf.callbackLock.Unlock()

	cf.responseCallbacks[port].Remove(e)
}

// callbacksFor copies the callbacks interested in a port, so they can run without holding the lock.
func (cf *Crazyflie) callbacksFor(port crtp.Port) []func([]byte) {
	cf.callbackLock.Lock()
	defer cf.callbackLock.Unlock()

	callbacks := make([]func([]byte), 0)
	for _, p := range []crtp.Port{port, crtp.PortGreedy} {
		l, ok := cf.responseCallbacks[p]
		if !ok {
			continue
		}
		for e := l.Front(); e != nil; e = e.Next() {
			callbacks = append(callbacks, e.Value.(func([]byte)))
		}
	}
	return callbacks
}

func (cf *Crazyflie) PacketSend(request crtp.RequestPacketPtr) error {
	return cf.crtpDevice.PacketSend(cf.channel, cf.address, request)
}

func (cf *Crazyflie) PacketSendPriority(request crtp.RequestPacketPtr) error {
	return cf.crtpDevice.PacketSendPriority(cf.channel, cf.address, request)
}

// PacketStartAwaiting registers response to be filled by the first matching
// packet. The returned channel yields the result of decoding that packet; the
// returned function must be called to stop awaiting.
func (cf *Crazyflie) PacketStartAwaiting(response crtp.ResponsePacketPtr) (<-chan error, func()) {
	errorChannel := make(chan error, 1)
	lock := new(sync.Mutex)
	fired := false

	callback := func(resp []byte) {
		if response.Port() != crtp.PortGreedy {
			header := crtp.Header(resp[0])
			if header.Port() != response.Port() || header.Channel() != response.Channel() {
				return
			}
		}

		lock.Lock()
		defer lock.Unlock()

		if fired {
			return // response must not change under the reader
		}

		err := response.LoadFromBytes(resp)
		if err == crtp.ErrorPacketIncorrectType {
			return // not the packet we are waiting for
		}

		fired = true
		errorChannel <- err
	}

	e := cf.callbackAdd(response.Port(), callback)
	return errorChannel, func() { cf.callbackRemove(response.Port(), e) }
}

func (cf *Crazyflie) packetCustomSendAndAwaitResponse(request crtp.RequestPacketPtr, response crtp.ResponsePacketPtr, timeout time.Duration, send func(crtp.RequestPacketPtr) error) error {
	responseErrorChannel, stopAwaiting := cf.PacketStartAwaiting(response)
	defer stopAwaiting()

	if err := send(request); err != nil {
		return err
	}

	select {
	case err := <-responseErrorChannel:
		return err
	case <-cf.disconnect:
		return ErrorDisconnected
	case <-time.After(timeout):
		return ErrorNoResponse
	}
}

func (cf *Crazyflie) PacketSendAndAwaitResponse(request crtp.RequestPacketPtr, response crtp.ResponsePacketPtr, timeout time.Duration) error {
	return cf.packetCustomSendAndAwaitResponse(request, response, timeout, cf.PacketSend)
}

func (cf *Crazyflie) PacketSendPriorityAndAwaitResponse(request crtp.RequestPacketPtr, response crtp.ResponsePacketPtr, timeout time.Duration) error {
	return cf.packetCustomSendAndAwaitResponse(request, response, timeout, cf.PacketSendPriority)
}

// packetSendAndAwaitResponseRetry resends on timeouts only; decoding errors are final.
func (cf *Crazyflie) packetSendAndAwaitResponseRetry(request crtp.RequestPacketPtr, response crtp.ResponsePacketPtr, attempts int) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = cf.PacketSendAndAwaitResponse(request, response, DEFAULT_RESPONSE_TIMEOUT)
		if err != ErrorNoResponse {
			return err
		}
	}
	return err
}

func (cf *Crazyflie) PacketSendSetpoint(request crtp.RequestPacketPtr) error {
	return cf.crtpDevice.PacketSendSetpoint(cf.channel, cf.address, request)
}

// Waits for the packet queues to be empty, giving up after timeout
func (cf *Crazyflie) PacketQueueWaitForEmpty(timeout time.Duration) error {
	if !cf.crtpDevice.ClientWaitUntilAllPacketsHaveBeenSent(cf.channel, cf.address, timeout) {
		return ErrorQueueNotEmpty
	}
	return nil
}

func (cf *Crazyflie) responseHandler(resp []byte) {
	cf.statusLock.Lock()
	cf.status = StatusConnected
	cf.lastResponse = time.Now()
	cf.statusLock.Unlock()

	cf.firstInit.Do(func() { close(cf.connected) })

	if len(resp) == 0 {
		return // acked with no data
	}

	header := crtp.Header(resp[0])
	if header.IsEmpty() {
		return // CF has nothing to report
	}

	for _, f := range cf.callbacksFor(header.Port()) {
		f(resp)
	}
}
