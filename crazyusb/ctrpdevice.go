package crazyusb

// Functions implementing the CrtpDevice interface

import (
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

func (cr *CrtpUsb) ClientRegister(channel uint8, address uint64, callback func([]byte)) {
	cr.callbackLock.Lock()
	cr.callback = callback
	cr.callbackLock.Unlock()
}

func (cr *CrtpUsb) ClientRemove(channel uint8, address uint64) {
	cr.callbackLock.Lock()
	cr.callback = nil
	cr.callbackLock.Unlock()
}

func (cr *CrtpUsb) ClientWaitUntilAllPacketsHaveBeenSent(channel uint8, address uint64, timeout time.Duration) bool {
	deadline := time.After(timeout)

	for !cr.empty() {
		if cr.stopped() {
			return false
		}

		select {
		case <-cr.packetDequeued:
		case <-cr.threadShouldStop:
			return false
		case <-deadline:
			return cr.empty()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return true
}

func (cr *CrtpUsb) PacketSend(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	if cr.stopped() {
		return ErrorClosed
	}
	return clientPacketEnqueue(cr.standardQueue, request)
}

func (cr *CrtpUsb) PacketSendPriority(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	if cr.stopped() {
		return ErrorClosed
	}
	return clientPacketEnqueue(cr.priorityQueue, request)
}

func (cr *CrtpUsb) PacketSendSetpoint(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	if cr.stopped() {
		return ErrorClosed
	}

	packet, err := crtp.Encode(request)
	if err != nil {
		return err
	}
	cr.putSetpoint(packet)
	return nil
}
