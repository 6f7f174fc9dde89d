package crazyradio

// Functions implementing the CrtpDevice interface

import (
	"log"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

func (cr *Radio) ClientRegister(channel uint8, address uint64, callback func([]byte)) {
	cr.lock.Lock()
	cr.clientCallbackSet(channel, address, callback)
	cr.clientPacketQueueGet(channel, address) // initializes if non existent
	cr.lock.Unlock()

	log.Printf("New client %d:0x%X", channel, address)
}

func (cr *Radio) ClientRemove(channel uint8, address uint64) {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	cr.clientCallbackRemove(channel, address)
	cr.clientPacketQueueRemove(channel, address)
}

func (cr *Radio) ClientWaitUntilAllPacketsHaveBeenSent(channel uint8, address uint64, timeout time.Duration) bool {
	deadline := time.After(timeout)

	for {
		cr.lock.Lock()
		queue, ok := cr.clientPacketQueueLookup(channel, address)
		cr.lock.Unlock()

		if !ok || queue.empty() {
			return true
		}
		if cr.stopped() {
			return false
		}

		// block until the radio thread dequeues one of our packets, after which we check again
		select {
		case <-queue.packetDequeued:
		case <-cr.threadShouldStop:
			return false
		case <-deadline:
			return queue.empty()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (cr *Radio) lookup(channel uint8, address uint64) (*packetQueue, error) {
	if cr.stopped() {
		return nil, ErrorClosed
	}

	cr.lock.Lock()
	queue, ok := cr.clientPacketQueueLookup(channel, address)
	cr.lock.Unlock()

	if !ok {
		return nil, ErrorClientNotRegistered
	}
	return queue, nil
}

func (cr *Radio) enqueue(channel uint8, address uint64, priority bool, request crtp.RequestPacketPtr) error {
	queue, err := cr.lookup(channel, address)
	if err != nil {
		return err
	}

	if priority {
		return clientPacketEnqueue(queue.priorityQueue, request)
	}
	return clientPacketEnqueue(queue.standardQueue, request)
}

func (cr *Radio) PacketSend(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	return cr.enqueue(channel, address, false, request)
}

func (cr *Radio) PacketSendPriority(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	return cr.enqueue(channel, address, true, request)
}

func (cr *Radio) PacketSendSetpoint(channel uint8, address uint64, request crtp.RequestPacketPtr) error {
	queue, err := cr.lookup(channel, address)
	if err != nil {
		return err
	}

	packet, err := crtp.Encode(request)
	if err != nil {
		return err
	}
	queue.putSetpoint(packet)
	return nil
}
