package crazyradio

import (
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
	"github.com/Workiva/go-datastructures/queue"
)

// The functions below expect cr.lock to be held.

func (cr *Radio) clientCallbackSet(channel uint8, address uint64, callback func([]byte)) {
	if _, ok := cr.callbacks[channel]; !ok {
		cr.callbacks[channel] = make(map[uint64]func([]byte))
	}
	cr.callbacks[channel][address] = callback
}

func (cr *Radio) clientCallbackRemove(channel uint8, address uint64) {
	delete(cr.callbacks[channel], address)
	if len(cr.callbacks[channel]) == 0 {
		delete(cr.callbacks, channel)
	}
}

func (cr *Radio) clientPacketQueueGet(channel uint8, address uint64) *packetQueue {
	if _, ok := cr.packetQueues[channel]; !ok {
		cr.packetQueues[channel] = make(map[uint64]*packetQueue)
	}

	channelQueues := cr.packetQueues[channel]

	if _, ok := channelQueues[address]; !ok {
		channelQueues[address] = newPacketQueue()
	}

	return channelQueues[address]
}

func (cr *Radio) clientPacketQueueLookup(channel uint8, address uint64) (*packetQueue, bool) {
	q, ok := cr.packetQueues[channel][address]
	return q, ok
}

func (cr *Radio) clientPacketQueueRemove(channel uint8, address uint64) {
	if q, ok := cr.packetQueues[channel][address]; ok {
		q.standardQueue.Dispose()
		q.priorityQueue.Dispose()
	}

	delete(cr.packetQueues[channel], address)
	if len(cr.packetQueues[channel]) == 0 {
		delete(cr.packetQueues, channel)
	}
}

func clientPacketEnqueue(queue *queue.Queue, request crtp.RequestPacketPtr) error {
	requestData, err := crtp.Encode(request)
	if err != nil {
		return err
	}

	return queue.Put(requestData)
}
