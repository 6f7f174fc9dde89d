package crazyradio

import (
	"log"
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
)

// radioLink is the part of a RadioDevice the radio thread drives.
type radioLink interface {
	SetChannel(channel uint8) error
	SetAddress(address uint64) error
	SendPacket(data []byte) error
	ReadResponse() (bool, []byte, error)
	Close()
}

type packetQueue struct {
	standardQueue  *queue.Queue
	priorityQueue  *queue.Queue
	packetDequeued chan bool

	// the latest motor setpoint, only kept until it is acknowledged
	setpointLock sync.Mutex
	setpoint     []byte
	setpointSeq  uint64
}

func newPacketQueue() *packetQueue {
	return &packetQueue{
		standardQueue:  queue.New(10),
		priorityQueue:  queue.New(10),
		packetDequeued: make(chan bool),
	}
}

func (q *packetQueue) putSetpoint(packet []byte) {
	q.setpointLock.Lock()
	q.setpoint = packet
	q.setpointSeq++
	q.setpointLock.Unlock()
}

func (q *packetQueue) peekSetpoint() ([]byte, uint64, bool) {
	q.setpointLock.Lock()
	defer q.setpointLock.Unlock()
	return q.setpoint, q.setpointSeq, q.setpoint != nil
}

// ackSetpoint clears the slot unless a newer setpoint replaced the one sent.
func (q *packetQueue) ackSetpoint(seq uint64) {
	q.setpointLock.Lock()
	if q.setpointSeq == seq {
		q.setpoint = nil
	}
	q.setpointLock.Unlock()
}

func (q *packetQueue) empty() bool {
	q.setpointLock.Lock()
	noSetpoint := q.setpoint == nil
	q.setpointLock.Unlock()

	return noSetpoint && q.priorityQueue.Empty() && q.standardQueue.Empty()
}

type client struct {
	channel  uint8
	address  uint64
	queue    *packetQueue
	callback func([]byte)
}

// Radio multiplexes any number of Crazyflies, each identified by channel and
// address, over one Crazyradio. It implements crtpdevice.CrtpDevice.
type Radio struct {
	device radioLink

	lock         sync.Mutex
	callbacks    map[uint8]map[uint64]func([]byte)
	packetQueues map[uint8]map[uint64]*packetQueue

	threadShouldStop chan bool
	waitGroup        sync.WaitGroup
}

var defaultPacket = []byte{0xFF} // a ping

// Open claims the index-th Crazyradio on the bus and starts its radio thread.
func Open(index int, datarate radioDatarate) (*Radio, error) {
	radios, err := OpenAllRadios()
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(radios) {
		for _, r := range radios {
			r.Close()
		}
		radios[0].CloseContext()
		return nil, ErrorDeviceNotFound
	}

	for i, r := range radios {
		if i != index {
			r.Close()
		}
	}

	device := radios[index]
	if err := device.SetDatarate(datarate); err != nil {
		device.Close()
		device.CloseContext()
		return nil, err
	}

	return newRadio(&usbLink{device}), nil
}

// usbLink ties the lifetime of the libusb context to the one radio we keep.
type usbLink struct {
	*RadioDevice
}

func (l *usbLink) Close() {
	l.RadioDevice.Close()
	l.RadioDevice.CloseContext()
}

func newRadio(device radioLink) *Radio {
	cr := &Radio{
		device:           device,
		callbacks:        make(map[uint8]map[uint64]func([]byte)),
		packetQueues:     make(map[uint8]map[uint64]*packetQueue),
		threadShouldStop: make(chan bool),
	}

	cr.waitGroup.Add(1)
	go cr.radioThread()

	return cr
}

func (cr *Radio) Close() {
	close(cr.threadShouldStop)
	cr.waitGroup.Wait()
	cr.device.Close()
}

func (cr *Radio) stopped() bool {
	select {
	case <-cr.threadShouldStop:
		return true
	default:
		return false
	}
}

// clients snapshots the registered clients so the radio thread never holds the
// lock during a USB transaction.
func (cr *Radio) clients() []client {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	list := make([]client, 0)
	for channel, channelQueues := range cr.packetQueues {
		for address, queue := range channelQueues {
			list = append(list, client{
				channel:  channel,
				address:  address,
				queue:    queue,
				callback: cr.callbacks[channel][address],
			})
		}
	}
	return list
}

func (cr *Radio) radioThread() {
	defer cr.waitGroup.Done()

	for {
		if cr.stopped() {
			return
		}

		clients := cr.clients()
		if len(clients) == 0 {
			<-time.After(10 * time.Millisecond)
			continue
		}

		for _, c := range clients {
			if cr.stopped() {
				return
			}
			cr.service(c)
		}
	}
}

// service performs one transaction with a client: its next priority packet,
// else its pending setpoint, else its next standard packet, else a ping.
// Packets only leave their queue once acknowledged, so a lost packet is
// retransmitted on the next pass.
func (cr *Radio) service(c client) {
	var acknowledge func()
	packet := defaultPacket

	if frontPacket, err := c.queue.priorityQueue.Peek(); err == nil {
		packet = frontPacket.([]byte)
		acknowledge = func() { c.queue.priorityQueue.Get(1) }
	} else if setpoint, seq, ok := c.queue.peekSetpoint(); ok {
		packet = setpoint
		acknowledge = func() { c.queue.ackSetpoint(seq) }
	} else if frontPacket, err := c.queue.standardQueue.Peek(); err == nil {
		packet = frontPacket.([]byte)
		acknowledge = func() { c.queue.standardQueue.Get(1) }
	}

	if err := cr.device.SetChannel(c.channel); err != nil {
		log.Printf("%d:0x%X error: %s", c.channel, c.address, err)
		return
	}
	if err := cr.device.SetAddress(c.address); err != nil {
		log.Printf("%d:0x%X error: %s", c.channel, c.address, err)
		return
	}
	if err := cr.device.SendPacket(packet); err != nil {
		return
	}

	// read the response, which we then distribute to the relevant handler
	ackReceived, resp, err := cr.device.ReadResponse()
	if err != nil || !ackReceived {
		return
	}

	if acknowledge != nil {
		acknowledge() // remove the acknowledged packet, since it was successfully transmitted
	}

	select { // wake ClientWaitUntilAllPacketsHaveBeenSent if it is waiting
	case c.queue.packetDequeued <- true:
	default:
	}

	// resp has len 0 if the packet was acked with no data
	if c.callback != nil {
		data := make([]byte, len(resp))
		copy(data, resp)
		c.callback(data)
	}
}
