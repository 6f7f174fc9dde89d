package crazyusb

import (
	"log"
	"sync"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
	"github.com/Workiva/go-datastructures/queue"
)

// usbLink is the part of a usbDevice the worker threads drive.
type usbLink interface {
	SendPacket(data []byte) error
	ReadResponse() ([]byte, error)
	Close()
}

var singletonLock sync.Mutex
var singletonUsb *CrtpUsb = nil

// CrtpUsb talks CRTP to a single Crazyflie over its USB port. It implements
// crtpdevice.CrtpDevice; channel and address arguments are ignored.
type CrtpUsb struct {
	usbDevice        usbLink
	threadShouldStop chan bool

	standardQueue  *queue.Queue
	priorityQueue  *queue.Queue
	packetDequeued chan bool

	// the latest motor setpoint, only kept until it is written
	setpointLock sync.Mutex
	setpoint     []byte
	setpointSeq  uint64

	callbackLock sync.Mutex
	callback     func([]byte)

	globalWaitGroup sync.WaitGroup
}

func Open(index int) (*CrtpUsb, error) {
	singletonLock.Lock()
	defer singletonLock.Unlock()

	if singletonUsb != nil {
		return nil, ErrorDeviceAlreadyOpen
	}

	dev, err := openUsbDevice(index)
	if err != nil {
		return nil, err
	}

	singletonUsb = newCrtpUsb(dev)
	return singletonUsb, nil
}

func newCrtpUsb(dev usbLink) *CrtpUsb {
	cr := &CrtpUsb{
		usbDevice:        dev,
		threadShouldStop: make(chan bool),
		standardQueue:    queue.New(10),
		priorityQueue:    queue.New(10),
		packetDequeued:   make(chan bool),
	}

	cr.globalWaitGroup.Add(2)
	go cr.workerThread()
	go cr.readerThread()

	return cr
}

func (cr *CrtpUsb) Close() {
	close(cr.threadShouldStop)
	cr.globalWaitGroup.Wait()
	cr.usbDevice.Close()

	singletonLock.Lock()
	if singletonUsb == cr {
		singletonUsb = nil
	}
	singletonLock.Unlock()
}

func (cr *CrtpUsb) stopped() bool {
	select {
	case <-cr.threadShouldStop:
		return true
	default:
		return false
	}
}

func (cr *CrtpUsb) deliver(resp []byte) {
	cr.callbackLock.Lock()
	callback := cr.callback
	cr.callbackLock.Unlock()

	if callback != nil {
		callback(resp)
	}
}

func (cr *CrtpUsb) readerThread() {
	// no need to ping the CF when using USB interface, we can just keep reading
	defer cr.globalWaitGroup.Done()

	for !cr.stopped() {
		resp, err := cr.usbDevice.ReadResponse()
		if err != nil {
			log.Printf("usb read error: %s", err)
			<-time.After(10 * time.Millisecond)
			continue
		}

		cr.deliver(resp)
	}
}

func (cr *CrtpUsb) workerThread() {
	// since we don't have to ping the CF, we can just wait until packets are enqueued, and then send them
	defer cr.globalWaitGroup.Done()

	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cr.threadShouldStop:
			return
		case <-ticker.C:
		}

		var written func()
		var packet []byte

		if frontPacket, err := cr.priorityQueue.Peek(); err == nil {
			packet = frontPacket.([]byte)
			written = func() { cr.priorityQueue.Get(1) }
		} else if setpoint, seq, ok := cr.peekSetpoint(); ok {
			packet = setpoint
			written = func() { cr.ackSetpoint(seq) }
		} else if frontPacket, err := cr.standardQueue.Peek(); err == nil {
			packet = frontPacket.([]byte)
			written = func() { cr.standardQueue.Get(1) }
		} else {
			continue
		}

		err := cr.usbDevice.SendPacket(packet)
		if err != nil {
			log.Printf("usb write error: %s", err)
			continue
		}
		written() // remove the transmitted packet

		select { // wake ClientWaitUntilAllPacketsHaveBeenSent if it is waiting
		case cr.packetDequeued <- true:
		default:
		}
	}
}

func (cr *CrtpUsb) putSetpoint(packet []byte) {
	cr.setpointLock.Lock()
	cr.setpoint = packet
	cr.setpointSeq++
	cr.setpointLock.Unlock()
}

func (cr *CrtpUsb) peekSetpoint() ([]byte, uint64, bool) {
	cr.setpointLock.Lock()
	defer cr.setpointLock.Unlock()
	return cr.setpoint, cr.setpointSeq, cr.setpoint != nil
}

// ackSetpoint clears the slot unless a newer setpoint replaced the one written.
func (cr *CrtpUsb) ackSetpoint(seq uint64) {
	cr.setpointLock.Lock()
	if cr.setpointSeq == seq {
		cr.setpoint = nil
	}
	cr.setpointLock.Unlock()
}

func (cr *CrtpUsb) empty() bool {
	cr.setpointLock.Lock()
	noSetpoint := cr.setpoint == nil
	cr.setpointLock.Unlock()

	return noSetpoint && cr.priorityQueue.Empty() && cr.standardQueue.Empty()
}

func clientPacketEnqueue(queue *queue.Queue, request crtp.RequestPacketPtr) error {
	requestData, err := crtp.Encode(request)
	if err != nil {
		return err
	}

	return queue.Put(requestData)
}
