package crazyflie

import (
	"container/list"
	"log"
	"sync"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtpdevice"
)

type CrazyflieStatus uint8

const (
	StatusDisconnected CrazyflieStatus = iota
	StatusConnected
	StatusNoResponse
)

func (s CrazyflieStatus) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusNoResponse:
		return "no response"
	default:
		return "disconnected"
	}
}

const DEFAULT_RESPONSE_TIMEOUT = 500 * time.Millisecond

// how long DisconnectOnEmpty lets queued packets drain
const DEFAULT_FLUSH_TIMEOUT = time.Second

type Crazyflie struct {
	address         uint64
	firmwareAddress uint64
	channel         uint8
	firmwareChannel uint8
	crtpDevice      crtpdevice.CrtpDevice

	statusLock   sync.Mutex
	status       CrazyflieStatus
	lastResponse time.Time
	firstInit    *sync.Once
	connected    chan bool

	// communication loop
	disconnect chan bool
	waitGroup  *sync.WaitGroup

	// callbacks for packet reception
	callbackLock      sync.Mutex
	responseCallbacks map[crtp.Port](*list.List)

	// console printing
	consoleLock             sync.Mutex
	accumulatedConsolePrint string
	consoleLines            chan string

	// log variables
	logLock        sync.Mutex
	logCount       int
	logCRC         uint32
	logMaxPacket   uint8
	logMaxOps      uint8
	logV2          bool
	logNameToIndex map[string]logItem
	logIndexToName map[uint16]string
	logBlocks      map[uint8]*logBlock

	// parameters
	paramLock        sync.Mutex
	paramCount       int
	paramCRC         uint32
	paramV2          bool
	paramNameToIndex map[string]paramItem
}

func Connect(crtpDevice crtpdevice.CrtpDevice, channel uint8, address uint64) (*Crazyflie, error) {
	cf := &Crazyflie{
		crtpDevice:      crtpDevice,
		firmwareAddress: address, // we save explicitly the firmware address and channel since a restart to bootloader will overwrite the current radio settings
		firmwareChannel: channel,
	}

	err := cf.connect(channel, address)
	if err != nil {
		return nil, err
	}

	return cf, nil
}

// Crazyflie.connect handles connection to the crazyflie at a given address and channel
// Note that we split this functionality from the Connect function, since we can then reboot
// without affecting or losing the firmware address, or having to create a new crazyflie object
func (cf *Crazyflie) connect(channel uint8, address uint64) error {
	cf.address = address
	cf.channel = channel
	cf.setStatus(StatusDisconnected)
	cf.firstInit = new(sync.Once)
	cf.connected = make(chan bool)

	// initialize the structures required for communication and packet handling
	cf.communicationSystemInit()
	cf.consoleSystemInit()
	cf.logSystemInit()
	cf.paramSystemInit()

	// the first acknowledgement of any kind proves the link
	cf.crtpDevice.ClientRegister(cf.channel, cf.address, cf.responseHandler)

	select {
	case <-cf.connected:
		return nil
	case <-time.After(DEFAULT_RESPONSE_TIMEOUT):
		cf.DisconnectImmediately()
		return ErrorNoResponse
	}
}

func (cf *Crazyflie) Address() uint64 {
	return cf.address
}

func (cf *Crazyflie) Channel() uint8 {
	return cf.channel
}

func (cf *Crazyflie) FirmwareAddress() uint64 {
	return cf.firmwareAddress
}

func (cf *Crazyflie) Status() CrazyflieStatus {
	cf.statusLock.Lock()
	defer cf.statusLock.Unlock()
	return cf.status
}

func (cf *Crazyflie) setStatus(status CrazyflieStatus) {
	cf.statusLock.Lock()
	cf.status = status
	cf.statusLock.Unlock()
}

func (cf *Crazyflie) DisconnectImmediately() {
	// asynchronously (& non-blocking) stops the communications thread
	cf.crtpDevice.ClientRemove(cf.channel, cf.address)

	select {
	case <-cf.disconnect:
		// already disconnected
	default:
		close(cf.disconnect)
	}
	cf.waitGroup.Wait()
	cf.setStatus(StatusDisconnected)
}

func (cf *Crazyflie) DisconnectOnEmpty() {
	if err := cf.PacketQueueWaitForEmpty(DEFAULT_FLUSH_TIMEOUT); err != nil {
		log.Printf("Disconnecting 0x%X with %s", cf.address, err)
	}
	cf.DisconnectImmediately()
}
