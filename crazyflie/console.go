package crazyflie

import (
	"strings"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

const consoleBufferLines = 64

func (cf *Crazyflie) consoleSystemInit() {
	cf.consoleLock.Lock()
	cf.accumulatedConsolePrint = ""
	if cf.consoleLines == nil {
		cf.consoleLines = make(chan string, consoleBufferLines)
	}
	cf.consoleLock.Unlock()

	cf.callbackAdd(crtp.PortConsole, cf.handleConsoleResponse)
}

// ConsoleLines yields complete lines printed by the firmware. Lines are
// dropped while nobody reads.
func (cf *Crazyflie) ConsoleLines() <-chan string {
	return cf.consoleLines
}

func (cf *Crazyflie) handleConsoleResponse(resp []byte) {
	if crtp.Header(resp[0]).Port() != crtp.PortConsole {
		return
	}

	cf.consoleLock.Lock()
	defer cf.consoleLock.Unlock()

	str := string(resp[1:])
	for {
		i := strings.Index(str, "\n")
		if i == -1 {
			cf.accumulatedConsolePrint = cf.accumulatedConsolePrint + str
			return
		}

		line := cf.accumulatedConsolePrint + str[0:i]
		str = str[i+1:]
		cf.accumulatedConsolePrint = ""

		select {
		case cf.consoleLines <- line:
		default:
		}
	}
}
