package crazyflie

import (
	"log"
	"time"
)

const rebootSettleTime = 1 * time.Second

// RebootToFirmware restarts the Crazyflie through the nRF51 bootloader
// commands and reconnects at the firmware channel and address. The param and
// log TOCs have to be fetched again afterwards.
func (cf *Crazyflie) RebootToFirmware() error {
	responsePacket := &BootloaderResponseAddress{}

	// await before sending, so the answer to init cannot slip past us
	awaitErrorChannel, stopAwaiting := cf.PacketStartAwaiting(responsePacket)
	defer stopAwaiting()

	if err := cf.PacketSend(&BootloaderRequestInit{}); err != nil {
		return err
	}

	select {
	case err := <-awaitErrorChannel:
		if err != nil {
			return err
		}
	case <-cf.disconnect:
		return ErrorDisconnected
	case <-time.After(DEFAULT_RESPONSE_TIMEOUT):
		return ErrorNoResponse
	}

	if err := cf.PacketSend(&BootloaderRequestRebootToFirmware{}); err != nil {
		return err
	}

	log.Printf("Rebooting 0x%X (nRF51 address 0x%X)", cf.firmwareAddress, responsePacket.NewAddress)

	cf.DisconnectOnEmpty()
	<-time.After(rebootSettleTime)

	var err error
	for attempts := 0; attempts < 5; attempts++ {
		if err = cf.connect(cf.firmwareChannel, cf.firmwareAddress); err == nil {
			return nil
		}
	}
	return err
}
