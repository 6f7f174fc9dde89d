package crazyflie

import (
	"log"
	"math"
	"time"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/cache"
	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/crtp"
)

var logTypeToValue = map[uint8](func([]byte) interface{}){
	1: bytesToUint8,
	2: bytesToUint16,
	3: bytesToUint32,
	4: bytesToInt8,
	5: bytesToInt16,
	6: bytesToInt32,
	7: bytesToFloat32,
	8: bytesToFloat16,
}

var logTypeToSize = map[uint8]int{
	1: 1,
	2: 2,
	3: 4,
	4: 1,
	5: 2,
	6: 4,
	7: 4,
	8: 2,
}

// a log data packet is block id and a 24 bit timestamp followed by the values
const logBlockMaxDataSize = crtp.MaxPayload - 4

type logItem struct {
	ID       uint16
	Datatype uint8
}

type logTOC struct {
	V2    bool
	Items map[string]logItem
}

type logBlock struct {
	ID          uint8
	Names       []string
	Variables   []logItem
	subscribers map[int]chan LogBlockData
	nextSub     int
}

// LogBlockData is one decoded sample of a log block.
type LogBlockData struct {
	BlockID   uint8
	Timestamp uint32 // firmware ticks in ms
	Values    map[string]interface{}
}

func (cf *Crazyflie) logSystemInit() {
	cf.logLock.Lock()
	cf.logV2 = false
	cf.logNameToIndex = make(map[string]logItem)
	cf.logIndexToName = make(map[uint16]string)
	cf.logBlocks = make(map[uint8]*logBlock)
	cf.logLock.Unlock()

	cf.callbackAdd(crtp.PortLog, cf.handleLogBlock)
}

func (cf *Crazyflie) handleLogBlock(resp []byte) {
	header := crtp.Header(resp[0])
	if header.Port() != crtp.PortLog || header.Channel() != 2 || len(resp) < 5 {
		return
	}

	blockid := resp[1]
	timestamp := uint32(resp[2]) | (uint32(resp[3]) << 8) | (uint32(resp[4]) << 16)

	cf.logLock.Lock()
	defer cf.logLock.Unlock()

	block, ok := cf.logBlocks[blockid]
	if !ok {
		log.Printf("warning: unknown block id=%d", blockid)
		return
	}

	data := LogBlockData{
		BlockID:   blockid,
		Timestamp: timestamp,
		Values:    make(map[string]interface{}, len(block.Variables)),
	}

	idx := 5 // first index of element
	for i, variable := range block.Variables {
		datasize := logTypeToSize[variable.Datatype]
		if idx+datasize > len(resp) {
			log.Printf("warning: block %d is truncated at %s", blockid, block.Names[i])
			return
		}
		data.Values[block.Names[i]] = logTypeToValue[variable.Datatype](resp[idx : idx+datasize])
		idx += datasize
	}

	for _, subscriber := range block.subscribers {
		select {
		case subscriber <- data:
		default: // reader is behind, drop the sample
		}
	}
}

func (cf *Crazyflie) logTOCGetInfo() (*LogResponseGetInfo, error) {
	var err error
	for _, v2 := range []bool{true, false} {
		request := &LogRequestGetInfo{V2: v2}
		response := &LogResponseGetInfo{V2: v2}

		err = cf.packetSendAndAwaitResponseRetry(request, response, 2)
		if err == nil {
			return response, nil
		}
	}
	return nil, err
}

func (cf *Crazyflie) LogTOCGetList() error {
	info, err := cf.logTOCGetInfo()
	if err != nil {
		return err
	}

	toc := logTOC{}
	err = cache.LoadLog(info.CRC, &toc)
	if err == nil && toc.V2 == info.V2 && len(toc.Items) == info.Count {
		cf.logTOCSet(info, toc)
		log.Printf("Cached Log TOC Size %d with CRC %X", info.Count, info.CRC)
		return nil
	}

	toc = logTOC{V2: info.V2, Items: make(map[string]logItem, info.Count)}
	for i := 0; i < info.Count; i++ {
		request := &LogRequestGetItem{V2: info.V2, ID: uint16(i)}
		response := &LogResponseGetItem{V2: info.V2, ID: uint16(i)}

		if err := cf.packetSendAndAwaitResponseRetry(request, response, 5); err != nil {
			return err
		}

		toc.Items[response.Name] = logItem{response.ID, response.Datatype}
	}

	cf.logTOCSet(info, toc)
	log.Printf("Loaded Log TOC Size %d with CRC %X", info.Count, info.CRC)

	err = cache.SaveLog(info.CRC, &toc)
	if err != nil && err != cache.ErrNotInitialized {
		log.Printf("Error while caching: %s", err)
	}

	return nil
}

func (cf *Crazyflie) logTOCSet(info *LogResponseGetInfo, toc logTOC) {
	cf.logLock.Lock()
	defer cf.logLock.Unlock()

	cf.logCount = info.Count
	cf.logCRC = info.CRC
	cf.logMaxPacket = info.MaxPacket
	cf.logMaxOps = info.MaxOps
	cf.logV2 = toc.V2
	cf.logNameToIndex = toc.Items
	cf.logIndexToName = make(map[uint16]string, len(toc.Items))
	for name, item := range toc.Items {
		cf.logIndexToName[item.ID] = name
	}
}

// LogVariableExists reports whether the loaded TOC has the named variable.
func (cf *Crazyflie) LogVariableExists(name string) bool {
	cf.logLock.Lock()
	defer cf.logLock.Unlock()

	_, ok := cf.logNameToIndex[name]
	return ok
}

func (cf *Crazyflie) LogBlockClearAll() error {
	request := &LogRequestBlockClearAll{}
	response := &LogResponseBlockClearAll{}

	err := cf.packetSendAndAwaitResponseRetry(request, response, 3)
	if err != nil {
		return err
	}

	cf.logLock.Lock()
	for _, block := range cf.logBlocks {
		block.closeSubscribers()
	}
	cf.logBlocks = make(map[uint8]*logBlock)
	cf.logLock.Unlock()
	return nil
}

func (cf *Crazyflie) LogBlockAdd(variables []string) (uint8, error) {
	cf.logLock.Lock()

	// find a free logblock id
	blockid := 0
	for ; blockid < 256; blockid++ {
		if _, ok := cf.logBlocks[uint8(blockid)]; !ok {
			break
		}
	}
	if blockid >= 256 {
		cf.logLock.Unlock()
		return 0, ErrorLogBlockNoMemory
	}

	block := &logBlock{
		ID:          uint8(blockid),
		Names:       variables,
		Variables:   make([]logItem, len(variables)),
		subscribers: make(map[int]chan LogBlockData),
	}

	request := &LogRequestBlockAdd{
		V2:                cf.logV2,
		BlockID:           block.ID,
		VariableIDs:       make([]uint16, len(variables)),
		VariableDatatypes: make([]uint8, len(variables)),
	}

	size := 0
	for i, name := range variables {
		val, ok := cf.logNameToIndex[name]
		if !ok {
			cf.logLock.Unlock()
			return 0, ErrorLogBlockOrItemNotFound
		}
		block.Variables[i] = val
		request.VariableIDs[i] = val.ID
		request.VariableDatatypes[i] = val.Datatype
		size += logTypeToSize[val.Datatype]
	}
	cf.logLock.Unlock()

	if size > logBlockMaxDataSize || len(request.Bytes()) > crtp.MaxPayload {
		return 0, ErrorLogBlockTooLong
	}

	command := byte(logControlCreateBlock)
	if request.V2 {
		command = logControlCreateBlockV2
	}
	response := &LogResponseBlockControl{Command: command, BlockID: block.ID}

	if err := cf.packetSendAndAwaitResponseRetry(request, response, 3); err != nil {
		return 0, err
	}

	cf.logLock.Lock()
	cf.logBlocks[block.ID] = block
	cf.logLock.Unlock()
	return block.ID, nil
}

func (cf *Crazyflie) logBlockExists(blockid uint8) bool {
	cf.logLock.Lock()
	defer cf.logLock.Unlock()

	_, ok := cf.logBlocks[blockid]
	return ok
}

func (cf *Crazyflie) LogBlockStart(blockid uint8, period time.Duration) error {
	if !cf.logBlockExists(blockid) {
		return ErrorLogBlockOrItemNotFound
	}

	quantizedPeriod := math.Floor(period.Seconds()*100.0 + 0.5) // nearest multiple of 10ms
	if quantizedPeriod < 1 {
		return ErrorLogBlockPeriodTooShort
	}
	if quantizedPeriod > 255 {
		quantizedPeriod = 255
	}

	request := &LogRequestBlockStart{blockid, uint8(quantizedPeriod)}
	response := &LogResponseBlockControl{Command: logControlStartBlock, BlockID: blockid}
	return cf.packetSendAndAwaitResponseRetry(request, response, 3)
}

func (cf *Crazyflie) LogBlockStop(blockid uint8) error {
	if !cf.logBlockExists(blockid) {
		return ErrorLogBlockOrItemNotFound
	}

	request := &LogRequestBlockStop{blockid}
	response := &LogResponseBlockControl{Command: logControlStopBlock, BlockID: blockid}
	return cf.packetSendAndAwaitResponseRetry(request, response, 3)
}

func (cf *Crazyflie) LogBlockDelete(blockid uint8) error {
	request := &LogRequestBlockDelete{blockid}
	response := &LogResponseBlockControl{Command: logControlDeleteBlock, BlockID: blockid}

	err := cf.packetSendAndAwaitResponseRetry(request, response, 3)

	cf.logLock.Lock()
	if block, ok := cf.logBlocks[blockid]; ok {
		block.closeSubscribers()
		delete(cf.logBlocks, blockid)
	}
	cf.logLock.Unlock()
	return err
}

// LogBlockSubscribe delivers the samples of a block on the returned channel
// until the returned function is called or the block is deleted.
func (cf *Crazyflie) LogBlockSubscribe(blockid uint8, buffer int) (<-chan LogBlockData, func(), error) {
	cf.logLock.Lock()
	defer cf.logLock.Unlock()

	block, ok := cf.logBlocks[blockid]
	if !ok {
		return nil, nil, ErrorLogBlockOrItemNotFound
	}

	key := block.nextSub
	block.nextSub++
	samples := make(chan LogBlockData, buffer)
	block.subscribers[key] = samples

	unsubscribe := func() {
		cf.logLock.Lock()
		defer cf.logLock.Unlock()

		if ch, ok := block.subscribers[key]; ok {
			delete(block.subscribers, key)
			close(ch)
		}
	}
	return samples, unsubscribe, nil
}

func (block *logBlock) closeSubscribers() {
	for key, ch := range block.subscribers {
		delete(block.subscribers, key)
		close(ch)
	}
}
