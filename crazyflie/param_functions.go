package crazyflie

import (
	"log"
	"sort"
	"strings"

	"github.com/Lee-Chun-Yi/crazyflie-firmware-pwm/cache"
)

// PARAM_UINT8  (0x00 | (0x00<<2) | (0x01<<3)) = 0x8
// PARAM_UINT16 (0x01 | (0x00<<2) | (0x01<<3)) = 0x9
// PARAM_UINT32 (0x02 | (0x00<<2) | (0x01<<3)) = 0xA
// PARAM_INT8   (0x00 | (0x00<<2) | (0x00<<3)) = 0x0
// PARAM_INT16  (0x01 | (0x00<<2) | (0x00<<3)) = 0x1
// PARAM_INT32  (0x02 | (0x00<<2) | (0x00<<3)) = 0x2
// PARAM_FLOAT  (0x02 | (0x01<<2) | (0x00<<3)) = 0x6

var paramTypeToValue = map[uint8](func([]byte) interface{}){
	0x8: bytesToUint8,
	0x9: bytesToUint16,
	0xA: bytesToUint32,
	0x0: bytesToInt8,
	0x1: bytesToInt16,
	0x2: bytesToInt32,
	0x6: bytesToFloat32,
}

var paramTypeToBytes = map[uint8](func(interface{}) ([]byte, bool)){
	0x8: uint8ToBytes,
	0x9: uint16ToBytes,
	0xA: uint32ToBytes,
	0x0: int8ToBytes,
	0x1: int16ToBytes,
	0x2: int32ToBytes,
	0x6: float32ToBytes,
}

var paramTypeToSize = map[uint8]int{
	0x8: 1,
	0x9: 2,
	0xA: 4,
	0x0: 1,
	0x1: 2,
	0x2: 4,
	0x6: 4,
}

var paramTypeToName = map[uint8]string{
	0x8: "uint8",
	0x9: "uint16",
	0xA: "uint32",
	0x0: "int8",
	0x1: "int16",
	0x2: "int32",
	0x6: "float",
}

type paramItem struct {
	ID       uint16
	Datatype uint8
	Readonly bool
}

type ParamTocItem struct {
	Group  string `json:"group"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Access string `json:"access"` // "RW" or "RO"
}

// paramTOC is what gets cached, keyed by the TOC CRC.
type paramTOC struct {
	V2    bool
	Items map[string]paramItem
}

func (cf *Crazyflie) paramSystemInit() {
	cf.paramLock.Lock()
	defer cf.paramLock.Unlock()

	cf.paramV2 = false
	cf.paramNameToIndex = make(map[string]paramItem)
}

// paramTOCGetInfo asks for the TOC size and CRC, preferring the V2 command.
func (cf *Crazyflie) paramTOCGetInfo() (int, uint32, bool, error) {
	var err error
	for _, v2 := range []bool{true, false} {
		request := &ParamRequestGetInfo{V2: v2}
		response := &ParamResponseGetInfo{V2: v2}

		err = cf.packetSendAndAwaitResponseRetry(request, response, 2)
		if err == nil {
			return response.Count, response.CRC, v2, nil
		}
	}
	return 0, 0, false, err
}

func (cf *Crazyflie) ParamTOCGetList() error {
	count, crc, v2, err := cf.paramTOCGetInfo()
	if err != nil {
		return err
	}

	toc := paramTOC{}
	err = cache.LoadParam(crc, &toc)
	if err == nil && toc.V2 == v2 && len(toc.Items) == count {
		cf.paramTOCSet(count, crc, toc)
		log.Printf("Cached Param TOC Size %d with CRC %X", count, crc)
		return nil
	}

	toc = paramTOC{V2: v2, Items: make(map[string]paramItem, count)}
	for i := 0; i < count; i++ {
		request := &ParamRequestReadMeta{V2: v2, ID: uint16(i)}
		response := &ParamResponseReadMeta{V2: v2, ID: uint16(i)}

		if err := cf.packetSendAndAwaitResponseRetry(request, response, 5); err != nil {
			return err
		}

		toc.Items[response.Name] = paramItem{response.ID, response.Datatype, response.ReadOnly}
	}

	cf.paramTOCSet(count, crc, toc)
	log.Printf("Loaded Param TOC Size %d with CRC %X", count, crc)

	err = cache.SaveParam(crc, &toc)
	if err != nil && err != cache.ErrNotInitialized {
		log.Printf("Error while caching: %s", err)
	}

	return nil
}

func (cf *Crazyflie) paramTOCSet(count int, crc uint32, toc paramTOC) {
	cf.paramLock.Lock()
	defer cf.paramLock.Unlock()

	cf.paramCount = count
	cf.paramCRC = crc
	cf.paramV2 = toc.V2
	cf.paramNameToIndex = toc.Items
}

func (cf *Crazyflie) paramLookup(name string) (paramItem, bool, bool) {
	cf.paramLock.Lock()
	defer cf.paramLock.Unlock()

	param, ok := cf.paramNameToIndex[name]
	return param, cf.paramV2, ok
}

// ParamGetList returns the parameter names ordered by TOC id.
func (cf *Crazyflie) ParamGetList() []string {
	cf.paramLock.Lock()
	defer cf.paramLock.Unlock()

	list := make([]string, 0, len(cf.paramNameToIndex))
	for name := range cf.paramNameToIndex {
		list = append(list, name)
	}
	sort.Slice(list, func(i, j int) bool {
		return cf.paramNameToIndex[list[i]].ID < cf.paramNameToIndex[list[j]].ID
	})

	return list
}

func (cf *Crazyflie) ParamGetToc() []ParamTocItem {
	names := cf.ParamGetList()

	cf.paramLock.Lock()
	defer cf.paramLock.Unlock()

	list := make([]ParamTocItem, len(names))
	for i, name := range names {
		idx := cf.paramNameToIndex[name]
		group, varName, _ := strings.Cut(name, ".")
		list[i].Group = group
		list[i].Name = varName
		list[i].Type = paramTypeToName[idx.Datatype]
		if idx.Readonly {
			list[i].Access = "RO"
		} else {
			list[i].Access = "RW"
		}
	}

	return list
}

func (cf *Crazyflie) ParamRead(name string) (interface{}, error) {
	param, v2, ok := cf.paramLookup(name)
	if !ok {
		return nil, ErrorParamNotFound
	}

	request := &ParamRequestReadValue{V2: v2, ID: param.ID}
	response := &ParamResponseReadValue{V2: v2, ID: param.ID}

	if err := cf.packetSendAndAwaitResponseRetry(request, response, 3); err != nil {
		return nil, err
	}

	decode, ok := paramTypeToValue[param.Datatype]
	if !ok || len(response.Data) < paramTypeToSize[param.Datatype] {
		return nil, ErrorParamWrongType
	}

	return decode(response.Data), nil
}

func (cf *Crazyflie) ParamWriteFromFloat64(name string, valf float64) error {
	param, _, ok := cf.paramLookup(name)
	if !ok {
		return ErrorParamNotFound
	}

	var val interface{}

	switch param.Datatype {
	case 0x8:
		val = uint8(valf)
	case 0x9:
		val = uint16(valf)
	case 0xA:
		val = uint32(valf)
	case 0x0:
		val = int8(valf)
	case 0x1:
		val = int16(valf)
	case 0x2:
		val = int32(valf)
	case 0x6:
		val = float32(valf)
	default:
		return ErrorParamWrongType
	}

	return cf.ParamWrite(name, val)
}

func (cf *Crazyflie) ParamWrite(name string, val interface{}) error {
	param, v2, ok := cf.paramLookup(name)
	if !ok {
		return ErrorParamNotFound
	}
	if param.Readonly {
		return ErrorParamReadOnly
	}

	encode, ok := paramTypeToBytes[param.Datatype]
	if !ok {
		return ErrorParamWrongType
	}
	data, ok := encode(val)
	if !ok {
		return ErrorParamWrongType
	}

	request := &ParamRequestWriteValue{V2: v2, ID: param.ID, Data: data}
	response := &ParamResponseWriteValue{V2: v2, ID: param.ID}

	return cf.packetSendAndAwaitResponseRetry(request, response, 3)
}
