package bcs

import (
	"encoding/binary"
	"fmt"
)

// 白平衡有效范围；自动白平衡后相机偶发上报垃圾值
const (
	maxWBTemperature = 10000
	maxWBTint        = 50
)

// 录制格式 flags
const (
	recFlagFileMRate   = 1 << 0
	recFlagSensorMRate = 1 << 1
	recFlagInterlaced  = 1 << 3
)

type decodeFunc func(f Frame) (Value, error)

type decodeRule struct {
	typ    DataType
	minLen int
	decode decodeFunc
}

var decodeTable = map[Address]decodeRule{
	AddrAperture:     {TypeFixed16, 10, decodeAperture},
	AddrRecFormat:    {TypeInt16, 12, decodeRecFormat},
	AddrManualWB:     {TypeInt16, 12, decodeWhiteBalance},
	AddrShutterAngle: {TypeInt32, 12, decodeShutterAngle},
	AddrShutterSpeed: {TypeInt32, 12, decodeShutterSpeed},
	AddrGain:         {TypeInt8, 9, decodeGain},
	AddrISO:          {TypeInt32, 12, decodeISO},
	AddrNDFilter:     {TypeFixed16, 10, decodeNDFilter},
}

// PeekAddress 校验来源并读取通知帧地址，不解码载荷
// 非广播来源先于长度检查，短帧也按忽略处理
func PeekAddress(buf []byte) (Address, error) {
	var addr Address
	if len(buf) >= 6 {
		addr = Address{buf[4], buf[5]}
	}
	if len(buf) > 0 && buf[0] != BroadcastDevice {
		return addr, ErrNotBroadcast
	}
	if len(buf) < MinFrameLen {
		return addr, &DecodeError{Address: addr, Err: fmt.Errorf("%w: %d bytes", ErrShortFrame, len(buf))}
	}
	return addr, nil
}

// Decode 解析通知帧并按地址解码载荷
// 未识别地址返回 Unparsed；结构错误返回 *DecodeError；白平衡垃圾值返回 *FilteredError
func Decode(buf []byte) (Value, error) {
	addr, err := PeekAddress(buf)
	if err != nil {
		return nil, err
	}
	f := Frame(buf)
	typ := f.DataType()

	rule, ok := decodeTable[addr]
	if !ok {
		payload := make([]byte, len(buf)-MinFrameLen)
		copy(payload, buf[MinFrameLen:])
		return Unparsed{Addr: addr, DataType: typ, Payload: payload}, nil
	}
	if !typ.Known() {
		return nil, &DecodeError{Address: addr, Err: fmt.Errorf("%w: %d", ErrUnknownDataType, uint8(typ))}
	}
	if typ != rule.typ {
		return nil, &DecodeError{Address: addr, Err: fmt.Errorf("%w: got %s want %s", ErrTypeMismatch, typ, rule.typ)}
	}
	if len(buf) < rule.minLen {
		return nil, &DecodeError{Address: addr, Err: fmt.Errorf("%w: %d bytes, need %d", ErrShortFrame, len(buf), rule.minLen)}
	}
	return rule.decode(f)
}

func decodeAperture(f Frame) (Value, error) {
	return Aperture{Normalized: decodeUnsigned16(f[8], f[9])}, nil
}

func decodeRecFormat(f Frame) (Value, error) {
	v := RecordingFormat{SensorFPS: int(binary.LittleEndian.Uint16(f[10:]))}
	if len(f) >= 18 {
		flags := binary.LittleEndian.Uint16(f[16:])
		v.FileFPS = int(binary.LittleEndian.Uint16(f[8:]))
		v.Width = int(binary.LittleEndian.Uint16(f[12:]))
		v.Height = int(binary.LittleEndian.Uint16(f[14:]))
		v.FileMRate = flags&recFlagFileMRate != 0
		v.SensorMRate = flags&recFlagSensorMRate != 0
		v.Interlaced = flags&recFlagInterlaced != 0
	}
	return v, nil
}

// decodeWhiteBalance 色温按无符号读取，色调有符号
func decodeWhiteBalance(f Frame) (Value, error) {
	temp := int(binary.LittleEndian.Uint16(f[8:]))
	tint := int(int16(binary.LittleEndian.Uint16(f[10:])))
	if temp > maxWBTemperature || tint < -maxWBTint || tint > maxWBTint {
		return nil, &FilteredError{
			Address: AddrManualWB,
			Reason:  fmt.Sprintf("white balance out of range: temperature=%d tint=%d", temp, tint),
		}
	}
	return WhiteBalance{Temperature: temp, Tint: tint}, nil
}

func decodeShutterAngle(f Frame) (Value, error) {
	return ShutterAngle{Degrees: float64(readInt32(f[8:])) / 100}, nil
}

func decodeShutterSpeed(f Frame) (Value, error) {
	return ShutterSpeed{Denominator: readInt32(f[8:])}, nil
}

func decodeGain(f Frame) (Value, error) {
	return Gain{DB: int8(f[8])}, nil
}

func decodeISO(f Frame) (Value, error) {
	return ISO{Value: readInt32(f[8:])}, nil
}

func decodeNDFilter(f Frame) (Value, error) {
	return NDFilter{Stop: decodeUnsigned16(f[8], f[9])}, nil
}

// readInt32 四字节按 0/8/16/24 位移按位或组合
func readInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}
