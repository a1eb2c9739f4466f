package bcs

import "encoding/binary"

// 构造函数只负责布局，入参为已换算好的线上值，不做 I/O

// BuildApertureNormalized 设置归一化光圈 (0.3, fixed16)
func BuildApertureNormalized(v uint16) Frame {
	f := newFrame(AddrApertureNormalized, TypeFixed16, 2)
	binary.LittleEndian.PutUint16(f[8:], v)
	return f
}

// BuildShutterAngle 设置快门角度 (1.11, int32)，单位 0.01 度
func BuildShutterAngle(hundredths int32) Frame {
	f := newFrame(AddrShutterAngle, TypeInt32, 4)
	binary.LittleEndian.PutUint32(f[8:], uint32(hundredths))
	return f
}

// BuildShutterSpeed 设置快门速度 (1.12, int32)，值为 1/x 的分母
func BuildShutterSpeed(denominator int32) Frame {
	f := newFrame(AddrShutterSpeed, TypeInt32, 4)
	binary.LittleEndian.PutUint32(f[8:], uint32(denominator))
	return f
}

// BuildGain 设置增益 (1.13, int8)，单位 dB
func BuildGain(db int8) Frame {
	f := newFrame(AddrGain, TypeInt8, 1)
	f[8] = byte(db)
	return f
}

// BuildManualWB 设置手动白平衡 (1.2, int16×2)
func BuildManualWB(temperature, tint int16) Frame {
	f := newFrame(AddrManualWB, TypeInt16, 4)
	binary.LittleEndian.PutUint16(f[8:], uint16(temperature))
	binary.LittleEndian.PutUint16(f[10:], uint16(tint))
	return f
}

// BuildAutoWB 触发自动白平衡 (1.3, void)
func BuildAutoWB() Frame {
	return newFrame(AddrAutoWB, TypeVoid, 0)
}

// BuildColorRgbl 设置调色 lift/gamma/gain/offset (8.0-8.3, fixed16×4)
func BuildColorRgbl(addr Address, r, g, b, l uint16) Frame {
	f := newFrame(addr, TypeFixed16, 8)
	putFixed16s(f[8:], r, g, b, l)
	return f
}

// BuildContrast 设置对比度 (8.4, fixed16×2)：pivot, adjust
func BuildContrast(pivot, adjust uint16) Frame {
	f := newFrame(AddrCCContrast, TypeFixed16, 4)
	putFixed16s(f[8:], pivot, adjust)
	return f
}

// BuildColorAdjust 设置色相/饱和度 (8.6, fixed16×2)
func BuildColorAdjust(hue, saturation uint16) Frame {
	f := newFrame(AddrCCColorAdjust, TypeFixed16, 4)
	putFixed16s(f[8:], hue, saturation)
	return f
}

// BuildColorReset 重置调色 (8.7, void)
func BuildColorReset() Frame {
	return newFrame(AddrCCReset, TypeVoid, 0)
}

// BuildColorBars 彩条显示时长 (4.4, int8)，单位秒，0 关闭
func BuildColorBars(seconds int8) Frame {
	f := newFrame(AddrColorBars, TypeInt8, 1)
	f[8] = byte(seconds)
	return f
}

func putFixed16s(dst []byte, vs ...uint16) {
	for i, v := range vs {
		binary.LittleEndian.PutUint16(dst[i*2:], v)
	}
}
