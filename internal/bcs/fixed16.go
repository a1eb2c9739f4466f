package bcs

import "math"

const (
	fixed16Scale = 2048.0
	// Fixed16Min / Fixed16Max 可表示区间
	Fixed16Min = -16.0
	Fixed16Max = 15 + 2047.0/2048.0
)

// EncodeFixed16 将浮点值转换为 5.11 定点格式（16位补码）
// 超出范围的输入先钳位再量化，永不失败；NaN 视为 0
// 半值向上取整（-0.5 -> 0），与相机侧参考实现一致
func EncodeFixed16(v float64) uint16 {
	if math.IsNaN(v) {
		v = 0
	}
	v = math.Min(math.Max(v, Fixed16Min), Fixed16Max)
	return uint16(int16(math.Floor(v*fixed16Scale + 0.5)))
}

// DecodeFixed16 有符号解码，结果一定落在 [Fixed16Min, Fixed16Max]
func DecodeFixed16(bits uint16) float64 {
	return float64(int16(bits)) / fixed16Scale
}

// decodeUnsigned16 上报光圈/ND 使用的无符号解码：(low + high<<8) / 2048
// 与 EncodeFixed16 不对称，协议如此
func decodeUnsigned16(low, high byte) float64 {
	return float64(uint16(low)|uint16(high)<<8) / fixed16Scale
}
