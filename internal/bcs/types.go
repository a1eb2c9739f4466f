package bcs

import "fmt"

// Address 参数地址：category.parameter
type Address struct {
	Category  uint8
	Parameter uint8
}

// String 返回 "category.parameter" 形式，用作监听表与指标标签
func (a Address) String() string {
	return fmt.Sprintf("%d.%d", a.Category, a.Parameter)
}

// DataType 载荷数据类型标记（frame byte6）
type DataType uint8

const (
	TypeVoid    DataType = 0
	TypeInt8    DataType = 1
	TypeInt16   DataType = 2
	TypeInt32   DataType = 3
	TypeInt64   DataType = 4
	TypeString  DataType = 5
	TypeFixed16 DataType = 128
)

// Known 判断是否为协议定义的数据类型
func (t DataType) Known() bool {
	switch t {
	case TypeVoid, TypeInt8, TypeInt16, TypeInt32, TypeInt64, TypeString, TypeFixed16:
		return true
	}
	return false
}

func (t DataType) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeString:
		return "string"
	case TypeFixed16:
		return "fixed16"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

const (
	// BroadcastDevice 目标设备ID，全程使用广播值
	BroadcastDevice uint8 = 255

	// CommandSet 命令ID：set
	CommandSet uint8 = 0

	// OperationAssign 操作码：assign
	OperationAssign uint8 = 0
)

// 分类
const (
	CategoryLens            uint8 = 0
	CategoryVideo           uint8 = 1
	CategoryDisplay         uint8 = 4
	CategoryColorCorrection uint8 = 8
)

// 已知参数地址
var (
	AddrAperture           = Address{CategoryLens, 2}
	AddrApertureNormalized = Address{CategoryLens, 3}

	AddrManualWB      = Address{CategoryVideo, 2}
	AddrAutoWB        = Address{CategoryVideo, 3}
	AddrRecFormat     = Address{CategoryVideo, 9}
	AddrShutterAngle  = Address{CategoryVideo, 11}
	AddrShutterSpeed  = Address{CategoryVideo, 12}
	AddrGain          = Address{CategoryVideo, 13}
	AddrISO           = Address{CategoryVideo, 14}
	AddrNDFilter      = Address{CategoryVideo, 16}
	AddrColorBars     = Address{CategoryDisplay, 4}
	AddrCCLift        = Address{CategoryColorCorrection, 0}
	AddrCCGamma       = Address{CategoryColorCorrection, 1}
	AddrCCGain        = Address{CategoryColorCorrection, 2}
	AddrCCOffset      = Address{CategoryColorCorrection, 3}
	AddrCCContrast    = Address{CategoryColorCorrection, 4}
	AddrCCColorAdjust = Address{CategoryColorCorrection, 6}
	AddrCCReset       = Address{CategoryColorCorrection, 7}
)

// ReportedAddresses 相机会主动上报、且解码器能识别的地址
var ReportedAddresses = []Address{
	AddrAperture,
	AddrManualWB,
	AddrRecFormat,
	AddrShutterAngle,
	AddrShutterSpeed,
	AddrGain,
	AddrISO,
	AddrNDFilter,
}

// Rgbl 一组调色算子（lift/gamma/gain/offset）：红、绿、蓝、亮度
type Rgbl [4]float64
