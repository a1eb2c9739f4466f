package bcs

import "fmt"

// Frame BCS 命令帧
// 格式：dest(1) + len(1) + cmd(1) + reserved(1) + category(1) + parameter(1) + type(1) + op(1) + data(0..12) + padding
// len 为 header 之后的命令数据长度（不含补齐字节），整帧补齐到 4 字节边界
// 构造后不再修改
type Frame []byte

const (
	headerLen      = 4
	paramHeaderLen = 4
	// MinFrameLen 命令帧/通知帧的最小长度
	MinFrameLen = headerLen + paramHeaderLen
)

// Destination 目标设备ID
func (f Frame) Destination() uint8 { return f[0] }

// Length 声明的命令数据长度
func (f Frame) Length() int { return int(f[1]) }

// Command 命令ID
func (f Frame) Command() uint8 { return f[2] }

// Address 参数地址
func (f Frame) Address() Address { return Address{Category: f[4], Parameter: f[5]} }

// DataType 载荷类型
func (f Frame) DataType() DataType { return DataType(f[6]) }

// Operation 操作码
func (f Frame) Operation() uint8 { return f[7] }

// Payload 参数头之后的有效数据（不含补齐）
func (f Frame) Payload() []byte {
	end := headerLen + f.Length()
	if end > len(f) {
		end = len(f)
	}
	return f[MinFrameLen:end]
}

// Key 合并键：同一键的帧互相覆盖
func (f Frame) Key() Key {
	k := Key{Destination: f.Destination(), Command: f.Command()}
	if k.Command == CommandSet {
		k.Address = f.Address()
		k.HasAddress = true
	}
	return k
}

// Key 合并键，由 destination + command (+ category.parameter) 构成
type Key struct {
	Destination uint8
	Command     uint8
	Address     Address
	HasAddress  bool
}

func (k Key) String() string {
	if !k.HasAddress {
		return fmt.Sprintf("%d.%d.", k.Destination, k.Command)
	}
	return fmt.Sprintf("%d.%d.%s", k.Destination, k.Command, k.Address)
}

// newFrame 分配并写入 header 与参数头，返回的切片已补齐到 4 字节
func newFrame(addr Address, typ DataType, dataLen int) Frame {
	cmdLen := paramHeaderLen + dataLen
	total := headerLen + cmdLen
	if pad := total % 4; pad != 0 {
		total += 4 - pad
	}
	b := make(Frame, total)
	b[0] = BroadcastDevice
	b[1] = byte(cmdLen)
	b[2] = CommandSet
	b[3] = 0x00
	b[4] = addr.Category
	b[5] = addr.Parameter
	b[6] = byte(typ)
	b[7] = OperationAssign
	return b
}
