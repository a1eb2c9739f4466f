package bcs

// Kind 解码值种类
type Kind string

const (
	KindAperture     Kind = "aperture"
	KindRecFormat    Kind = "recording_format"
	KindWhiteBalance Kind = "white_balance"
	KindShutterAngle Kind = "shutter_angle"
	KindShutterSpeed Kind = "shutter_speed"
	KindGain         Kind = "gain"
	KindISO          Kind = "iso"
	KindNDFilter     Kind = "nd_filter"
	KindUnparsed     Kind = "unparsed"
)

// Value 解码后的参数值（封闭联合类型），只由 Decode 产生
type Value interface {
	Address() Address
	Kind() Kind
	isValue()
}

// Aperture 归一化光圈
type Aperture struct {
	Normalized float64 `json:"normalized"`
}

// RecordingFormat 录制格式；SensorFPS 必有，其余字段在完整载荷时填充
type RecordingFormat struct {
	SensorFPS int  `json:"sensor_fps"`
	FileFPS   int  `json:"file_fps,omitempty"`
	Width     int  `json:"width,omitempty"`
	Height    int  `json:"height,omitempty"`
	FileMRate bool `json:"file_m_rate,omitempty"`
	// SensorMRate 传感器帧率为 M-rate（/1.001）
	SensorMRate bool `json:"sensor_m_rate,omitempty"`
	Interlaced  bool `json:"interlaced,omitempty"`
}

// WhiteBalance 色温（K）与色调
type WhiteBalance struct {
	Temperature int `json:"temperature"`
	Tint        int `json:"tint"`
}

// ShutterAngle 快门角度（度，0.01 精度）
type ShutterAngle struct {
	Degrees float64 `json:"degrees"`
}

// ShutterSpeed 快门速度 1/x 的分母
type ShutterSpeed struct {
	Denominator int32 `json:"denominator"`
}

// Gain 增益 dB
type Gain struct {
	DB int8 `json:"db"`
}

// ISO 感光度
type ISO struct {
	Value int32 `json:"value"`
}

// NDFilter ND 档位
type NDFilter struct {
	Stop float64 `json:"stop"`
}

// Unparsed 未识别地址，仅保留原始载荷
type Unparsed struct {
	Addr     Address  `json:"-"`
	DataType DataType `json:"data_type"`
	Payload  []byte   `json:"payload"`
}

func (Aperture) Address() Address        { return AddrAperture }
func (RecordingFormat) Address() Address { return AddrRecFormat }
func (WhiteBalance) Address() Address    { return AddrManualWB }
func (ShutterAngle) Address() Address    { return AddrShutterAngle }
func (ShutterSpeed) Address() Address    { return AddrShutterSpeed }
func (Gain) Address() Address            { return AddrGain }
func (ISO) Address() Address             { return AddrISO }
func (NDFilter) Address() Address        { return AddrNDFilter }
func (u Unparsed) Address() Address      { return u.Addr }

func (Aperture) Kind() Kind        { return KindAperture }
func (RecordingFormat) Kind() Kind { return KindRecFormat }
func (WhiteBalance) Kind() Kind    { return KindWhiteBalance }
func (ShutterAngle) Kind() Kind    { return KindShutterAngle }
func (ShutterSpeed) Kind() Kind    { return KindShutterSpeed }
func (Gain) Kind() Kind            { return KindGain }
func (ISO) Kind() Kind             { return KindISO }
func (NDFilter) Kind() Kind        { return KindNDFilter }
func (Unparsed) Kind() Kind        { return KindUnparsed }

func (Aperture) isValue()        {}
func (RecordingFormat) isValue() {}
func (WhiteBalance) isValue()    {}
func (ShutterAngle) isValue()    {}
func (ShutterSpeed) isValue()    {}
func (Gain) isValue()            {}
func (ISO) isValue()             {}
func (NDFilter) isValue()        {}
func (Unparsed) isValue()        {}
