package bcs

import (
	"errors"
	"fmt"
)

var (
	ErrShortFrame      = errors.New("short frame")
	ErrUnknownDataType = errors.New("unknown data type")
	ErrTypeMismatch    = errors.New("data type mismatch")
	// ErrNotBroadcast 非广播来源的通知，直接忽略，不属于解码错误
	ErrNotBroadcast = errors.New("not a broadcast notification")
)

// DecodeError 结构性协议错误（帧过短、类型未知/不匹配）
type DecodeError struct {
	Address Address
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Address, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FilteredError 领域过滤：读数被判定为无效而丢弃，不是解码错误
type FilteredError struct {
	Address Address
	Reason  string
}

func (e *FilteredError) Error() string {
	return fmt.Sprintf("filtered %s: %s", e.Address, e.Reason)
}

// IsFiltered 判断是否为领域过滤
func IsFiltered(err error) bool {
	var fe *FilteredError
	return errors.As(err, &fe)
}

// IsDecodeError 判断是否为结构性解码错误
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
