package service

import (
	"errors"
	"time"
)

// ErrNotFound 目标记录不存在
var ErrNotFound = errors.New("记录不存在")

// ErrNoMedia 节目没有任何可推导时长的媒体
var ErrNoMedia = errors.New("节目没有可用的媒体，无法初始化时间线")

// ValidationError 请求形状不合法
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// ConflictError 乐观并发校验失败，携带服务端当前的更新时间
type ConflictError struct {
	ServerUpdatedAt time.Time
}

func (e *ConflictError) Error() string {
	return "时间线已被其他会话修改，请重新加载"
}
