package render

import (
	"regexp"
)

// 跨进程边界的错误信息需要脱敏：文件路径、带凭证的连接串、长令牌。
// 完整错误只保留在内部日志中。
var (
	credentialURLPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9+.\-]*://[^\s/@]+@[^\s"']+`)
	windowsPathPattern   = regexp.MustCompile(`[a-zA-Z]:\\[^\s"':]+`)
	unixPathPattern      = regexp.MustCompile(`(/[\w.\-]+){2,}/?`)
	longTokenPattern     = regexp.MustCompile(`\b[A-Za-z0-9+/_\-]{24,}={0,2}\b`)
)

// SanitizeMessage 对错误文本脱敏
func SanitizeMessage(msg string) string {
	if msg == "" {
		return ""
	}
	msg = credentialURLPattern.ReplaceAllString(msg, "[已脱敏的连接串]")
	msg = windowsPathPattern.ReplaceAllString(msg, "[已脱敏的路径]")
	msg = unixPathPattern.ReplaceAllString(msg, "[已脱敏的路径]")
	msg = longTokenPattern.ReplaceAllString(msg, "[已脱敏的令牌]")
	return msg
}

// SanitizeError 对错误脱敏，nil 返回空字符串
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeMessage(err.Error())
}
