package pathhelper

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var unsafeCharPattern = regexp.MustCompile(`[^a-zA-Z0-9\p{Han}_\-]+`)

// SanitizeTitle 把标题规整为文件名安全的片段。
// 先做 NFKC 归一化（全角转半角等），再替换不安全字符。
func SanitizeTitle(title string) string {
	normalized := norm.NFKC.String(title)
	safe := unsafeCharPattern.ReplaceAllString(normalized, "_")
	safe = strings.Trim(safe, "_")
	if len(safe) > 80 {
		safe = safe[:80]
	}
	return safe
}

// FormatTag 画幅格式的文件名形式，如 16:9 → 16x9
func FormatTag(format string) string {
	return strings.ReplaceAll(format, ":", "x")
}

// ArtifactFileName 渲染产物文件名
func ArtifactFileName(clipID uint, format string) string {
	return fmt.Sprintf("clip_%d_%s.mp4", clipID, FormatTag(format))
}

// PosterFileName 渲染产物封面图文件名
func PosterFileName(clipID uint, format string) string {
	return fmt.Sprintf("clip_%d_%s_poster.png", clipID, FormatTag(format))
}

// HasVideoExt 是否为支持导入的视频扩展名
func HasVideoExt(path string) bool {
	switch strings.ToLower(ext(path)) {
	case ".mp4", ".mov", ".mkv", ".webm":
		return true
	}
	return false
}

// HasAudioExt 是否为支持导入的音频扩展名
func HasAudioExt(path string) bool {
	switch strings.ToLower(ext(path)) {
	case ".mp3", ".wav", ".m4a", ".flac":
		return true
	}
	return false
}

func ext(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i:]
	}
	return ""
}
