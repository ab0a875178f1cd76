package render

import (
	"sort"

	"clip-forge/app/model"
)

// WordGroup 一组连续显示的字幕词，区间左闭右开 [Start, End)
type WordGroup struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// breakTolerance 说话人分段边界与词开始时间的对齐容差（秒）
const breakTolerance = 0.010

// GroupWords 把 wordCount 个词切分为字幕显示组。
// 返回的分组有序、互不重叠且完整覆盖 [0, wordCount)。
// 每个 break 索引处必定开始新的一组，任何分组都不会跨越 break。
func GroupWords(wordCount, wordsPerGroup int, breakIndices []int) []WordGroup {
	if wordCount <= 0 {
		return nil
	}
	if wordsPerGroup < 1 {
		wordsPerGroup = 1
	}

	breaks := normalizeBreaks(breakIndices, wordCount)

	// 分段边界：起点、各 break、终点
	bounds := make([]int, 0, len(breaks)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, breaks...)
	bounds = append(bounds, wordCount)

	var groups []WordGroup
	for i := 0; i < len(bounds)-1; i++ {
		for start := bounds[i]; start < bounds[i+1]; start += wordsPerGroup {
			end := start + wordsPerGroup
			if end > bounds[i+1] {
				end = bounds[i+1]
			}
			groups = append(groups, WordGroup{Start: start, End: end})
		}
	}
	return groups
}

// normalizeBreaks 去重、排序并过滤到开区间 (0, wordCount)
func normalizeBreaks(breakIndices []int, wordCount int) []int {
	if len(breakIndices) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(breakIndices))
	breaks := make([]int, 0, len(breakIndices))
	for _, b := range breakIndices {
		if b <= 0 || b >= wordCount {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		breaks = append(breaks, b)
	}
	sort.Ints(breaks)
	return breaks
}

// FindGroup 二分查找包含指定词索引的分组
func FindGroup(groups []WordGroup, wordIndex int) (WordGroup, bool) {
	i := sort.Search(len(groups), func(i int) bool {
		return groups[i].End > wordIndex
	})
	if i < len(groups) && groups[i].Start <= wordIndex && wordIndex < groups[i].End {
		return groups[i], true
	}
	return WordGroup{}, false
}

// DeriveBreakIndices 根据说话人分段推导分组断点。
// segments 使用节目内绝对时间，words 使用片段相对时间。
// 对第一段之后的每个分段边界，定位第一个开始时间不早于
// (分段开始时间 - clipStartTime) 的词（含 10ms 容差），索引非零时记为断点。
func DeriveBreakIndices(segments []model.SpeakerSegment, words []model.WordTiming, clipStartTime float64) []int {
	if len(segments) <= 1 || len(words) == 0 {
		return nil
	}

	var breaks []int
	for _, seg := range segments[1:] {
		target := seg.Start - clipStartTime - breakTolerance
		idx := sort.Search(len(words), func(i int) bool {
			return words[i].Start >= target
		})
		if idx > 0 && idx < len(words) {
			breaks = append(breaks, idx)
		}
	}
	return normalizeBreaks(breaks, len(words))
}
