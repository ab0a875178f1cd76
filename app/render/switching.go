package render

import (
	"math"
	"strings"

	"clip-forge/app/model"
)

// SwitchSpan 一段连续使用同一机位的时间区间，时间为节目内绝对时间(秒)
type SwitchSpan struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	SourceID uint    `json:"source_id"`
}

// FrameSpan 渲染帧域的切换区间，帧号相对片段起点
type FrameSpan struct {
	StartFrame int  `json:"start_frame"`
	EndFrame   int  `json:"end_frame"`
	SourceID   uint `json:"source_id"`
}

// SwitchSource 参与切换的候选机位
type SwitchSource struct {
	ID          uint
	PersonID    string
	PersonLabel string
}

// SwitchOverride 手动锁定区间，优先级高于自动推导
type SwitchOverride struct {
	Start    float64
	End      float64
	SourceID uint
}

// SwitchPlanInput 切换计划的全部输入
type SwitchPlanInput struct {
	ClipStart       float64
	ClipEnd         float64
	Segments        []model.SpeakerSegment
	Sources         []SwitchSource
	DefaultSourceID uint
	HoldPreviousMs  int
	MinShotMs       int
	PreRollMs       int
	Overrides       []SwitchOverride
}

// PlanSwitching 生成有序、无重叠、无缝隙且完整覆盖 [ClipStart, ClipEnd) 的切换计划。
// 顺序：分段映射 → 合并同源 → 停顿保持 → 最短镜头吸收 → 手动锁定 → 切镜提前。
func PlanSwitching(in SwitchPlanInput) []SwitchSpan {
	if in.ClipEnd <= in.ClipStart {
		return nil
	}

	spans := mapSegments(in)
	spans = mergeAdjacent(spans)
	spans = applyHoldPrevious(spans, float64(in.HoldPreviousMs)/1000.0, in.DefaultSourceID)
	spans = mergeAdjacent(spans)
	spans = applyMinShot(spans, float64(in.MinShotMs)/1000.0)
	spans = mergeAdjacent(spans)
	for _, ov := range in.Overrides {
		spans = applyOverride(spans, ov, in.ClipStart, in.ClipEnd)
	}
	spans = mergeAdjacent(spans)
	spans = applyPreRoll(spans, float64(in.PreRollMs)/1000.0)
	return spans
}

// mapSegments 把说话人分段映射到机位，静音与未匹配区间落到默认机位
func mapSegments(in SwitchPlanInput) []SwitchSpan {
	var spans []SwitchSpan
	cursor := in.ClipStart

	for _, seg := range in.Segments {
		start, end := seg.Start, seg.End
		if end <= in.ClipStart || start >= in.ClipEnd {
			continue
		}
		if start < in.ClipStart {
			start = in.ClipStart
		}
		if end > in.ClipEnd {
			end = in.ClipEnd
		}
		// 分段重叠时以先到者为准
		if start < cursor {
			start = cursor
		}
		if end <= start {
			continue
		}
		if start > cursor {
			spans = append(spans, SwitchSpan{Start: cursor, End: start, SourceID: in.DefaultSourceID})
		}
		spans = append(spans, SwitchSpan{Start: start, End: end, SourceID: matchSource(seg, in.Sources, in.DefaultSourceID)})
		cursor = end
	}

	if cursor < in.ClipEnd {
		spans = append(spans, SwitchSpan{Start: cursor, End: in.ClipEnd, SourceID: in.DefaultSourceID})
	}
	return spans
}

// matchSource 按说话人ID或显示名匹配机位
func matchSource(seg model.SpeakerSegment, sources []SwitchSource, defaultID uint) uint {
	for _, src := range sources {
		if seg.PersonID != "" && seg.PersonID == src.PersonID {
			return src.ID
		}
	}
	for _, src := range sources {
		if seg.Speaker == "" {
			continue
		}
		if strings.EqualFold(seg.Speaker, src.PersonID) || strings.EqualFold(seg.Speaker, src.PersonLabel) {
			return src.ID
		}
	}
	return defaultID
}

// mergeAdjacent 合并相邻同源区间
func mergeAdjacent(spans []SwitchSpan) []SwitchSpan {
	if len(spans) < 2 {
		return spans
	}
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.SourceID == last.SourceID {
			last.End = s.End
		} else {
			out = append(out, s)
		}
	}
	return out
}

// applyHoldPrevious 同一机位两段发言之间的短暂停顿不切回默认机位
func applyHoldPrevious(spans []SwitchSpan, holdSec float64, defaultID uint) []SwitchSpan {
	for i := 1; i < len(spans)-1; i++ {
		s := &spans[i]
		if s.SourceID != defaultID {
			continue
		}
		if s.End-s.Start >= holdSec {
			continue
		}
		if spans[i-1].SourceID == spans[i+1].SourceID && spans[i-1].SourceID != defaultID {
			s.SourceID = spans[i-1].SourceID
		}
	}
	return spans
}

// applyMinShot 短于阈值的区间被并入前一个区间，避免快速闪切
func applyMinShot(spans []SwitchSpan, minSec float64) []SwitchSpan {
	if len(spans) < 2 {
		return spans
	}
	out := make([]SwitchSpan, 0, len(spans))
	for _, s := range spans {
		if len(out) > 0 && s.End-s.Start < minSec {
			out[len(out)-1].End = s.End
		} else {
			out = append(out, s)
		}
	}
	return out
}

// applyOverride 手动锁定区间，按边界拆分自动推导的区间
func applyOverride(spans []SwitchSpan, ov SwitchOverride, clipStart, clipEnd float64) []SwitchSpan {
	start, end := ov.Start, ov.End
	if start < clipStart {
		start = clipStart
	}
	if end > clipEnd {
		end = clipEnd
	}
	if end <= start {
		return spans
	}

	out := make([]SwitchSpan, 0, len(spans)+2)
	inserted := false
	for _, s := range spans {
		if s.End <= start || s.Start >= end {
			out = append(out, s)
			continue
		}
		if s.Start < start {
			out = append(out, SwitchSpan{Start: s.Start, End: start, SourceID: s.SourceID})
		}
		if !inserted {
			out = append(out, SwitchSpan{Start: start, End: end, SourceID: ov.SourceID})
			inserted = true
		}
		if s.End > end {
			out = append(out, SwitchSpan{Start: end, End: s.End, SourceID: s.SourceID})
		}
	}
	return out
}

// applyPreRoll 把每个切点提前固定的提前量，使新机位略早于开口出现；
// 提前量被钳制在前一个切点之内
func applyPreRoll(spans []SwitchSpan, preSec float64) []SwitchSpan {
	if preSec <= 0 || len(spans) < 2 {
		return spans
	}
	for i := 1; i < len(spans); i++ {
		newStart := spans[i].Start - preSec
		if newStart < spans[i-1].Start {
			newStart = spans[i-1].Start
		}
		spans[i].Start = newStart
		spans[i-1].End = newStart
	}
	// 被完全挤掉的区间移除
	out := spans[:0]
	for _, s := range spans {
		if s.End > s.Start {
			out = append(out, s)
		}
	}
	return out
}

// ToFrameSpans 转换为渲染帧域：减去片段起点、乘以帧率并取整。
// 每个区间的起始帧取自前一区间的结束帧，保证无缝隙。
func ToFrameSpans(spans []SwitchSpan, clipStart float64, fps int) []FrameSpan {
	if len(spans) == 0 || fps <= 0 {
		return nil
	}
	out := make([]FrameSpan, 0, len(spans))
	prevEnd := 0
	for _, s := range spans {
		endFrame := int(math.Round((s.End - clipStart) * float64(fps)))
		if endFrame <= prevEnd {
			// 帧精度下坍缩的区间
			continue
		}
		out = append(out, FrameSpan{StartFrame: prevEnd, EndFrame: endFrame, SourceID: s.SourceID})
		prevEnd = endFrame
	}
	return out
}
