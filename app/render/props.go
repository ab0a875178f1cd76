package render

import (
	"fmt"
	"math"
	"sort"

	"clip-forge/app/model"
)

// PropSource 渲染指令中的机位描述
type PropSource struct {
	ID           uint    `json:"id"`
	SourceType   string  `json:"source_type"`
	FilePath     string  `json:"file_path"`
	SyncOffsetMs int     `json:"sync_offset_ms"`
	CropX        int     `json:"crop_x"`
	CropY        int     `json:"crop_y"`
	PersonLabel  string  `json:"person_label,omitempty"`
	Duration     float64 `json:"duration"`
}

// ClipProps 帧精度的渲染指令包。
// 预览与服务端渲染都通过 BuildClipProps 构建同一个结构，
// 两条路径对相同输入必须产出逐字段一致的结果。
type ClipProps struct {
	ClipID           uint                    `json:"clip_id"`
	Format           string                  `json:"format"`
	Width            int                     `json:"width"`
	Height           int                     `json:"height"`
	FPS              int                     `json:"fps"`
	DurationInFrames int                     `json:"duration_in_frames"`
	Tracks           []model.Track           `json:"tracks"`
	Words            []model.WordTiming      `json:"words"`
	WordGroups       []WordGroup             `json:"word_groups"`
	CaptionStyle     *model.CaptionStyle     `json:"caption_style,omitempty"`
	Background       *model.BackgroundConfig `json:"background"`
	Subtitle         *model.SubtitleConfig   `json:"subtitle,omitempty"`
	Sources          []PropSource            `json:"sources"`
	SwitchingFrames  []FrameSpan             `json:"switching_frames,omitempty"`
	AudioPath        string                  `json:"audio_path"`
	SpeakerOverlay   bool                    `json:"speaker_overlay"`
}

// BuildInput 构建渲染指令所需的全部状态
type BuildInput struct {
	Clip           *model.Clip
	Episode        *model.Episode
	Timeline       *model.Timeline
	Sources        []model.VideoSource // 按 DisplayOrder 排序
	Format         string
	Overrides      *model.RenderOverrides
	WordsPerGroup  int // 样式与覆盖都未指定时的默认分组词数
	HoldPreviousMs int
	MinShotMs      int
	PreRollMs      int
}

// BuildClipProps 把时间线/片段状态转换为帧精度的渲染指令。
// 纯函数：相同输入必须产出相同结果。
func BuildClipProps(in BuildInput) (*ClipProps, error) {
	if in.Clip == nil {
		return nil, fmt.Errorf("缺少片段")
	}
	if in.Episode == nil {
		return nil, fmt.Errorf("缺少节目")
	}
	width, height, ok := model.FormatDimensions(in.Format)
	if !ok {
		return nil, fmt.Errorf("不支持的画幅格式: %s", in.Format)
	}
	if in.Clip.Duration() <= 0 {
		return nil, fmt.Errorf("片段时长无效")
	}

	fps := 30
	if in.Timeline != nil && in.Timeline.FPS > 0 {
		fps = in.Timeline.FPS
	}

	props := &ClipProps{
		ClipID:           in.Clip.ID,
		Format:           in.Format,
		Width:            width,
		Height:           height,
		FPS:              fps,
		DurationInFrames: int(math.Round(in.Clip.Duration() * float64(fps))),
	}

	// 样式解析：覆盖 → 片段 → 时间线
	props.CaptionStyle = resolveCaptionStyle(in)
	props.Background = resolveBackground(in)
	props.Subtitle = resolveSubtitle(in)

	// 词时间轴：覆盖优先，统一换算为片段相对时间
	words := in.Clip.Words
	if in.Overrides != nil && len(in.Overrides.Words) > 0 {
		words = in.Overrides.Words
	}
	props.Words = relativeWords(words, in.Clip.StartTime)

	// 字幕分组
	wordsPerGroup := in.WordsPerGroup
	if props.CaptionStyle != nil && props.CaptionStyle.WordsPerGroup > 0 {
		wordsPerGroup = props.CaptionStyle.WordsPerGroup
	}
	if in.Overrides != nil && in.Overrides.WordsPerGroup > 0 {
		wordsPerGroup = in.Overrides.WordsPerGroup
	}
	if wordsPerGroup < 1 {
		wordsPerGroup = 4
	}

	var breaks []int
	if props.CaptionStyle != nil && props.CaptionStyle.SpeakerBreaks {
		segments := ResolveSegments(in.Clip, in.Episode)
		breaks = DeriveBreakIndices(segments, props.Words, in.Clip.StartTime)
	}
	props.WordGroups = GroupWords(len(props.Words), wordsPerGroup, breaks)

	// 轨道按 order 字段排序，数组位置不具有权威性
	if in.Timeline != nil {
		props.Tracks = sortedTracks(in.Timeline.Tracks)
	}

	// 机位与多机位切换
	speakers := speakerSources(in.Sources)
	props.Sources = propSources(in.Sources)
	props.AudioPath = resolveAudioPath(in.Clip, in.Episode, speakers)

	if in.Timeline != nil && in.Timeline.MulticamConfig != nil {
		mc := in.Timeline.MulticamConfig
		props.SpeakerOverlay = mc.SpeakerOverlay
		if len(speakers) >= 2 {
			props.SwitchingFrames = planClipSwitching(in, mc, speakers, fps)
		} else {
			// 单机位时播种的占位区间即为最终计划
			props.SwitchingFrames = seededFrames(mc, in.Clip, fps)
		}
	}

	return props, nil
}

// ResolveSegments 选择断点推导所用的说话人分段：
// 片段级分段只要有任意一条携带说话人标识就优先使用，
// 否则回退到整期转写的分段。该回退顺序影响分组确定性，不可调整。
func ResolveSegments(clip *model.Clip, episode *model.Episode) []model.SpeakerSegment {
	for i := range clip.Segments {
		if clip.Segments[i].HasSpeaker() {
			return clip.Segments
		}
	}
	return episode.TranscriptSegments
}

func resolveCaptionStyle(in BuildInput) *model.CaptionStyle {
	var src *model.CaptionStyle
	switch {
	case in.Overrides != nil && in.Overrides.CaptionStyle != nil:
		src = in.Overrides.CaptionStyle
	case in.Clip.CaptionStyle != nil:
		src = in.Clip.CaptionStyle
	case in.Timeline != nil && in.Timeline.CaptionStyle != nil:
		src = in.Timeline.CaptionStyle
	}
	if src == nil {
		return nil
	}
	style := *src
	return &style
}

func resolveBackground(in BuildInput) *model.BackgroundConfig {
	var src *model.BackgroundConfig
	switch {
	case in.Overrides != nil && in.Overrides.Background != nil:
		src = in.Overrides.Background
	case in.Clip.Background != nil:
		src = in.Clip.Background
	case in.Timeline != nil && in.Timeline.Background != nil:
		src = in.Timeline.Background
	default:
		return model.DefaultBackground()
	}
	bg := *src
	return &bg
}

func resolveSubtitle(in BuildInput) *model.SubtitleConfig {
	var src *model.SubtitleConfig
	switch {
	case in.Overrides != nil && in.Overrides.Subtitle != nil:
		src = in.Overrides.Subtitle
	case in.Clip.Subtitle != nil:
		src = in.Clip.Subtitle
	}
	if src == nil {
		return nil
	}
	sub := *src
	return &sub
}

// relativeWords 把绝对时间的词换算为片段相对时间，负值截断到0
func relativeWords(words []model.WordTiming, clipStart float64) []model.WordTiming {
	out := make([]model.WordTiming, 0, len(words))
	for _, w := range words {
		rw := w
		rw.Start = w.Start - clipStart
		rw.End = w.End - clipStart
		if rw.End <= 0 {
			continue
		}
		if rw.Start < 0 {
			rw.Start = 0
		}
		out = append(out, rw)
	}
	return out
}

// sortedTracks 返回按 order 字段稳定排序的轨道副本
func sortedTracks(tracks model.TrackList) []model.Track {
	out := make([]model.Track, len(tracks))
	copy(out, tracks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

func speakerSources(sources []model.VideoSource) []model.VideoSource {
	var out []model.VideoSource
	for _, s := range sources {
		if s.IsSpeaker() {
			out = append(out, s)
		}
	}
	return out
}

func propSources(sources []model.VideoSource) []PropSource {
	out := make([]PropSource, 0, len(sources))
	for _, s := range sources {
		out = append(out, PropSource{
			ID:           s.ID,
			SourceType:   s.SourceType,
			FilePath:     s.FilePath,
			SyncOffsetMs: s.SyncOffsetMs,
			CropX:        s.CropX,
			CropY:        s.CropY,
			PersonLabel:  s.PersonLabel,
			Duration:     s.DurationSeconds,
		})
	}
	return out
}

// resolveAudioPath 音频来源优先级：片段指定机位 → 首个带独立音轨的机位 → 节目音频
func resolveAudioPath(clip *model.Clip, episode *model.Episode, speakers []model.VideoSource) string {
	if clip.PrimaryAudioSource != 0 {
		for _, s := range speakers {
			if s.ID == clip.PrimaryAudioSource {
				if s.AudioPath != "" {
					return s.AudioPath
				}
				return s.FilePath
			}
		}
	}
	for _, s := range speakers {
		if s.AudioPath != "" {
			return s.AudioPath
		}
	}
	path, _ := episode.PrimaryAudioPath()
	return path
}

// planClipSwitching 对 2+ 机位的片段计算真实切换计划
func planClipSwitching(in BuildInput, mc *model.MulticamConfig, speakers []model.VideoSource, fps int) []FrameSpan {
	defaultID := mc.DefaultSourceID
	if defaultID == 0 {
		defaultID = speakers[0].ID
	}

	switchSources := make([]SwitchSource, 0, len(speakers))
	for _, s := range speakers {
		switchSources = append(switchSources, SwitchSource{
			ID:          s.ID,
			PersonID:    s.PersonID,
			PersonLabel: s.PersonLabel,
		})
	}

	overrides := make([]SwitchOverride, 0, len(mc.ManualOverrides))
	for _, ov := range mc.ManualOverrides {
		overrides = append(overrides, SwitchOverride{
			Start:    ov.StartTime,
			End:      ov.EndTime,
			SourceID: ov.VideoSourceID,
		})
	}

	spans := PlanSwitching(SwitchPlanInput{
		ClipStart:       in.Clip.StartTime,
		ClipEnd:         in.Clip.EndTime,
		Segments:        ResolveSegments(in.Clip, in.Episode),
		Sources:         switchSources,
		DefaultSourceID: defaultID,
		HoldPreviousMs:  in.HoldPreviousMs,
		MinShotMs:       in.MinShotMs,
		PreRollMs:       in.PreRollMs,
		Overrides:       overrides,
	})
	return ToFrameSpans(spans, in.Clip.StartTime, fps)
}

// seededFrames 把初始化时播种的占位区间裁剪到片段范围并转为帧域
func seededFrames(mc *model.MulticamConfig, clip *model.Clip, fps int) []FrameSpan {
	var spans []SwitchSpan
	for _, iv := range mc.SwitchingIntervals {
		start, end := iv.StartTime, iv.EndTime
		if start < clip.StartTime {
			start = clip.StartTime
		}
		if end > clip.EndTime {
			end = clip.EndTime
		}
		if end <= start {
			continue
		}
		spans = append(spans, SwitchSpan{Start: start, End: end, SourceID: iv.VideoSourceID})
	}
	return ToFrameSpans(spans, clip.StartTime, fps)
}
