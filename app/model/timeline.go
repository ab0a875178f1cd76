package model

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Track 类型常量
const (
	TrackTypeVideoMain    = "video-main"
	TrackTypeAudioMain    = "audio-main"
	TrackTypeCaptions     = "captions"
	TrackTypeVideoOverlay = "video-overlay"
	TrackTypeSpeaker      = "speaker"
)

// Item 媒体引用类型常量
const (
	MediaTypeVideoSource  = "video-source"
	MediaTypeEpisodeAudio = "episode-audio"
)

// 多机位布局模式常量
const (
	LayoutModeActiveSpeaker = "active-speaker"
	LayoutModeGrid          = "grid"
)

// Timeline 时间线文档，与节目一一对应，是渲染的权威编辑状态
type Timeline struct {
	ID             uint              `json:"id" gorm:"primarykey"`
	EpisodeID      uint              `json:"episode_id" gorm:"uniqueIndex;not null;comment:所属节目ID"`
	Tracks         TrackList         `json:"tracks" gorm:"type:json;comment:轨道列表"`
	Duration       float64           `json:"duration" gorm:"comment:时间线时长(秒)"`
	FPS            int               `json:"fps" gorm:"default:30;comment:帧率"`
	Format         string            `json:"format" gorm:"size:10;default:16:9;comment:画幅格式"`
	Version        int               `json:"version" gorm:"default:1;comment:展示用版本号"`
	MulticamConfig *MulticamConfig   `json:"multicam_config" gorm:"type:json;comment:多机位配置"`
	CaptionStyle   *CaptionStyle     `json:"caption_style" gorm:"type:json;comment:字幕样式"`
	Background     *BackgroundConfig `json:"background" gorm:"type:json;comment:背景配置"`
	Markers        MarkerList        `json:"markers" gorm:"type:json;comment:标记点"`
	ClipMarkers    MarkerList        `json:"clip_markers" gorm:"type:json;comment:剪辑标记点"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	DeletedAt      gorm.DeletedAt    `json:"-" gorm:"index"`
}

// TableName 指定表名
func (Timeline) TableName() string {
	return "timelines"
}

// Track 时间线内的一条轨道，顺序以 Order 字段为准而非数组位置
type Track struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Order int    `json:"order"`
	Items []Item `json:"items"`
}

// Item 轨道上放置的一个片段引用
type Item struct {
	ID            string  `json:"id"`
	StartTime     float64 `json:"start_time"`
	Duration      float64 `json:"duration"`
	SourceIn      float64 `json:"source_in"`
	SourceOut     float64 `json:"source_out"`
	MediaID       string  `json:"media_id"`
	MediaType     string  `json:"media_type"`
	PositionX     float64 `json:"position_x"`
	PositionY     float64 `json:"position_y"`
	Scale         float64 `json:"scale"`
	Rotation      float64 `json:"rotation"`
	Opacity       float64 `json:"opacity"`
	Volume        float64 `json:"volume"`
	FadeIn        float64 `json:"fade_in"`
	FadeOut       float64 `json:"fade_out"`
	PlaybackSpeed float64 `json:"playback_speed"`
}

// TrackList 轨道 JSON 列
type TrackList []Track

func (t TrackList) Value() (driver.Value, error) { return jsonValue(t) }
func (t *TrackList) Scan(value any) error        { return jsonScan(t, value) }

// SwitchingInterval 多机位切换区间
type SwitchingInterval struct {
	StartTime     float64 `json:"start_time"`
	EndTime       float64 `json:"end_time"`
	VideoSourceID uint    `json:"video_source_id"`
}

// MulticamConfig 多机位配置，初始化时仅播种占位区间，真实切换计划在渲染时计算。
// ManualOverrides 为手动锁定的机位区间，优先级高于自动推导。
type MulticamConfig struct {
	LayoutMode          string              `json:"layout_mode"`
	SwitchingIntervals  []SwitchingInterval `json:"switching_intervals"`
	ManualOverrides     []SwitchingInterval `json:"manual_overrides,omitempty"`
	DefaultSourceID     uint                `json:"default_source_id"`
	SpeakerOverlay      bool                `json:"speaker_overlay"`
	SpeakerOverlayStyle string              `json:"speaker_overlay_style,omitempty"`
}

func (m *MulticamConfig) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return jsonValue(m)
}
func (m *MulticamConfig) Scan(value any) error { return jsonScan(m, value) }

// CaptionStyle 字幕样式
type CaptionStyle struct {
	FontFamily     string `json:"font_family"`
	FontSize       int    `json:"font_size"`
	Position       string `json:"position"`
	TextColor      string `json:"text_color"`
	HighlightColor string `json:"highlight_color"`
	WordsPerGroup  int    `json:"words_per_group"`
	SpeakerBreaks  bool   `json:"speaker_breaks"`
	AnimationURL   string `json:"animation_url,omitempty"`
}

func (c *CaptionStyle) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return jsonValue(c)
}
func (c *CaptionStyle) Scan(value any) error { return jsonScan(c, value) }

// BackgroundConfig 背景配置
type BackgroundConfig struct {
	Type          string `json:"type"` // gradient, color, image
	Color         string `json:"color,omitempty"`
	GradientStart string `json:"gradient_start,omitempty"`
	GradientEnd   string `json:"gradient_end,omitempty"`
	ImageURL      string `json:"image_url,omitempty"`
}

func (b *BackgroundConfig) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return jsonValue(b)
}
func (b *BackgroundConfig) Scan(value any) error { return jsonScan(b, value) }

// DefaultBackground 默认渐变背景
func DefaultBackground() *BackgroundConfig {
	return &BackgroundConfig{
		Type:          "gradient",
		GradientStart: "#1a1a2e",
		GradientEnd:   "#16213e",
	}
}

// SubtitleConfig 副标题（节目/片段标题条）配置
type SubtitleConfig struct {
	Enabled  bool   `json:"enabled"`
	Text     string `json:"text,omitempty"`
	Position string `json:"position,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`
}

func (s *SubtitleConfig) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return jsonValue(s)
}
func (s *SubtitleConfig) Scan(value any) error { return jsonScan(s, value) }

// Marker 时间线标记点
type Marker struct {
	ID    string  `json:"id"`
	Time  float64 `json:"time"`
	Label string  `json:"label,omitempty"`
	Color string  `json:"color,omitempty"`
}

// MarkerList 标记点 JSON 列
type MarkerList []Marker

func (m MarkerList) Value() (driver.Value, error) { return jsonValue(m) }
func (m *MarkerList) Scan(value any) error        { return jsonScan(m, value) }
