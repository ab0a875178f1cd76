package model

import (
	"database/sql/driver"
	"time"

	"gorm.io/gorm"
)

// Episode 播客节目模型，一期节目是一条渲染流水线的生产单元
type Episode struct {
	ID                 uint        `json:"id" gorm:"primarykey"`
	UserID             uint        `json:"user_id" gorm:"not null;index;comment:所属用户ID"`
	Title              string      `json:"title" gorm:"size:200;not null;comment:节目标题"`
	PodcastName        string      `json:"podcast_name" gorm:"size:200;comment:所属播客名称"`
	AudioPath          string      `json:"audio_path" gorm:"size:500;comment:原始音频路径"`
	AudioDuration      float64     `json:"audio_duration" gorm:"comment:原始音频时长(秒)"`
	MixedAudioPath     string      `json:"mixed_audio_path" gorm:"size:500;comment:混音后音频路径"`
	MixedAudioDuration float64     `json:"mixed_audio_duration" gorm:"comment:混音后音频时长(秒)"`
	TranscriptWords    WordList    `json:"transcript_words" gorm:"type:json;comment:整期转写词时间轴"`
	TranscriptSegments SegmentList `json:"transcript_segments" gorm:"type:json;comment:整期说话人分段"`
	LastModifiedAt     time.Time   `json:"last_modified_at" gorm:"comment:媒体内容最后修改时间"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`

	// 关联关系
	VideoSources []VideoSource `json:"video_sources,omitempty" gorm:"foreignKey:EpisodeID"`
	Clips        []Clip        `json:"clips,omitempty" gorm:"foreignKey:EpisodeID"`
}

// TableName 指定表名
func (Episode) TableName() string {
	return "episodes"
}

// PrimaryAudioPath 返回用于渲染的音频路径，优先使用混音后的音频
func (e *Episode) PrimaryAudioPath() (string, float64) {
	if e.MixedAudioPath != "" {
		return e.MixedAudioPath, e.MixedAudioDuration
	}
	return e.AudioPath, e.AudioDuration
}

// VideoSource 类型常量
const (
	SourceTypeSpeaker = "speaker" // 机位视频
	SourceTypeBroll   = "broll"   // 空镜素材
)

// VideoSource 单个机位/视频输入，媒体导入时创建，渲染管线只读
type VideoSource struct {
	ID              uint    `json:"id" gorm:"primarykey"`
	EpisodeID       uint    `json:"episode_id" gorm:"not null;index;comment:所属节目ID"`
	SourceType      string  `json:"source_type" gorm:"size:20;not null;default:speaker;comment:来源类型(speaker,broll)"`
	FilePath        string  `json:"file_path" gorm:"size:500;not null;comment:媒体文件路径"`
	AudioPath       string  `json:"audio_path" gorm:"size:500;comment:该机位独立音轨路径"`
	DurationSeconds float64 `json:"duration_seconds" gorm:"comment:时长(秒)"`
	SyncOffsetMs    int     `json:"sync_offset_ms" gorm:"default:0;comment:同步偏移(毫秒)"`
	CropX           int     `json:"crop_x" gorm:"default:0;comment:裁剪偏移X"`
	CropY           int     `json:"crop_y" gorm:"default:0;comment:裁剪偏移Y"`
	DisplayOrder    int     `json:"display_order" gorm:"default:0;comment:显示顺序"`
	PersonID        string  `json:"person_id" gorm:"size:64;comment:关联说话人ID"`
	PersonLabel     string  `json:"person_label" gorm:"size:100;comment:说话人显示名"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName 指定表名
func (VideoSource) TableName() string {
	return "video_sources"
}

// IsSpeaker 是否为机位视频
func (vs *VideoSource) IsSpeaker() bool {
	return vs.SourceType == SourceTypeSpeaker
}

// Clip 剪辑片段，渲染任务的主体
type Clip struct {
	ID                 uint              `json:"id" gorm:"primarykey"`
	EpisodeID          uint              `json:"episode_id" gorm:"not null;index;comment:所属节目ID"`
	Title              string            `json:"title" gorm:"size:200;comment:片段标题"`
	StartTime          float64           `json:"start_time" gorm:"comment:片段在节目内的开始时间(秒)"`
	EndTime            float64           `json:"end_time" gorm:"comment:片段在节目内的结束时间(秒)"`
	Words              WordList          `json:"words" gorm:"type:json;comment:片段词时间轴"`
	Segments           SegmentList       `json:"segments" gorm:"type:json;comment:片段说话人分段"`
	CaptionStyle       *CaptionStyle     `json:"caption_style" gorm:"type:json;comment:字幕样式"`
	Background         *BackgroundConfig `json:"background" gorm:"type:json;comment:背景配置"`
	Subtitle           *SubtitleConfig   `json:"subtitle" gorm:"type:json;comment:副标题配置"`
	PrimaryAudioSource uint              `json:"primary_audio_source" gorm:"default:0;comment:指定主音频机位ID(0为未指定)"`
	LastModifiedAt     time.Time         `json:"last_modified_at" gorm:"comment:最后修改时间"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `json:"-" gorm:"index"`
}

// TableName 指定表名
func (Clip) TableName() string {
	return "clips"
}

// Duration 片段时长(秒)
func (c *Clip) Duration() float64 {
	return c.EndTime - c.StartTime
}

// WordTiming 单个词的时间信息，时间为节目内绝对时间(秒)
type WordTiming struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// WordList 词时间轴 JSON 列
type WordList []WordTiming

func (w WordList) Value() (driver.Value, error) { return jsonValue(w) }
func (w *WordList) Scan(value any) error        { return jsonScan(w, value) }

// SpeakerSegment 说话人分段，时间为节目内绝对时间(秒)
type SpeakerSegment struct {
	Speaker  string  `json:"speaker"`
	PersonID string  `json:"person_id,omitempty"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
}

// HasSpeaker 分段是否携带说话人标识
func (s *SpeakerSegment) HasSpeaker() bool {
	return s.Speaker != "" || s.PersonID != ""
}

// SegmentList 说话人分段 JSON 列
type SegmentList []SpeakerSegment

func (s SegmentList) Value() (driver.Value, error) { return jsonValue(s) }
func (s *SegmentList) Scan(value any) error        { return jsonScan(s, value) }
