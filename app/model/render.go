package model

import (
	"time"
)

// RenderJobStatus 渲染任务状态
type RenderJobStatus string

const (
	RenderStatusPending   RenderJobStatus = "pending"
	RenderStatusRendering RenderJobStatus = "rendering"
	RenderStatusCompleted RenderJobStatus = "completed"
	RenderStatusFailed    RenderJobStatus = "failed"
)

// 画幅格式常量
const (
	FormatLandscape = "16:9"
	FormatPortrait  = "9:16"
	FormatSquare    = "1:1"
	FormatFeed      = "4:5"
)

// FormatDimensions 返回画幅格式对应的输出分辨率
func FormatDimensions(format string) (width, height int, ok bool) {
	switch format {
	case FormatLandscape:
		return 1920, 1080, true
	case FormatPortrait:
		return 1080, 1920, true
	case FormatSquare:
		return 1080, 1080, true
	case FormatFeed:
		return 1080, 1350, true
	default:
		return 0, 0, false
	}
}

// RenderOverrides 渲染请求的覆盖参数，覆盖存储在片段上的对应字段
type RenderOverrides struct {
	CaptionStyle  *CaptionStyle     `json:"caption_style,omitempty"`
	Background    *BackgroundConfig `json:"background,omitempty"`
	Subtitle      *SubtitleConfig   `json:"subtitle,omitempty"`
	Words         WordList          `json:"words,omitempty"`
	WordsPerGroup int               `json:"words_per_group,omitempty"`
}

// HasMeaningful 是否携带会影响渲染结果的覆盖项
func (o *RenderOverrides) HasMeaningful() bool {
	if o == nil {
		return false
	}
	return o.CaptionStyle != nil ||
		o.Background != nil ||
		o.Subtitle != nil ||
		len(o.Words) > 0 ||
		o.WordsPerGroup > 0
}

// RenderJob 进程内渲染任务，状态机 pending → rendering → {completed|failed}
type RenderJob struct {
	ID          string           `json:"job_id"`
	ClipID      uint             `json:"clip_id"`
	EpisodeID   uint             `json:"episode_id"`
	Format      string           `json:"format"`
	Status      RenderJobStatus  `json:"status"`
	Progress    int              `json:"progress"`
	Overrides   *RenderOverrides `json:"overrides,omitempty"`
	OutputPath  string           `json:"output_path,omitempty"`
	ErrorMsg    string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// IsActive 任务是否仍在进行中
func (j *RenderJob) IsActive() bool {
	return j.Status == RenderStatusPending || j.Status == RenderStatusRendering
}

// RenderedArtifact 已完成渲染的持久化记录，按(片段,格式)作为缓存键
type RenderedArtifact struct {
	ID              uint      `json:"id" gorm:"primarykey"`
	ClipID          uint      `json:"clip_id" gorm:"not null;index;comment:片段ID"`
	EpisodeID       uint      `json:"episode_id" gorm:"not null;index;comment:节目ID"`
	Format          string    `json:"format" gorm:"size:10;not null;comment:画幅格式"`
	OutputPath      string    `json:"output_path" gorm:"size:500;not null;comment:输出文件路径"`
	PosterPath      string    `json:"poster_path" gorm:"size:500;comment:封面图路径"`
	SizeBytes       int64     `json:"size_bytes" gorm:"comment:文件大小(字节)"`
	DurationSeconds float64   `json:"duration_seconds" gorm:"comment:输出时长(秒)"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName 指定表名
func (RenderedArtifact) TableName() string {
	return "rendered_artifacts"
}
