package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"clip-forge/app/logger"
	"clip-forge/app/model"

	"gorm.io/gorm"
)

// TimelineService 时间线存储。每期节目最多一条时间线，
// 整文档 upsert，唯一的并发控制是基于 updatedAt 的乐观校验。
type TimelineService struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewTimelineService 创建时间线服务
func NewTimelineService(db *gorm.DB, log *logger.Logger) *TimelineService {
	return &TimelineService{db: db, log: log}
}

// TimelineInput 整文档 upsert 的输入，nil 指针字段表示保留现值（创建时取默认值）
type TimelineInput struct {
	Tracks         model.TrackList
	Duration       *float64
	FPS            *int
	Format         *string
	MulticamConfig *model.MulticamConfig
	CaptionStyle   *model.CaptionStyle
	Background     *model.BackgroundConfig
	Markers        model.MarkerList
	ClipMarkers    model.MarkerList
}

// Get 查询节目的时间线，不存在时返回 nil 且不报错
func (s *TimelineService) Get(episodeID uint) (*model.Timeline, error) {
	var tl model.Timeline
	err := s.db.Where("episode_id = ?", episodeID).First(&tl).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tl, nil
}

// Upsert 整文档写入时间线。
// clientUpdatedAt 为客户端上次读到的 updatedAt（毫秒时间戳）：
// 提供且与存储值不一致时返回 ConflictError（不做合并，调用方需重新加载）；
// 省略时无条件写入（最后写者胜）。
func (s *TimelineService) Upsert(episodeID uint, input *TimelineInput, clientUpdatedAt *int64) (*model.Timeline, error) {
	if input == nil || input.Tracks == nil {
		return nil, &ValidationError{Msg: "tracks 必须是数组"}
	}

	var existing model.Timeline
	err := s.db.Where("episode_id = ?", episodeID).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		return s.create(episodeID, input)
	}

	// 乐观并发校验，毫秒精度与下发给客户端的时间戳一致
	if clientUpdatedAt != nil && existing.UpdatedAt.UnixMilli() != *clientUpdatedAt {
		return nil, &ConflictError{ServerUpdatedAt: existing.UpdatedAt}
	}

	return s.update(&existing, input)
}

// create 创建时间线，省略字段取默认值
func (s *TimelineService) create(episodeID uint, input *TimelineInput) (*model.Timeline, error) {
	tl := model.Timeline{
		EpisodeID:   episodeID,
		Tracks:      input.Tracks,
		FPS:         30,
		Format:      model.FormatLandscape,
		Version:     1,
		Background:  model.DefaultBackground(),
		Markers:     model.MarkerList{},
		ClipMarkers: model.MarkerList{},
	}
	applyInput(&tl, input)

	if err := s.db.Create(&tl).Error; err != nil {
		return nil, err
	}
	s.log.Infof("时间线已创建: EpisodeID=%d, TimelineID=%d", episodeID, tl.ID)
	return &tl, nil
}

// update 整文档覆盖写入，updatedAt 严格递增，版本号自增
func (s *TimelineService) update(existing *model.Timeline, input *TimelineInput) (*model.Timeline, error) {
	existing.Tracks = input.Tracks
	applyInput(existing, input)
	existing.Version++

	// 客户端按毫秒比较，同一毫秒内的连续写入也要保持可区分
	now := time.Now()
	if now.UnixMilli() <= existing.UpdatedAt.UnixMilli() {
		now = existing.UpdatedAt.Add(time.Millisecond)
	}
	existing.UpdatedAt = now

	// 显式写入 updated_at，绕过 gorm 的自动时间戳以保证严格递增
	updates := map[string]interface{}{
		"tracks":          existing.Tracks,
		"duration":        existing.Duration,
		"fps":             existing.FPS,
		"format":          existing.Format,
		"version":         existing.Version,
		"multicam_config": existing.MulticamConfig,
		"caption_style":   existing.CaptionStyle,
		"background":      existing.Background,
		"markers":         existing.Markers,
		"clip_markers":    existing.ClipMarkers,
		"updated_at":      existing.UpdatedAt,
	}
	if err := s.db.Model(existing).UpdateColumns(updates).Error; err != nil {
		return nil, err
	}
	return existing, nil
}

func applyInput(tl *model.Timeline, input *TimelineInput) {
	if input.Duration != nil {
		tl.Duration = *input.Duration
	}
	if input.FPS != nil {
		tl.FPS = *input.FPS
	}
	if input.Format != nil {
		tl.Format = *input.Format
	}
	if input.MulticamConfig != nil {
		tl.MulticamConfig = input.MulticamConfig
	}
	if input.CaptionStyle != nil {
		tl.CaptionStyle = input.CaptionStyle
	}
	if input.Background != nil {
		tl.Background = input.Background
	}
	if input.Markers != nil {
		tl.Markers = input.Markers
	}
	if input.ClipMarkers != nil {
		tl.ClipMarkers = input.ClipMarkers
	}
}

// InitializeFromMedia 从节目媒体派生初始时间线。
// 幂等：已存在时原样返回且 created=false。
func (s *TimelineService) InitializeFromMedia(episodeID uint) (*model.Timeline, bool, error) {
	existing, err := s.Get(episodeID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	var episode model.Episode
	if err := s.db.First(&episode, episodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	var sources []model.VideoSource
	if err := s.db.Where("episode_id = ?", episodeID).
		Order("display_order ASC, id ASC").
		Find(&sources).Error; err != nil {
		return nil, false, err
	}

	audioPath, audioDuration := episode.PrimaryAudioPath()
	duration := audioDuration
	for _, src := range sources {
		if src.DurationSeconds > duration {
			duration = src.DurationSeconds
		}
	}
	if duration <= 0 {
		return nil, false, ErrNoMedia
	}

	var speakers []model.VideoSource
	for _, src := range sources {
		if src.IsSpeaker() {
			speakers = append(speakers, src)
		}
	}

	// 机位轨道：默认只有第一个机位可见，真实切换在渲染时计算
	videoTrack := model.Track{
		ID:    "track-video-main",
		Type:  model.TrackTypeVideoMain,
		Order: 0,
	}
	for i, src := range speakers {
		opacity := 0.0
		if i == 0 {
			opacity = 1.0
		}
		videoTrack.Items = append(videoTrack.Items, model.Item{
			ID:            fmt.Sprintf("item-source-%d", src.ID),
			StartTime:     0,
			Duration:      src.DurationSeconds,
			SourceIn:      0,
			SourceOut:     src.DurationSeconds,
			MediaID:       strconv.FormatUint(uint64(src.ID), 10),
			MediaType:     model.MediaTypeVideoSource,
			Scale:         1,
			Opacity:       opacity,
			Volume:        0, // 音频统一走音频轨
			PlaybackSpeed: 1,
		})
	}

	audioTrack := model.Track{
		ID:    "track-audio-main",
		Type:  model.TrackTypeAudioMain,
		Order: 1,
	}
	if audioPath != "" && audioDuration > 0 {
		audioTrack.Items = append(audioTrack.Items, model.Item{
			ID:            "item-episode-audio",
			StartTime:     0,
			Duration:      audioDuration,
			SourceIn:      0,
			SourceOut:     audioDuration,
			MediaID:       strconv.FormatUint(uint64(episode.ID), 10),
			MediaType:     model.MediaTypeEpisodeAudio,
			Scale:         1,
			Opacity:       1,
			Volume:        1,
			PlaybackSpeed: 1,
		})
	}

	captionsTrack := model.Track{
		ID:    "track-captions",
		Type:  model.TrackTypeCaptions,
		Order: 2,
		Items: []model.Item{},
	}

	tl := model.Timeline{
		EpisodeID:   episodeID,
		Tracks:      model.TrackList{videoTrack, audioTrack, captionsTrack},
		Duration:    duration,
		FPS:         30,
		Format:      model.FormatLandscape,
		Version:     1,
		Background:  model.DefaultBackground(),
		Markers:     model.MarkerList{},
		ClipMarkers: model.MarkerList{},
	}

	// 2+ 机位时播种多机位配置；占位区间覆盖整条时间线指向第一个机位
	if len(speakers) >= 2 {
		tl.MulticamConfig = &model.MulticamConfig{
			LayoutMode:      model.LayoutModeActiveSpeaker,
			DefaultSourceID: speakers[0].ID,
			SwitchingIntervals: []model.SwitchingInterval{
				{StartTime: 0, EndTime: duration, VideoSourceID: speakers[0].ID},
			},
		}
	}

	if err := s.db.Create(&tl).Error; err != nil {
		return nil, false, err
	}
	s.log.Infof("时间线已从媒体初始化: EpisodeID=%d, 时长=%.2fs, 机位数=%d", episodeID, duration, len(speakers))
	return &tl, true, nil
}
