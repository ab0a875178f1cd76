package handler

import (
	"errors"
	"net/http"
	"time"

	"clip-forge/app/model"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// EpisodeHandler 节目与素材管理处理器
type EpisodeHandler struct {
	db *gorm.DB
}

// NewEpisodeHandler 创建节目处理器
func NewEpisodeHandler(db *gorm.DB) *EpisodeHandler {
	return &EpisodeHandler{db: db}
}

// EpisodeRequest 创建节目请求
type EpisodeRequest struct {
	Title              string            `json:"title" binding:"required"`
	PodcastName        string            `json:"podcast_name"`
	AudioPath          string            `json:"audio_path"`
	AudioDuration      float64           `json:"audio_duration"`
	MixedAudioPath     string            `json:"mixed_audio_path"`
	MixedAudioDuration float64           `json:"mixed_audio_duration"`
	TranscriptWords    model.WordList    `json:"transcript_words"`
	TranscriptSegments model.SegmentList `json:"transcript_segments"`
}

// Create 创建节目
func (h *EpisodeHandler) Create(c *gin.Context) {
	var req EpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	userID, _ := c.Get("user_id")
	uid, _ := userID.(uint)

	episode := model.Episode{
		UserID:             uid,
		Title:              req.Title,
		PodcastName:        req.PodcastName,
		AudioPath:          req.AudioPath,
		AudioDuration:      req.AudioDuration,
		MixedAudioPath:     req.MixedAudioPath,
		MixedAudioDuration: req.MixedAudioDuration,
		TranscriptWords:    req.TranscriptWords,
		TranscriptSegments: req.TranscriptSegments,
		LastModifiedAt:     time.Now(),
	}
	if err := h.db.Create(&episode).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "创建节目失败")
		return
	}
	created(c, &episode, "创建成功")
}

// List 列出当前用户的节目
func (h *EpisodeHandler) List(c *gin.Context) {
	userID, _ := c.Get("user_id")

	var episodes []model.Episode
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&episodes).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询节目失败")
		return
	}
	success(c, episodes, "获取成功")
}

// Get 查询单个节目，附带机位列表
func (h *EpisodeHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var episode model.Episode
	err := h.db.Preload("VideoSources", func(db *gorm.DB) *gorm.DB {
		return db.Order("display_order ASC, id ASC")
	}).First(&episode, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "节目不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "查询节目失败")
		return
	}
	success(c, &episode, "获取成功")
}

// SourceRequest 登记机位请求
type SourceRequest struct {
	SourceType      string  `json:"source_type"`
	FilePath        string  `json:"file_path" binding:"required"`
	AudioPath       string  `json:"audio_path"`
	DurationSeconds float64 `json:"duration_seconds"`
	SyncOffsetMs    int     `json:"sync_offset_ms"`
	CropX           int     `json:"crop_x"`
	CropY           int     `json:"crop_y"`
	DisplayOrder    int     `json:"display_order"`
	PersonID        string  `json:"person_id"`
	PersonLabel     string  `json:"person_label"`
}

// CreateSource 为节目登记一个视频机位
func (h *EpisodeHandler) CreateSource(c *gin.Context) {
	episodeID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req SourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}
	if req.SourceType == "" {
		req.SourceType = model.SourceTypeSpeaker
	}
	if req.SourceType != model.SourceTypeSpeaker && req.SourceType != model.SourceTypeBroll {
		fail(c, http.StatusBadRequest, 400, "无效的机位类型: "+req.SourceType)
		return
	}

	var episode model.Episode
	if err := h.db.First(&episode, episodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "节目不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "查询节目失败")
		return
	}

	source := model.VideoSource{
		EpisodeID:       episodeID,
		SourceType:      req.SourceType,
		FilePath:        req.FilePath,
		AudioPath:       req.AudioPath,
		DurationSeconds: req.DurationSeconds,
		SyncOffsetMs:    req.SyncOffsetMs,
		CropX:           req.CropX,
		CropY:           req.CropY,
		DisplayOrder:    req.DisplayOrder,
		PersonID:        req.PersonID,
		PersonLabel:     req.PersonLabel,
	}
	if err := h.db.Create(&source).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "登记机位失败")
		return
	}

	// 节目媒体有变化，后续渲染不再复用旧产物
	h.db.Model(&episode).Update("last_modified_at", time.Now())

	created(c, &source, "登记成功")
}

// ClipRequest 创建或修改片段请求
type ClipRequest struct {
	Title              string                  `json:"title"`
	StartTime          *float64                `json:"start_time"`
	EndTime            *float64                `json:"end_time"`
	Words              model.WordList          `json:"words"`
	Segments           model.SegmentList       `json:"segments"`
	CaptionStyle       *model.CaptionStyle     `json:"caption_style"`
	Background         *model.BackgroundConfig `json:"background"`
	Subtitle           *model.SubtitleConfig   `json:"subtitle"`
	PrimaryAudioSource *uint                   `json:"primary_audio_source"`
}

// CreateClip 在节目下创建片段
func (h *EpisodeHandler) CreateClip(c *gin.Context) {
	episodeID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req ClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}
	if req.StartTime == nil || req.EndTime == nil || *req.EndTime <= *req.StartTime {
		fail(c, http.StatusBadRequest, 400, "片段时间区间不合法")
		return
	}

	var episode model.Episode
	if err := h.db.First(&episode, episodeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "节目不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "查询节目失败")
		return
	}

	clip := model.Clip{
		EpisodeID:      episodeID,
		Title:          req.Title,
		StartTime:      *req.StartTime,
		EndTime:        *req.EndTime,
		Words:          req.Words,
		Segments:       req.Segments,
		CaptionStyle:   req.CaptionStyle,
		Background:     req.Background,
		Subtitle:       req.Subtitle,
		LastModifiedAt: time.Now(),
	}
	if req.PrimaryAudioSource != nil {
		clip.PrimaryAudioSource = *req.PrimaryAudioSource
	}
	if err := h.db.Create(&clip).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "创建片段失败")
		return
	}
	created(c, &clip, "创建成功")
}

// ListClips 列出节目的全部片段
func (h *EpisodeHandler) ListClips(c *gin.Context) {
	episodeID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var clips []model.Clip
	if err := h.db.Where("episode_id = ?", episodeID).
		Order("start_time ASC, id ASC").
		Find(&clips).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询片段失败")
		return
	}
	success(c, clips, "获取成功")
}

// UpdateClip 修改片段，任何修改都会推进 last_modified_at，
// 使已有渲染产物在下次请求时判定为过期
func (h *EpisodeHandler) UpdateClip(c *gin.Context) {
	clipID, ok := uintParam(c, "clipId")
	if !ok {
		return
	}

	var req ClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	var clip model.Clip
	if err := h.db.First(&clip, clipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, 404, "片段不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "查询片段失败")
		return
	}

	if req.Title != "" {
		clip.Title = req.Title
	}
	if req.StartTime != nil {
		clip.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		clip.EndTime = *req.EndTime
	}
	if clip.EndTime <= clip.StartTime {
		fail(c, http.StatusBadRequest, 400, "片段时间区间不合法")
		return
	}
	if req.Words != nil {
		clip.Words = req.Words
	}
	if req.Segments != nil {
		clip.Segments = req.Segments
	}
	if req.CaptionStyle != nil {
		clip.CaptionStyle = req.CaptionStyle
	}
	if req.Background != nil {
		clip.Background = req.Background
	}
	if req.Subtitle != nil {
		clip.Subtitle = req.Subtitle
	}
	if req.PrimaryAudioSource != nil {
		clip.PrimaryAudioSource = *req.PrimaryAudioSource
	}
	clip.LastModifiedAt = time.Now()

	if err := h.db.Save(&clip).Error; err != nil {
		fail(c, http.StatusInternalServerError, 500, "保存片段失败")
		return
	}
	success(c, &clip, "保存成功")
}
