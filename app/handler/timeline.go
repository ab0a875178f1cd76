package handler

import (
	"errors"
	"net/http"

	"clip-forge/app/model"
	"clip-forge/app/service"

	"github.com/gin-gonic/gin"
)

// TimelineHandler 时间线处理器
type TimelineHandler struct {
	timelineService *service.TimelineService
}

// NewTimelineHandler 创建时间线处理器
func NewTimelineHandler(timelineService *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{timelineService: timelineService}
}

// TimelineRequest 整文档保存请求。Tracks 为必填数组；
// ClientUpdatedAt 是客户端上次读到的 updated_at 毫秒时间戳，省略时跳过并发校验。
type TimelineRequest struct {
	Tracks          model.TrackList         `json:"tracks"`
	Duration        *float64                `json:"duration"`
	FPS             *int                    `json:"fps"`
	Format          *string                 `json:"format"`
	MulticamConfig  *model.MulticamConfig   `json:"multicam_config"`
	CaptionStyle    *model.CaptionStyle     `json:"caption_style"`
	Background      *model.BackgroundConfig `json:"background"`
	Markers         model.MarkerList        `json:"markers"`
	ClipMarkers     model.MarkerList        `json:"clip_markers"`
	ClientUpdatedAt *int64                  `json:"client_updated_at"`
}

// timelinePayload 把时间线与毫秒级 updated_at 一起下发，
// 客户端原样带回 client_updated_at 即可完成乐观并发控制
func timelinePayload(tl *model.Timeline) gin.H {
	if tl == nil {
		return gin.H{"timeline": nil}
	}
	return gin.H{
		"timeline":   tl,
		"updated_at": tl.UpdatedAt.UnixMilli(),
	}
}

// Get 查询节目的时间线，尚未创建时 data.timeline 为 null
func (h *TimelineHandler) Get(c *gin.Context) {
	episodeID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	tl, err := h.timelineService.Get(episodeID)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询时间线失败")
		return
	}
	success(c, timelinePayload(tl), "获取成功")
}

// Save 整文档保存时间线
func (h *TimelineHandler) Save(c *gin.Context) {
	episodeID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var req TimelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	input := &service.TimelineInput{
		Tracks:         req.Tracks,
		Duration:       req.Duration,
		FPS:            req.FPS,
		Format:         req.Format,
		MulticamConfig: req.MulticamConfig,
		CaptionStyle:   req.CaptionStyle,
		Background:     req.Background,
		Markers:        req.Markers,
		ClipMarkers:    req.ClipMarkers,
	}

	tl, err := h.timelineService.Upsert(episodeID, input, req.ClientUpdatedAt)
	if err != nil {
		var ve *service.ValidationError
		var ce *service.ConflictError
		switch {
		case errors.As(err, &ve):
			fail(c, http.StatusBadRequest, 400, ve.Msg)
		case errors.As(err, &ce):
			failWithData(c, http.StatusConflict, 409, ce.Error(), gin.H{
				"server_updated_at": ce.ServerUpdatedAt.UnixMilli(),
			})
		default:
			fail(c, http.StatusInternalServerError, 500, "保存时间线失败")
		}
		return
	}
	success(c, timelinePayload(tl), "保存成功")
}

// Initialize 从节目媒体派生初始时间线，幂等
func (h *TimelineHandler) Initialize(c *gin.Context) {
	episodeID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	tl, wasCreated, err := h.timelineService.InitializeFromMedia(episodeID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			fail(c, http.StatusNotFound, 404, "节目不存在")
		case errors.Is(err, service.ErrNoMedia):
			fail(c, http.StatusBadRequest, 400, err.Error())
		default:
			fail(c, http.StatusInternalServerError, 500, "初始化时间线失败")
		}
		return
	}

	if wasCreated {
		created(c, timelinePayload(tl), "时间线已初始化")
		return
	}
	success(c, timelinePayload(tl), "时间线已存在")
}
