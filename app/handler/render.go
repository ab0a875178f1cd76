package handler

import (
	"errors"
	"net/http"

	"clip-forge/app/service"

	"github.com/gin-gonic/gin"
)

// RenderHandler 渲染处理器
type RenderHandler struct {
	renderService *service.RenderService
}

// NewRenderHandler 创建渲染处理器
func NewRenderHandler(renderService *service.RenderService) *RenderHandler {
	return &RenderHandler{renderService: renderService}
}

// Render 请求渲染片段，返回任务快照或可复用的产物
func (h *RenderHandler) Render(c *gin.Context) {
	var req service.RenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, 400, "请求参数错误: "+err.Error())
		return
	}

	resp, err := h.renderService.RequestRender(&req)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			fail(c, http.StatusBadRequest, 400, ve.Msg)
		case errors.Is(err, service.ErrNotFound):
			fail(c, http.StatusNotFound, 404, "片段不存在")
		default:
			fail(c, http.StatusInternalServerError, 500, "创建渲染任务失败")
		}
		return
	}
	success(c, resp, "渲染请求已受理")
}

// Status 查询渲染任务快照
func (h *RenderHandler) Status(c *gin.Context) {
	jobID := c.Param("jobId")
	job, err := h.renderService.GetStatus(jobID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			fail(c, http.StatusNotFound, 404, "渲染任务不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "查询渲染任务失败")
		return
	}
	success(c, job, "获取成功")
}

// ListArtifacts 列出节目的渲染产物
func (h *RenderHandler) ListArtifacts(c *gin.Context) {
	episodeID, ok := uintParam(c, "episodeId")
	if !ok {
		return
	}

	artifacts, err := h.renderService.ListArtifacts(episodeID)
	if err != nil {
		fail(c, http.StatusInternalServerError, 500, "查询渲染产物失败")
		return
	}
	success(c, artifacts, "获取成功")
}

// DeleteArtifact 删除渲染产物
func (h *RenderHandler) DeleteArtifact(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.renderService.DeleteArtifact(id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			fail(c, http.StatusNotFound, 404, "渲染产物不存在")
			return
		}
		fail(c, http.StatusInternalServerError, 500, "删除渲染产物失败")
		return
	}
	success(c, nil, "删除成功")
}

// PreviewProps 构建客户端预览用的渲染指令，
// 与服务端渲染走同一条构建路径
func (h *RenderHandler) PreviewProps(c *gin.Context) {
	clipID, ok := uintParam(c, "clipId")
	if !ok {
		return
	}

	format := c.Query("format")
	if format == "" {
		fail(c, http.StatusBadRequest, 400, "缺少 format 查询参数")
		return
	}

	props, err := h.renderService.BuildPreviewProps(clipID, format, nil)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			fail(c, http.StatusBadRequest, 400, ve.Msg)
		case errors.Is(err, service.ErrNotFound):
			fail(c, http.StatusNotFound, 404, "片段不存在")
		default:
			fail(c, http.StatusInternalServerError, 500, "构建渲染指令失败")
		}
		return
	}
	success(c, props, "获取成功")
}
