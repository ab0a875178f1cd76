package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"clip-forge/app/config"
	"clip-forge/app/logger"
	"clip-forge/app/model"
	"clip-forge/app/render"
	"clip-forge/app/utils/pathhelper"
	"clip-forge/app/utils/posterhelper"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RenderService 渲染任务编排器。
// 负责组装渲染输入、调用合成渲染器、跟踪进度、
// 按(片段,格式)去重与缓存结果、持久化渲染产物。
type RenderService struct {
	db       *gorm.DB
	cfg      *config.Config
	log      *logger.Logger
	registry JobRegistry
	renderer render.CompositionRenderer
	assets   *render.AssetFetcher
	sem      chan struct{} // 限制并发渲染的外部进程数
}

// NewRenderService 创建渲染编排器
func NewRenderService(db *gorm.DB, cfg *config.Config, log *logger.Logger, registry JobRegistry, renderer render.CompositionRenderer) *RenderService {
	return &RenderService{
		db:       db,
		cfg:      cfg,
		log:      log,
		registry: registry,
		renderer: renderer,
		assets:   render.NewAssetFetcher(time.Duration(cfg.Render.AssetTimeoutSec)*time.Second, log),
		sem:      make(chan struct{}, cfg.Render.MaxConcurrent),
	}
}

// Close 释放渲染编排器持有的资源
func (s *RenderService) Close() {
	s.assets.Close()
}

// RenderRequest 渲染请求
type RenderRequest struct {
	SubjectID uint                   `json:"subject_id" binding:"required"`
	Format    string                 `json:"format" binding:"required"`
	Force     bool                   `json:"force"`
	Overrides *model.RenderOverrides `json:"overrides"`
}

// RenderResponse 渲染请求的响应快照
type RenderResponse struct {
	JobID      string                `json:"job_id,omitempty"`
	Status     model.RenderJobStatus `json:"status"`
	Progress   int                   `json:"progress"`
	Reused     bool                  `json:"reused"`
	OutputPath string                `json:"output_path,omitempty"`
	ArtifactID uint                  `json:"artifact_id,omitempty"`
}

// RequestRender 请求渲染。复用顺序：
// (a) 未过期的已完成产物 → 直接返回；
// (b) 同(片段,格式)进行中的任务 → 返回其快照；
// 否则创建新任务并异步执行，立即返回任务ID。
func (s *RenderService) RequestRender(req *RenderRequest) (*RenderResponse, error) {
	if _, _, ok := model.FormatDimensions(req.Format); !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("不支持的画幅格式: %s", req.Format)}
	}

	var clip model.Clip
	if err := s.db.First(&clip, req.SubjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	meaningful := req.Overrides.HasMeaningful()
	if !req.Force && !meaningful {
		// (a) 产物缓存：片段未在产物生成之后被修改才算新鲜
		var artifact model.RenderedArtifact
		err := s.db.Where("clip_id = ? AND format = ?", clip.ID, req.Format).
			Order("created_at DESC").
			First(&artifact).Error
		if err == nil && !clip.LastModifiedAt.After(artifact.CreatedAt) {
			s.log.Infof("复用已完成的渲染产物: ClipID=%d, Format=%s, ArtifactID=%d", clip.ID, req.Format, artifact.ID)
			return &RenderResponse{
				Status:     model.RenderStatusCompleted,
				Progress:   100,
				Reused:     true,
				OutputPath: artifact.OutputPath,
				ArtifactID: artifact.ID,
			}, nil
		}

		// (b) 进行中的任务
		if job, ok := s.registry.FindActive(clip.ID, req.Format); ok && !clip.LastModifiedAt.After(job.CreatedAt) {
			s.log.Infof("复用进行中的渲染任务: ClipID=%d, Format=%s, JobID=%s", clip.ID, req.Format, job.ID)
			return &RenderResponse{
				JobID:    job.ID,
				Status:   job.Status,
				Progress: job.Progress,
				Reused:   true,
			}, nil
		}
	}

	job := model.RenderJob{
		ID:        uuid.NewString(),
		ClipID:    clip.ID,
		EpisodeID: clip.EpisodeID,
		Format:    req.Format,
		Status:    model.RenderStatusPending,
		Overrides: req.Overrides,
		CreatedAt: time.Now(),
	}
	s.registry.Put(job)
	s.log.Infof("🎬 渲染任务已创建: JobID=%s, ClipID=%d, Format=%s", job.ID, clip.ID, req.Format)

	go s.execute(job.ID)

	return &RenderResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: 0,
		Reused:   false,
	}, nil
}

// GetStatus 查询任务快照
func (s *RenderService) GetStatus(jobID string) (*model.RenderJob, error) {
	job, ok := s.registry.Get(jobID)
	if !ok {
		return nil, ErrNotFound
	}
	return &job, nil
}

// ListArtifacts 列出节目的全部渲染产物
func (s *RenderService) ListArtifacts(episodeID uint) ([]model.RenderedArtifact, error) {
	var artifacts []model.RenderedArtifact
	err := s.db.Where("episode_id = ?", episodeID).
		Order("created_at DESC").
		Find(&artifacts).Error
	return artifacts, err
}

// DeleteArtifact 删除渲染产物记录与文件
func (s *RenderService) DeleteArtifact(id uint) error {
	var artifact model.RenderedArtifact
	if err := s.db.First(&artifact, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	// 文件删除尽力而为，记录删除才是权威动作
	if artifact.OutputPath != "" {
		if err := os.Remove(artifact.OutputPath); err != nil && !os.IsNotExist(err) {
			s.log.Warnf("删除产物文件失败: %s, 错误: %v", artifact.OutputPath, err)
		}
	}
	if artifact.PosterPath != "" {
		os.Remove(artifact.PosterPath)
	}
	return s.db.Delete(&artifact).Error
}

// BuildPreviewProps 为客户端预览构建渲染指令。
// 与服务端渲染共享同一个加载与构建路径，两者对相同输入逐字段一致。
func (s *RenderService) BuildPreviewProps(clipID uint, format string, overrides *model.RenderOverrides) (*render.ClipProps, error) {
	if _, _, ok := model.FormatDimensions(format); !ok {
		return nil, &ValidationError{Msg: fmt.Sprintf("不支持的画幅格式: %s", format)}
	}
	input, err := s.loadBuildInput(clipID, format, overrides)
	if err != nil {
		return nil, err
	}
	return render.BuildClipProps(*input)
}

// loadBuildInput 加载并组装构建渲染指令所需的全部状态。
// 预览与服务端渲染唯一的状态入口。
func (s *RenderService) loadBuildInput(clipID uint, format string, overrides *model.RenderOverrides) (*render.BuildInput, error) {
	var clip model.Clip
	if err := s.db.First(&clip, clipID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var episode model.Episode
	if err := s.db.First(&episode, clip.EpisodeID).Error; err != nil {
		return nil, err
	}

	var timeline *model.Timeline
	var tl model.Timeline
	err := s.db.Where("episode_id = ?", clip.EpisodeID).First(&tl).Error
	if err == nil {
		timeline = &tl
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var sources []model.VideoSource
	if err := s.db.Where("episode_id = ?", clip.EpisodeID).
		Order("display_order ASC, id ASC").
		Find(&sources).Error; err != nil {
		return nil, err
	}

	return &render.BuildInput{
		Clip:           &clip,
		Episode:        &episode,
		Timeline:       timeline,
		Sources:        sources,
		Format:         format,
		Overrides:      overrides,
		WordsPerGroup:  s.cfg.Render.DefaultWordsPerGroup,
		HoldPreviousMs: s.cfg.Render.HoldPreviousMs,
		MinShotMs:      s.cfg.Render.MinShotMs,
		PreRollMs:      s.cfg.Render.PreRollMs,
	}, nil
}

// execute 异步执行渲染任务，并发数受信号量限制
func (s *RenderService) execute(jobID string) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	job, ok := s.registry.Get(jobID)
	if !ok {
		return
	}

	started := time.Now()
	s.registry.Update(jobID, func(j *model.RenderJob) {
		j.Status = model.RenderStatusRendering
		j.StartedAt = &started
	})
	s.log.Infof("🔄 开始渲染: JobID=%s, ClipID=%d, Format=%s", jobID, job.ClipID, job.Format)

	outputPath, artifactID, err := s.renderOnce(jobID, &job)

	finished := time.Now()
	if err != nil {
		// 完整错误只进日志，对外信息一律脱敏
		s.log.Errorf("❌ 渲染任务失败: JobID=%s, 耗时: %v, 错误: %v", jobID, finished.Sub(started), err)
		sanitized := render.SanitizeError(err)
		s.registry.Update(jobID, func(j *model.RenderJob) {
			j.Status = model.RenderStatusFailed
			j.ErrorMsg = sanitized
			j.CompletedAt = &finished
		})
		return
	}

	s.registry.Update(jobID, func(j *model.RenderJob) {
		j.Status = model.RenderStatusCompleted
		j.Progress = 100
		j.OutputPath = outputPath
		j.CompletedAt = &finished
	})
	s.log.Infof("✅ 渲染完成: JobID=%s, 产物ID=%d, 耗时: %v", jobID, artifactID, finished.Sub(started))
}

// renderOnce 一次完整的渲染执行
func (s *RenderService) renderOnce(jobID string, job *model.RenderJob) (string, uint, error) {
	input, err := s.loadBuildInput(job.ClipID, job.Format, job.Overrides)
	if err != nil {
		return "", 0, err
	}

	props, err := render.BuildClipProps(*input)
	if err != nil {
		return "", 0, err
	}

	timeout := time.Duration(s.cfg.Render.TimeoutMin) * time.Minute
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// 渲染器无法可靠访问外部地址，远程素材先内嵌
	if err := s.prefetchAssets(ctx, props); err != nil {
		return "", 0, err
	}

	tempOutput := filepath.Join(s.cfg.Render.TempDir, fmt.Sprintf("render_%s.mp4", jobID))
	// 无论成败都清理临时输出
	defer os.Remove(tempOutput)

	output, err := s.renderer.Render(ctx, props, tempOutput, func(percent int) {
		s.registry.Update(jobID, func(j *model.RenderJob) {
			if percent > j.Progress {
				j.Progress = percent
			}
		})
	})
	if err != nil {
		return "", 0, err
	}

	if err := verifyOutput(output, props, input.Clip.Duration()); err != nil {
		return "", 0, err
	}

	if err := os.MkdirAll(s.cfg.Render.OutputDir, 0755); err != nil {
		return "", 0, fmt.Errorf("创建输出目录失败: %w", err)
	}
	finalPath := filepath.Join(s.cfg.Render.OutputDir, pathhelper.ArtifactFileName(job.ClipID, job.Format))
	if err := os.Rename(tempOutput, finalPath); err != nil {
		return "", 0, fmt.Errorf("移动渲染产物失败: %w", err)
	}

	// 封面图尽力而为，失败不影响任务结果
	posterPath := filepath.Join(s.cfg.Render.OutputDir, pathhelper.PosterFileName(job.ClipID, job.Format))
	if err := posterhelper.Generate(input.Clip.Title, job.Format, props.Width, props.Height, posterPath); err != nil {
		s.log.Warnf("生成封面图失败: JobID=%s, 错误: %v", jobID, err)
		posterPath = ""
	}

	artifact := model.RenderedArtifact{
		ClipID:          job.ClipID,
		EpisodeID:       job.EpisodeID,
		Format:          job.Format,
		OutputPath:      finalPath,
		PosterPath:      posterPath,
		SizeBytes:       output.SizeBytes,
		DurationSeconds: output.DurationSeconds,
	}
	if err := s.db.Create(&artifact).Error; err != nil {
		return "", 0, fmt.Errorf("持久化渲染产物失败: %w", err)
	}

	return finalPath, artifact.ID, nil
}

// prefetchAssets 把指令包里的远程素材内嵌为 data URI
func (s *RenderService) prefetchAssets(ctx context.Context, props *render.ClipProps) error {
	if props.Background != nil && render.IsRemoteURL(props.Background.ImageURL) {
		uri, err := s.assets.FetchDataURI(ctx, props.Background.ImageURL)
		if err != nil {
			return fmt.Errorf("预取背景图失败: %w", err)
		}
		props.Background.ImageURL = uri
	}
	if props.CaptionStyle != nil && render.IsRemoteURL(props.CaptionStyle.AnimationURL) {
		uri, err := s.assets.FetchDataURI(ctx, props.CaptionStyle.AnimationURL)
		if err != nil {
			return fmt.Errorf("预取字幕动画失败: %w", err)
		}
		props.CaptionStyle.AnimationURL = uri
	}
	if props.Subtitle != nil && render.IsRemoteURL(props.Subtitle.IconURL) {
		uri, err := s.assets.FetchDataURI(ctx, props.Subtitle.IconURL)
		if err != nil {
			return fmt.Errorf("预取副标题图标失败: %w", err)
		}
		props.Subtitle.IconURL = uri
	}
	return nil
}

// outputTolerance 输出时长与期望时长的允许偏差（秒）
const outputTolerance = 0.5

// verifyOutput 校验输出的实际时长与分辨率
func verifyOutput(output *render.RenderOutput, props *render.ClipProps, expectedDuration float64) error {
	if math.Abs(output.DurationSeconds-expectedDuration) > outputTolerance {
		return fmt.Errorf("输出时长不符: 期望 %.2fs, 实际 %.2fs", expectedDuration, output.DurationSeconds)
	}
	if output.Width != 0 && output.Height != 0 {
		if output.Width != props.Width || output.Height != props.Height {
			return fmt.Errorf("输出分辨率不符: 期望 %dx%d, 实际 %dx%d", props.Width, props.Height, output.Width, output.Height)
		}
	}
	return nil
}
