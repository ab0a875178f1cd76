package service

import (
	"os"
	"path/filepath"
	"time"

	"clip-forge/app/config"
	"clip-forge/app/logger"
	"clip-forge/app/model"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// CleanupService 定期清理：过期的任务记录、残留的临时文件、
// 被更新渲染取代的旧产物。
type CleanupService struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *logger.Logger
	registry JobRegistry
	cron     *cron.Cron
}

// NewCleanupService 创建清理服务
func NewCleanupService(cfg *config.Config, db *gorm.DB, log *logger.Logger, registry JobRegistry) *CleanupService {
	return &CleanupService{
		cfg:      cfg,
		db:       db,
		log:      log,
		registry: registry,
		cron:     cron.New(),
	}
}

// Start 注册定时任务并启动调度器
func (s *CleanupService) Start() error {
	// 每小时清理完成超过24小时的任务记录与残留临时文件
	if _, err := s.cron.AddFunc("0 * * * *", s.cleanupJobsAndTemp); err != nil {
		return err
	}
	// 每天凌晨清理被取代的旧产物
	if _, err := s.cron.AddFunc("30 3 * * *", s.cleanupSupersededArtifacts); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("清理调度器已启动")
	return nil
}

// Stop 停止调度器，等待进行中的清理完成
func (s *CleanupService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("清理调度器已停止")
}

// cleanupJobsAndTemp 清理任务注册表与临时目录
func (s *CleanupService) cleanupJobsAndTemp() {
	cutoff := time.Now().Add(-24 * time.Hour)

	if removed := s.registry.DeleteFinishedBefore(cutoff); removed > 0 {
		s.log.Infof("清理了 %d 个已完成的渲染任务记录（超过24小时）", removed)
	}

	entries, err := os.ReadDir(s.cfg.Render.TempDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnf("读取临时目录失败: %v", err)
		}
		return
	}

	var removed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.cfg.Render.TempDir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	if removed > 0 {
		s.log.Infof("清理了 %d 个残留临时文件", removed)
	}
}

// cleanupSupersededArtifacts 同一(片段,格式)只保留最新的产物
func (s *CleanupService) cleanupSupersededArtifacts() {
	var artifacts []model.RenderedArtifact
	if err := s.db.Order("clip_id ASC, format ASC, created_at DESC").Find(&artifacts).Error; err != nil {
		s.log.Errorf("查询渲染产物失败: %v", err)
		return
	}

	type key struct {
		clipID uint
		format string
	}
	seen := make(map[key]bool)
	var removed int

	for _, artifact := range artifacts {
		k := key{artifact.ClipID, artifact.Format}
		if !seen[k] {
			// 每组第一条即最新产物
			seen[k] = true
			continue
		}

		if artifact.OutputPath != "" {
			if err := os.Remove(artifact.OutputPath); err != nil && !os.IsNotExist(err) {
				s.log.Warnf("删除旧产物文件失败: %v", err)
			}
		}
		if artifact.PosterPath != "" {
			os.Remove(artifact.PosterPath)
		}
		if err := s.db.Delete(&model.RenderedArtifact{}, artifact.ID).Error; err != nil {
			s.log.Errorf("删除旧产物记录失败: %v", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.log.Infof("清理了 %d 个被取代的旧渲染产物", removed)
	}
}
