package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"clip-forge/app/config"
	"clip-forge/app/logger"
	"clip-forge/app/model"
	"clip-forge/app/render"
	"clip-forge/app/utils/pathhelper"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"
)

// MediaWatchService 媒体导入监控。
// 监控 media.watch_dir/<episodeID>/ 下新落盘的媒体文件，
// 视频注册为该节目的机位，音频更新节目音轨。
type MediaWatchService struct {
	cfg      *config.Config
	db       *gorm.DB
	log      *logger.Logger
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex
}

// NewMediaWatchService 创建媒体导入监控
func NewMediaWatchService(cfg *config.Config, db *gorm.DB, log *logger.Logger) *MediaWatchService {
	return &MediaWatchService{
		cfg:    cfg,
		db:     db,
		log:    log,
		stopCh: make(chan struct{}),
	}
}

// Start 启动监控
func (s *MediaWatchService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Media.WatchEnabled {
		return nil
	}
	if s.watching {
		return fmt.Errorf("媒体监控已经在运行")
	}

	if err := os.MkdirAll(s.cfg.Media.WatchDir, 0755); err != nil {
		return fmt.Errorf("创建媒体导入目录失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监控器失败: %w", err)
	}
	s.watcher = watcher

	if err := s.addWatchPaths(); err != nil {
		watcher.Close()
		return err
	}

	s.watching = true
	s.wg.Add(1)
	go s.watchLoop()

	s.log.Infof("媒体导入监控已启动: %s", s.cfg.Media.WatchDir)
	return nil
}

// Stop 停止监控
func (s *MediaWatchService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.watching {
		return
	}
	close(s.stopCh)
	s.watcher.Close()
	s.wg.Wait()
	s.watching = false
	s.log.Info("媒体导入监控已停止")
}

// addWatchPaths 监控根目录及已存在的节目子目录
func (s *MediaWatchService) addWatchPaths() error {
	if err := s.watcher.Add(s.cfg.Media.WatchDir); err != nil {
		return fmt.Errorf("添加监控目录失败: %w", err)
	}
	entries, err := os.ReadDir(s.cfg.Media.WatchDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			path := filepath.Join(s.cfg.Media.WatchDir, entry.Name())
			if err := s.watcher.Add(path); err != nil {
				s.log.Warnf("添加子目录监控失败: %s, 错误: %v", path, err)
			}
		}
	}
	return nil
}

// watchLoop 监控事件循环
func (s *MediaWatchService) watchLoop() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Errorf("媒体监控错误: %v", err)

		case <-s.stopCh:
			return
		}
	}
}

// handleEvent 处理文件系统事件
func (s *MediaWatchService) handleEvent(event fsnotify.Event) {
	// 只处理创建事件
	if event.Op&fsnotify.Create == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		s.log.Warnf("获取文件信息失败: %s, 错误: %v", event.Name, err)
		return
	}

	// 新建的节目子目录加入监控
	if info.IsDir() {
		if err := s.watcher.Add(event.Name); err != nil {
			s.log.Warnf("添加新目录监控失败: %s, 错误: %v", event.Name, err)
		}
		return
	}

	if !pathhelper.HasVideoExt(event.Name) && !pathhelper.HasAudioExt(event.Name) {
		return
	}

	// 等待文件写入完成
	if err := s.waitForFileReady(event.Name); err != nil {
		s.log.Warnf("等待文件就绪失败: %s, 错误: %v", event.Name, err)
		return
	}

	if err := s.registerMedia(event.Name); err != nil {
		s.log.Errorf("注册导入媒体失败: %s, 错误: %v", event.Name, err)
	} else {
		s.log.Infof("导入媒体已注册: %s", event.Name)
	}
}

// waitForFileReady 轮询文件大小直到稳定，避免处理写入中的文件
func (s *MediaWatchService) waitForFileReady(path string) error {
	var lastSize int64 = -1
	for i := 0; i < 30; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() > 0 && info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()
		time.Sleep(time.Second)
	}
	return fmt.Errorf("文件大小在30秒内未稳定")
}

// registerMedia 把导入文件登记到对应节目。
// 目录结构：watch_dir/<episodeID>/xxx.mp4，broll 子目录下的视频登记为空镜素材。
func (s *MediaWatchService) registerMedia(path string) error {
	episodeID, sourceType, err := s.parseImportPath(path)
	if err != nil {
		return err
	}

	var episode model.Episode
	if err := s.db.First(&episode, episodeID).Error; err != nil {
		return fmt.Errorf("导入目录对应的节目不存在: %d", episodeID)
	}

	duration, err := render.ProbeDuration(path)
	if err != nil {
		return fmt.Errorf("探测媒体时长失败: %w", err)
	}

	now := time.Now()
	if pathhelper.HasAudioExt(path) {
		// 音频文件更新节目音轨
		episode.AudioPath = path
		episode.AudioDuration = duration
		episode.LastModifiedAt = now
		return s.db.Save(&episode).Error
	}

	var count int64
	s.db.Model(&model.VideoSource{}).Where("episode_id = ?", episodeID).Count(&count)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	source := model.VideoSource{
		EpisodeID:       episode.ID,
		SourceType:      sourceType,
		FilePath:        path,
		DurationSeconds: duration,
		DisplayOrder:    int(count),
		PersonLabel:     name,
	}
	if err := s.db.Create(&source).Error; err != nil {
		return err
	}

	episode.LastModifiedAt = now
	return s.db.Save(&episode).Error
}

// parseImportPath 从导入路径解析节目ID与来源类型
func (s *MediaWatchService) parseImportPath(path string) (uint, string, error) {
	rel, err := filepath.Rel(s.cfg.Media.WatchDir, path)
	if err != nil {
		return 0, "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return 0, "", fmt.Errorf("导入文件必须放在节目子目录下: %s", rel)
	}
	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("无法从目录名解析节目ID: %s", parts[0])
	}
	sourceType := model.SourceTypeSpeaker
	if len(parts) >= 3 && parts[1] == "broll" {
		sourceType = model.SourceTypeBroll
	}
	return uint(id), sourceType, nil
}
