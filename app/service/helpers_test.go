package service

import (
	"path/filepath"
	"testing"
	"time"

	"clip-forge/app/config"
	"clip-forge/app/logger"
	"clip-forge/app/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&model.Episode{},
		&model.VideoSource{},
		&model.Clip{},
		&model.Timeline{},
		&model.RenderedArtifact{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func newTestLogger() *logger.Logger {
	return logger.New(config.LogConfig{Level: "error", Format: "text", Output: "stdout"})
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Render: config.RenderConfig{
			OutputDir:            filepath.Join(t.TempDir(), "output"),
			TempDir:              t.TempDir(),
			MaxConcurrent:        2,
			AssetTimeoutSec:      1,
			TimeoutMin:           1,
			PreRollMs:            200,
			HoldPreviousMs:       1000,
			MinShotMs:            1500,
			DefaultWordsPerGroup: 4,
		},
	}
}

// seedEpisode 写入一期带两个机位和一个片段的节目，返回节目与片段ID
func seedEpisode(t *testing.T, db *gorm.DB) (uint, uint) {
	t.Helper()
	episode := model.Episode{
		Title:          "测试节目",
		AudioPath:      "/media/ep/raw.wav",
		AudioDuration:  1800,
		MixedAudioPath: "/media/ep/mixed.wav",
		TranscriptSegments: model.SegmentList{
			{Speaker: "host", PersonID: "spk-a", Start: 0, End: 900},
			{Speaker: "guest", PersonID: "spk-b", Start: 900, End: 1800},
		},
		LastModifiedAt: time.Now(),
	}
	if err := db.Create(&episode).Error; err != nil {
		t.Fatalf("seed episode: %v", err)
	}

	sources := []model.VideoSource{
		{EpisodeID: episode.ID, SourceType: model.SourceTypeSpeaker, FilePath: "/media/ep/cam-a.mp4", PersonID: "spk-a", DurationSeconds: 1800, DisplayOrder: 0},
		{EpisodeID: episode.ID, SourceType: model.SourceTypeSpeaker, FilePath: "/media/ep/cam-b.mp4", PersonID: "spk-b", DurationSeconds: 1800, DisplayOrder: 1},
	}
	for i := range sources {
		if err := db.Create(&sources[i]).Error; err != nil {
			t.Fatalf("seed source: %v", err)
		}
	}

	clip := model.Clip{
		EpisodeID: episode.ID,
		Title:     "测试片段",
		StartTime: 100,
		EndTime:   120,
		Words: model.WordList{
			{Word: "hello", Start: 100.2, End: 100.6},
			{Word: "world", Start: 100.6, End: 101.1},
		},
		LastModifiedAt: time.Now(),
	}
	if err := db.Create(&clip).Error; err != nil {
		t.Fatalf("seed clip: %v", err)
	}
	return episode.ID, clip.ID
}
