package database

import "clip-forge/app/model"

func AutoMigrate() error {
	// 自动迁移表结构
	return DB.AutoMigrate(
		&model.User{},
		&model.Episode{},
		&model.VideoSource{},
		&model.Clip{},
		&model.Timeline{},
		&model.RenderedArtifact{},
	)
}
