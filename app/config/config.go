package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	JWT    JWTConfig    `mapstructure:"jwt"`
	Render RenderConfig `mapstructure:"render"`
	Media  MediaConfig  `mapstructure:"media"`
}

type ServerConfig struct {
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

// RenderConfig 渲染相关配置
type RenderConfig struct {
	OutputDir            string `mapstructure:"output_dir"`             // 渲染产物输出目录
	TempDir              string `mapstructure:"temp_dir"`               // 临时文件目录
	RendererBin          string `mapstructure:"renderer_bin"`           // 合成渲染器可执行文件
	RendererEntry        string `mapstructure:"renderer_entry"`         // 渲染器入口脚本
	MaxConcurrent        int    `mapstructure:"max_concurrent"`         // 最大并发渲染任务数
	AssetTimeoutSec      int    `mapstructure:"asset_timeout_sec"`      // 单个远程素材抓取超时（秒）
	TimeoutMin           int    `mapstructure:"timeout_min"`            // 单次渲染的墙钟超时（分钟）
	PreRollMs            int    `mapstructure:"preroll_ms"`             // 切镜提前量（毫秒）
	HoldPreviousMs       int    `mapstructure:"hold_previous_ms"`       // 同源停顿保持时长（毫秒）
	MinShotMs            int    `mapstructure:"min_shot_ms"`            // 最短镜头时长（毫秒）
	DefaultWordsPerGroup int    `mapstructure:"default_words_per_group"` // 默认字幕分组词数
}

// MediaConfig 媒体导入配置
type MediaConfig struct {
	WatchEnabled bool   `mapstructure:"watch_enabled"` // 是否监控导入目录
	WatchDir     string `mapstructure:"watch_dir"`     // 媒体导入目录
}

func Load() *Config {
	setDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "5000")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "clip-forge")

	// 渲染默认配置
	viper.SetDefault("render.output_dir", "data/renders")
	viper.SetDefault("render.temp_dir", "data/tmp")
	viper.SetDefault("render.renderer_bin", "npx")
	viper.SetDefault("render.renderer_entry", "remotion")
	viper.SetDefault("render.max_concurrent", 2)
	viper.SetDefault("render.asset_timeout_sec", 8)
	viper.SetDefault("render.timeout_min", 10)
	viper.SetDefault("render.preroll_ms", 200)
	viper.SetDefault("render.hold_previous_ms", 1000)
	viper.SetDefault("render.min_shot_ms", 1500)
	viper.SetDefault("render.default_words_per_group", 4)

	// 媒体导入默认配置
	viper.SetDefault("media.watch_enabled", false)
	viper.SetDefault("media.watch_dir", "data/media")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Render.MaxConcurrent < 1 {
		return fmt.Errorf("最大并发渲染任务数必须大于0")
	}
	if config.Render.DefaultWordsPerGroup < 1 {
		return fmt.Errorf("默认字幕分组词数必须大于0")
	}
	return nil
}
