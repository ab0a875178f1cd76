package render

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clip-forge/app/logger"

	"github.com/patrickmn/go-cache"
	"resty.dev/v3"
)

// AssetFetcher 远程素材预取器。
// 渲染器运行在受限环境中，无法可靠访问外部或局域网 URL，
// 因此渲染前把远程图片/动画素材抓取为内嵌 data URI，按 URL 记忆化。
type AssetFetcher struct {
	client  *resty.Client
	cache   *cache.Cache
	timeout time.Duration
	logger  *logger.Logger
}

// NewAssetFetcher 创建素材预取器，timeout 为单次抓取的超时
func NewAssetFetcher(timeout time.Duration, log *logger.Logger) *AssetFetcher {
	return &AssetFetcher{
		client:  resty.New(),
		cache:   cache.New(cache.NoExpiration, 30*time.Minute),
		timeout: timeout,
		logger:  log,
	}
}

// Close 释放底层 HTTP 客户端
func (f *AssetFetcher) Close() error {
	return f.client.Close()
}

// FetchDataURI 抓取远程素材并编码为 data URI。
// 非远程地址原样返回；同一 URL 只抓取一次。
func (f *AssetFetcher) FetchDataURI(ctx context.Context, url string) (string, error) {
	if !IsRemoteURL(url) {
		return url, nil
	}
	if v, ok := f.cache.Get(url); ok {
		return v.(string), nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	resp, err := f.client.R().
		SetContext(reqCtx).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("抓取远程素材失败: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("抓取远程素材失败，状态码: %d", resp.StatusCode())
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	uri := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(resp.Bytes())

	f.cache.Set(url, uri, cache.NoExpiration)
	if f.logger != nil {
		f.logger.Debugf("远程素材已内嵌: %s (%d 字节)", url, len(resp.Bytes()))
	}
	return uri, nil
}

// IsRemoteURL 判断是否为需要预取的远程地址
func IsRemoteURL(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
