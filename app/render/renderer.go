package render

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"

	"clip-forge/app/logger"
)

// RenderOutput 渲染完成后探测到的输出信息
type RenderOutput struct {
	Path            string
	DurationSeconds float64
	Width           int
	Height          int
	SizeBytes       int64
}

// CompositionRenderer 合成渲染器。指令包是自描述的，
// 渲染器不访问数据库，只消费指令并产出视频文件。
type CompositionRenderer interface {
	Render(ctx context.Context, props *ClipProps, outputPath string, onProgress func(percent int)) (*RenderOutput, error)
}

// ExecRenderer 通过外部 CLI 调用合成渲染器。
// 指令包以 JSON 文件传入，进度从标准输出逐行解析，
// ctx 超时会强制终止子进程。
type ExecRenderer struct {
	Bin     string // 可执行文件，如 npx
	Entry   string // 渲染器入口，如 remotion
	TempDir string
	Logger  *logger.Logger
}

// NewExecRenderer 创建外部进程渲染器
func NewExecRenderer(bin, entry, tempDir string, log *logger.Logger) *ExecRenderer {
	return &ExecRenderer{Bin: bin, Entry: entry, TempDir: tempDir, Logger: log}
}

var progressPattern = regexp.MustCompile(`(\d{1,3})%`)

// Render 执行一次完整渲染
func (r *ExecRenderer) Render(ctx context.Context, props *ClipProps, outputPath string, onProgress func(percent int)) (*RenderOutput, error) {
	if err := os.MkdirAll(r.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	// 指令包写入临时文件，渲染结束后无论成败都删除
	propsFile := filepath.Join(r.TempDir, fmt.Sprintf("props_clip_%d_%s.json", props.ClipID, FormatTagOf(props.Format)))
	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("序列化渲染指令失败: %w", err)
	}
	if err := os.WriteFile(propsFile, data, 0644); err != nil {
		return nil, fmt.Errorf("写入渲染指令失败: %w", err)
	}
	defer os.Remove(propsFile)

	cmd := exec.CommandContext(ctx, r.Bin, r.Entry, "render", "clip", outputPath,
		"--props="+propsFile,
		"--width="+strconv.Itoa(props.Width),
		"--height="+strconv.Itoa(props.Height),
		"--fps="+strconv.Itoa(props.FPS),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("连接渲染器输出失败: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("启动渲染器失败: %w", err)
	}

	// 逐行解析进度
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if m := progressPattern.FindStringSubmatch(line); m != nil {
			if p, err := strconv.Atoi(m[1]); err == nil && p >= 0 && p <= 100 && onProgress != nil {
				onProgress(p)
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("渲染超时，子进程已被终止")
		}
		return nil, fmt.Errorf("渲染器执行失败: %v, 输出: %s", err, stderr.String())
	}

	return ProbeOutput(outputPath)
}

// ffprobe 输出结构
type probeResult struct {
	Streams []struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// ProbeOutput 使用 ffprobe 探测输出文件的时长与分辨率
func ProbeOutput(path string) (*RenderOutput, error) {
	cmd := exec.Command("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "v:0",
		path,
	)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe 执行失败: %v, 输出: %s", err, stderr.String())
	}

	var result probeResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("解析 ffprobe 输出失败: %w", err)
	}

	output := &RenderOutput{Path: path}
	if result.Format.Duration != "" {
		if d, err := strconv.ParseFloat(result.Format.Duration, 64); err == nil {
			output.DurationSeconds = d
		}
	}
	if result.Format.Size != "" {
		if s, err := strconv.ParseInt(result.Format.Size, 10, 64); err == nil {
			output.SizeBytes = s
		}
	}
	if len(result.Streams) > 0 {
		output.Width = result.Streams[0].Width
		output.Height = result.Streams[0].Height
	}
	return output, nil
}

// ProbeDuration 探测媒体文件时长(秒)，用于媒体导入
func ProbeDuration(path string) (float64, error) {
	out, err := ProbeOutput(path)
	if err != nil {
		return 0, err
	}
	return out.DurationSeconds, nil
}

// FormatTagOf 画幅格式的文件名安全形式，如 16:9 → 16x9
func FormatTagOf(format string) string {
	tag := make([]byte, 0, len(format))
	for i := 0; i < len(format); i++ {
		if format[i] == ':' {
			tag = append(tag, 'x')
		} else {
			tag = append(tag, format[i])
		}
	}
	return string(tag)
}
