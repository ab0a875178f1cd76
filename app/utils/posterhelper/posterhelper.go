package posterhelper

import (
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// 封面图绘制尺寸按输出分辨率的一半，最终缩略到固定宽度
const thumbnailWidth = 480

// Generate 为渲染产物生成封面图：渐变背景 + 标题 + 画幅标签
func Generate(title, format string, width, height int, outPath string) error {
	w, h := width/2, height/2
	if w <= 0 || h <= 0 {
		return fmt.Errorf("无效的封面图尺寸: %dx%d", width, height)
	}

	dc := gg.NewContext(w, h)

	// 与默认时间线背景一致的渐变
	grad := gg.NewLinearGradient(0, 0, 0, float64(h))
	grad.AddColorStop(0, parseHex("#1a1a2e"))
	grad.AddColorStop(1, parseHex("#16213e"))
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("解析内置字体失败: %w", err)
	}

	titleFace, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(h) / 12, DPI: 72})
	if err != nil {
		return fmt.Errorf("创建字体失败: %w", err)
	}
	dc.SetFontFace(titleFace)
	dc.SetRGB(1, 1, 1)
	if title == "" {
		title = "Untitled Clip"
	}
	dc.DrawStringWrapped(title, float64(w)/2, float64(h)/2, 0.5, 0.5, float64(w)*0.8, 1.4, gg.AlignCenter)

	tagFace, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(h) / 24, DPI: 72})
	if err != nil {
		return fmt.Errorf("创建字体失败: %w", err)
	}
	dc.SetFontFace(tagFace)
	dc.SetRGBA(1, 1, 1, 0.6)
	dc.DrawStringAnchored(format, float64(w)-16, float64(h)-16, 1, 1)

	thumb := imaging.Resize(dc.Image(), thumbnailWidth, 0, imaging.Lanczos)
	return imaging.Save(thumb, outPath)
}

// parseHex 解析 #rrggbb 颜色
func parseHex(s string) color.RGBA {
	var r, g, b uint8
	fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
