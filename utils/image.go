package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // 注册 gif 解码器
	"image/jpeg"
	_ "image/png" // 注册 png 解码器

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // 注册 webp 解码器
)

const (
	DefaultMaxImageSide = 1024
	DefaultJPEGQuality  = 70
	// DefaultMaxImagePixels 约为 6000x4000 的相机原图
	DefaultMaxImagePixels = 24_000_000
)

// ErrImageTooLarge 图片像素总数超过上限，不做解码。
var ErrImageTooLarge = errors.New("图片像素尺寸超过上限")

// NewJPEGEncoder 返回头像编码函数：解码任意支持的格式，最长边超过 maxSide 时等比缩小，
// 透明区域铺白底，最后以 quality 质量输出 JPEG。参数非正数时使用默认值。
// 解码前先读取图片头，宽乘高超过 maxPixels 的图片直接返回 ErrImageTooLarge。
func NewJPEGEncoder(maxSide, quality int, maxPixels int64) func(raw []byte) ([]byte, error) {
	if maxSide <= 0 {
		maxSide = DefaultMaxImageSide
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxImagePixels
	}
	return func(raw []byte) ([]byte, error) {
		header, _, err := image.DecodeConfig(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("utils.NewJPEGEncoder: 读取图片头失败: %w", err)
		}
		if pixels := int64(header.Width) * int64(header.Height); pixels > maxPixels {
			return nil, fmt.Errorf("utils.NewJPEGEncoder: %dx%d: %w", header.Width, header.Height, ErrImageTooLarge)
		}

		src, format, err := image.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("utils.NewJPEGEncoder: 解码图片失败: %w", err)
		}

		w, h := fitWithin(src.Bounds().Dx(), src.Bounds().Dy(), maxSide)
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

		var out bytes.Buffer
		if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("utils.NewJPEGEncoder: 编码 %s 为 JPEG 失败: %w", format, err)
		}
		return out.Bytes(), nil
	}
}

// fitWithin 等比缩放 (w, h) 使最长边不超过 maxSide，不放大。
func fitWithin(w, h, maxSide int) (int, int) {
	if w <= maxSide && h <= maxSide {
		return w, h
	}
	if w >= h {
		nh := h * maxSide / w
		if nh < 1 {
			nh = 1
		}
		return maxSide, nh
	}
	nw := w * maxSide / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxSide
}
