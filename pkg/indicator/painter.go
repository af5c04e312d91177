package indicator

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// BadgeSize 徽标边长（像素）
const BadgeSize = 16

// Painter 将文本绘制成小尺寸位图
type Painter interface {
	Paint(text string, level Level) (image.Image, error)
}

// PainterFunc 允许普通函数作为Painter使用
type PainterFunc func(text string, level Level) (image.Image, error)

// Paint 实现Painter接口
func (f PainterFunc) Paint(text string, level Level) (image.Image, error) {
	return f(text, level)
}

// BadgePainter 绘制圆角背景加白色像素字的16×16徽标
type BadgePainter struct {
	Radius int // 圆角半径，0表示直角
}

// NewBadgePainter 创建默认徽标绘制器
func NewBadgePainter() *BadgePainter {
	return &BadgePainter{Radius: 3}
}

// Paint 实现Painter接口
func (p *BadgePainter) Paint(text string, level Level) (image.Image, error) {
	width := textWidth(text)
	if width > BadgeSize {
		return nil, fmt.Errorf("文本 %q 超出徽标宽度", text)
	}

	img := image.NewRGBA(image.Rect(0, 0, BadgeSize, BadgeSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: level.Color()}, image.Point{}, draw.Src)
	p.roundCorners(img)

	x := (BadgeSize - width) / 2
	y := (BadgeSize - glyphHeight) / 2
	for i, r := range text {
		if i > 0 {
			x++
		}
		g, ok := glyphs[r]
		if !ok {
			return nil, fmt.Errorf("不支持的字符 %q", r)
		}
		drawGlyph(img, g, x, y, color.White)
		x += len(g[0])
	}
	return img, nil
}

// roundCorners 将圆角外的像素设为透明
func (p *BadgePainter) roundCorners(img *image.RGBA) {
	r := p.Radius
	if r <= 0 {
		return
	}
	last := BadgeSize - 1
	for dy := 0; dy < r; dy++ {
		for dx := 0; dx < r; dx++ {
			// 以(r,r)为圆心，半径r之外的角落像素
			cx, cy := r-dx, r-dy
			if cx*cx+cy*cy <= r*r {
				continue
			}
			img.Set(dx, dy, color.Transparent)
			img.Set(last-dx, dy, color.Transparent)
			img.Set(dx, last-dy, color.Transparent)
			img.Set(last-dx, last-dy, color.Transparent)
		}
	}
}

func drawGlyph(img *image.RGBA, g glyph, x, y int, c color.Color) {
	for row, line := range g {
		for col, px := range line {
			if px == '#' {
				img.Set(x+col, y+row, c)
			}
		}
	}
}

// textWidth 返回文本渲染后的像素宽度（字间距1像素）
func textWidth(text string) int {
	width, n := 0, 0
	for _, r := range text {
		g, ok := glyphs[r]
		if !ok {
			continue
		}
		width += len(g[0])
		n++
	}
	if n > 1 {
		width += n - 1
	}
	return width
}

// glyph 固定5行高的点阵字形
type glyph [glyphHeight]string

const glyphHeight = 5

var glyphs = map[rune]glyph{
	'0': {"###", "#.#", "#.#", "#.#", "###"},
	'1': {".#.", "##.", ".#.", ".#.", "###"},
	'2': {"###", "..#", "###", "#..", "###"},
	'3': {"###", "..#", ".##", "..#", "###"},
	'4': {"#.#", "#.#", "###", "..#", "..#"},
	'5': {"###", "#..", "###", "..#", "###"},
	'6': {"###", "#..", "###", "#.#", "###"},
	'7': {"###", "..#", ".#.", ".#.", ".#."},
	'8': {"###", "#.#", "###", "#.#", "###"},
	'9': {"###", "#.#", "###", "..#", "###"},
	'X': {"#.#", "#.#", ".#.", "#.#", "#.#"},
	'K': {"#.#", "##.", "#..", "##.", "#.#"},
	'+': {"...", ".#.", "###", ".#.", "..."},
	'.': {".", ".", ".", ".", "#"},
}
