package pattern

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// Texture is a pattern tile held in host memory in RGBA order, the same
// layout uploaded to the GPU.
type Texture struct {
	img *image.RGBA
}

// NewTexture copies img into a new texture.
func NewTexture(img image.Image) (*Texture, error) {
	if img == nil {
		return nil, ErrNilTexture
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrNilTexture
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Texture{img: dst}, nil
}

// Size returns the texture size in texels.
func (t *Texture) Size() (width, height int) {
	return t.img.Rect.Dx(), t.img.Rect.Dy()
}

// RGBA returns the texel data. The image must not be modified.
func (t *Texture) RGBA() *image.RGBA {
	return t.img
}

// Sample returns the texel at uv with nearest filtering. uv is wrapped into
// [0, 1) first, so any pattern coordinate can be passed directly.
func (t *Texture) Sample(uv [2]float32) color.RGBA {
	uv = Wrap(uv)
	w, h := t.Size()
	x := min(int(uv[0]*float32(w)), w-1)
	y := min(int(uv[1]*float32(h)), h-1)
	return t.img.RGBAAt(x, y)
}

// Checkerboard draws a size x size tile split into 2x2 cells, a in the top
// left and bottom right cells and b in the others.
func Checkerboard(size int, a, b color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	half := size / 2
	draw.Draw(img, img.Bounds(), image.NewUniform(b), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, half, half), image.NewUniform(a), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(half, half, size, size), image.NewUniform(a), image.Point{}, draw.Src)
	return img
}

// Stripes draws diagonal stripes of width px in fg over bg.
func Stripes(size, width int, fg, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	if width <= 0 {
		return img
	}
	c := color.RGBAModel.Convert(fg).(color.RGBA)
	for y := range size {
		for x := range size {
			// x+y keeps the stripes continuous across tile edges when size
			// is a multiple of 2*width
			if ((x+y)/width)%2 == 0 {
				img.SetRGBA(x, y, c)
			}
		}
	}
	return img
}

// Dots draws one anti-aliased dot of the given radius centered in the tile.
func Dots(size int, radius float32, fg, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	if radius <= 0 {
		return img
	}

	const segments = 32
	z := vector.NewRasterizer(size, size)
	cx, cy := float32(size)/2, float32(size)/2
	for i := range segments {
		a := 2 * math32.Pi * float32(i) / segments
		x, y := cx+radius*math32.Cos(a), cy+radius*math32.Sin(a)
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
	z.DrawOp = draw.Over
	z.Draw(img, img.Bounds(), image.NewUniform(fg), image.Point{})
	return img
}
