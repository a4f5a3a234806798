package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"

	"github.com/freyr-data/tfrecord/pkg/example"
)

// ColorSpace identifies the channel layout of a decoded image. The numeric
// values are part of the upstream summary schema.
type ColorSpace int

const (
	Luma       ColorSpace = 1
	LumaA      ColorSpace = 2
	RGB        ColorSpace = 3
	RGBA       ColorSpace = 4
	DigitalYUV ColorSpace = 5
	BGRA       ColorSpace = 6
)

// NumChannels returns the samples per pixel
func (c ColorSpace) NumChannels() int {
	switch c {
	case Luma:
		return 1
	case LumaA:
		return 2
	case RGB, DigitalYUV:
		return 3
	case RGBA, BGRA:
		return 4
	default:
		return 0
	}
}

func (c ColorSpace) String() string {
	switch c {
	case Luma:
		return "luma"
	case LumaA:
		return "luma-alpha"
	case RGB:
		return "rgb"
	case RGBA:
		return "rgba"
	case DigitalYUV:
		return "digital-yuv"
	case BGRA:
		return "bgra"
	default:
		return fmt.Sprintf("colorspace(%d)", int(c))
	}
}

// Image is a decoded raster: row-major interleaved 8-bit samples,
// len(Pixels) == Width*Height*ColorSpace.NumChannels()
type Image struct {
	Width      int
	Height     int
	ColorSpace ColorSpace
	Pixels     []byte
}

// Tensor views the pixel buffer as a [height, width, channels] uint8 tensor
func (img *Image) Tensor() (*Dense, error) {
	return NewUint8(img.Pixels, img.Height, img.Width, img.ColorSpace.NumChannels())
}

// Magic prefixes of the supported container formats
var (
	magicPNG  = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	magicJPEG = []byte{0xff, 0xd8, 0xff}
	magicGIF  = []byte("GIF8")
	magicBMP  = []byte("BM")
)

// DecodeImageFeature decodes an encoded-image feature: a single-element
// bytes list holding a PNG, JPEG, GIF, or BMP stream. The container is
// identified by its magic prefix.
func DecodeImageFeature(v example.Value) (*Image, error) {
	b, ok := v.(example.BytesList)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedElementType, example.KindOf(v))
	}
	if len(b) != 1 {
		return nil, fmt.Errorf("%w: want a single encoded image, have %d byte strings",
			ErrUnsupportedImageFormat, len(b))
	}
	return DecodeImage(b[0])
}

// DecodeImage decodes an encoded image stream
func DecodeImage(data []byte) (*Image, error) {
	var (
		src image.Image
		err error
	)
	switch {
	case bytes.HasPrefix(data, magicPNG):
		src, err = png.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, magicJPEG):
		src, err = jpeg.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, magicGIF):
		src, err = gif.Decode(bytes.NewReader(data))
	case bytes.HasPrefix(data, magicBMP):
		src, err = bmp.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%w: unrecognized magic", ErrUnsupportedImageFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImageFormat, err)
	}
	return fromStdImage(src)
}

// fromStdImage flattens a decoded image into interleaved 8-bit samples.
// Grayscale stays single-channel; everything else lands in RGBA.
func fromStdImage(src image.Image) (*Image, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if gray, ok := src.(*image.Gray); ok {
		n, err := numElements([]int{h, w})
		if err != nil {
			return nil, err
		}
		pixels := make([]byte, 0, n)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := gray.Pix[(y-bounds.Min.Y)*gray.Stride:]
			pixels = append(pixels, row[:w]...)
		}
		return &Image{Width: w, Height: h, ColorSpace: Luma, Pixels: pixels}, nil
	}

	n, err := numElements([]int{h, w, 4})
	if err != nil {
		return nil, err
	}
	pixels := make([]byte, 0, n)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := src.At(x, y).RGBA()
			pixels = append(pixels, byte(r>>8), byte(g>>8), byte(b>>8), byte(a>>8))
		}
	}
	return &Image{Width: w, Height: h, ColorSpace: RGBA, Pixels: pixels}, nil
}

// EncodeImageFeature PNG-encodes an image into a single-element bytes list
func EncodeImageFeature(img *Image) (example.Value, error) {
	want, err := numElements([]int{img.Height, img.Width, img.ColorSpace.NumChannels()})
	if err != nil {
		return nil, err
	}
	if want != len(img.Pixels) {
		return nil, fmt.Errorf("%w: %dx%d %s wants %d samples, have %d",
			ErrShapeMismatch, img.Width, img.Height, img.ColorSpace, want, len(img.Pixels))
	}

	var dst image.Image
	switch img.ColorSpace {
	case Luma:
		gray := image.NewGray(image.Rect(0, 0, img.Width, img.Height))
		copy(gray.Pix, img.Pixels)
		dst = gray

	case RGBA:
		rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		copy(rgba.Pix, img.Pixels)
		dst = rgba

	case RGB:
		rgba := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
		for i := 0; i < img.Width*img.Height; i++ {
			rgba.Pix[i*4+0] = img.Pixels[i*3+0]
			rgba.Pix[i*4+1] = img.Pixels[i*3+1]
			rgba.Pix[i*4+2] = img.Pixels[i*3+2]
			rgba.Pix[i*4+3] = 0xff
		}
		dst = rgba

	default:
		return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupportedImageFormat, img.ColorSpace)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImageFormat, err)
	}
	return example.BytesList{buf.Bytes()}, nil
}
