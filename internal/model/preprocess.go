package model

import (
	"bytes"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ErrImageDecode marks uploads that are not a readable JPEG or PNG.
var ErrImageDecode = errors.New("image decode failed")

// DecodeImage decodes a JPEG or PNG image.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", errors.Wrapf(ErrImageDecode, "%v", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, "", errors.Wrap(ErrImageDecode, "empty image")
	}
	return img, format, nil
}

// DecodeBytes is DecodeImage over an in-memory upload.
func DecodeBytes(data []byte) (image.Image, string, error) {
	return DecodeImage(bytes.NewReader(data))
}

// Preprocess resizes img to the model's square input and scales every
// channel to [0,1]. The result is one batch element in the given layout.
func Preprocess(img image.Image, in Input) []float32 {
	size := in.Size
	// Nearest neighbour is what the Keras loader used at training time.
	resized := resize.Resize(uint(size), uint(size), dropAlpha(img), resize.NearestNeighbor)
	bounds := resized.Bounds()

	plane := size * size
	inputData := make([]float32, 3*plane)

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			rNorm := float32(c.R) / 255.0
			gNorm := float32(c.G) / 255.0
			bNorm := float32(c.B) / 255.0

			pixelIndex := y*size + x
			if in.Layout == LayoutNCHW {
				inputData[pixelIndex] = rNorm
				inputData[plane+pixelIndex] = gNorm
				inputData[2*plane+pixelIndex] = bNorm
				continue
			}
			inputData[3*pixelIndex] = rNorm
			inputData[3*pixelIndex+1] = gNorm
			inputData[3*pixelIndex+2] = bNorm
		}
	}

	return inputData
}

// dropAlpha keeps the straight (non-premultiplied) colour of every pixel and
// discards transparency, the way an RGB conversion of a PNG cutout does.
func dropAlpha(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			c.A = 0xff
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}
