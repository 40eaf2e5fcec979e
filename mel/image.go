package mel

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
)

// Image renders a frames x mels spectrogram as a grayscale image scaled
// between its own minimum and maximum.
func Image(spec [][]float64, reverse bool) *image.Gray16 {
	if len(spec) == 0 {
		return image.NewGray16(image.Rect(0, 0, 0, 0))
	}
	mels := len(spec[0])
	img := image.NewGray16(image.Rect(0, 0, len(spec), mels))

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, frame := range spec {
		for _, v := range frame {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 1 / (hi - lo)
	}

	for x, frame := range spec {
		for y, v := range frame {
			col := color.Gray16{Y: uint16(math.Round(65535 * (v - lo) * scale))}
			if reverse {
				img.SetGray16(x, mels-y-1, col)
			} else {
				img.SetGray16(x, y, col)
			}
		}
	}
	return img
}

// SavePNG writes the rendered spectrogram to name.
func SavePNG(name string, spec [][]float64, reverse bool) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, Image(spec, reverse)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
