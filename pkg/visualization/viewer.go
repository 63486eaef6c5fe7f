// Package visualization exports reconstructed complex images as
// grayscale magnitude slices for visual inspection.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/cmplx"
	"os"
	"path/filepath"

	"bpsense/internal/models"
	"bpsense/pkg/array"
)

// Viewer renders slices of a reconstructed image. The image magnitude
// is normalized to its maximum once at construction.
type Viewer struct {
	img *array.Array

	width  int
	height int
	depth  int

	maxMag float64
}

// NewViewer creates a viewer for the given image array. Only the
// spatial axes are rendered; coil, map and batch axes must all be
// collapsed so the flat slice index is purely spatial.
func NewViewer(img *array.Array) (*Viewer, error) {
	if img.Dims[models.DimCoil] != 1 {
		return nil, fmt.Errorf("visualization: image still carries %d coils", img.Dims[models.DimCoil])
	}
	for d := models.DimMaps; d < len(img.Dims); d++ {
		if img.Dims[d] != 1 {
			return nil, fmt.Errorf("visualization: non-spatial axis %d not collapsed (size %d)", d, img.Dims[d])
		}
	}
	v := &Viewer{
		img:    img,
		width:  img.Dims[models.DimX],
		height: img.Dims[models.DimY],
		depth:  img.Dims[models.DimZ],
	}
	for _, c := range img.Data {
		if m := cmplx.Abs(c); m > v.maxMag {
			v.maxMag = m
		}
	}
	return v, nil
}

// ExtractSlice renders the magnitude of one XY plane at depth z.
func (v *Viewer) ExtractSlice(z int) (image.Image, error) {
	if z < 0 || z >= v.depth {
		return nil, fmt.Errorf("visualization: slice %d out of range [0, %d)", z, v.depth)
	}

	img := image.NewGray16(image.Rect(0, 0, v.width, v.height))
	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			idx := x + v.width*(y+v.height*z)
			mag := cmplx.Abs(v.img.Data[idx])
			val := uint16(0)
			if v.maxMag > 0 {
				val = uint16(mag / v.maxMag * 65535)
			}
			img.SetGray16(x, y, color.Gray16{Y: val})
		}
	}
	return img, nil
}

// SaveSlice saves a rendered slice as a JPEG image.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveSliceSequence renders and saves every XY plane into outputDir.
func (v *Viewer) SaveSliceSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for z := 0; z < v.depth; z++ {
		img, err := v.ExtractSlice(z)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.jpg", z))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
