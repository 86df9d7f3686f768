package conversion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ResizeImage scales img to exactly width x height, ignoring aspect ratio.
// Area interpolation is used when shrinking and cubic when enlarging.
func ResizeImage(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", width, height)
	}

	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return img, nil
	}

	src, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("image to Mat conversion failed: %w", err)
	}
	defer src.Close()

	if err := ValidateMatForOperation(src, "Mat resizing"); err != nil {
		return nil, err
	}

	dst := gocv.NewMat()
	defer dst.Close()

	gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, interpolationFor(bounds, width, height))
	if err := ValidateMatForOperation(dst, "Mat to image conversion"); err != nil {
		return nil, err
	}

	out, err := dst.ToImage()
	if err != nil {
		return nil, fmt.Errorf("Mat to image conversion failed: %w", err)
	}
	return out, nil
}

func interpolationFor(src image.Rectangle, width, height int) gocv.InterpolationFlags {
	if width*height < src.Dx()*src.Dy() {
		return gocv.InterpolationArea
	}
	return gocv.InterpolationCubic
}
