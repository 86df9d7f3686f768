package conversion

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DefaultJPEGQuality is used when re-encoding downloaded pages.
const DefaultJPEGQuality = 92

// NormalizeToJPEG decodes any image OpenCV can read, drops alpha and palette
// information by loading it as 3-channel colour, and re-encodes it as a
// baseline JPEG. The pixel size of the page is returned alongside.
func NormalizeToJPEG(data []byte, quality int) ([]byte, image.Point, error) {
	if len(data) == 0 {
		return nil, image.Point{}, fmt.Errorf("no image data")
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode image: %w", err)
	}
	defer mat.Close()

	if err := ValidateMatForOperation(mat, "JPEG normalisation"); err != nil {
		return nil, image.Point{}, err
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("encode JPEG: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, image.Pt(mat.Cols(), mat.Rows()), nil
}
