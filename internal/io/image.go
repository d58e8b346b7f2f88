package ioutils

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

// ImageService resizes cover images of downloaded levels.
//
// Some levels ship multi-megapixel covers which the game loads for every
// song list refresh. ImageService shrinks them in place, keeping the file
// format so references in the level's info file stay valid.
//
// Example usage:
//
//	svc := NewImageService()
//	resized, err := svc.ResizeFile("/levels/1a2b3 (Song - Mapper)/cover.jpg", 512)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// ResizeFile shrinks the image at path so both sides fit within maxSize.
//
// The aspect ratio is preserved and the image is re-encoded in its original
// format (JPEG or PNG). Images already within bounds are left untouched and
// ResizeFile reports false.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
func (s *ImageService) ResizeFile(path string, maxSize int) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	resized, changed, err := s.ResizeImage(data, maxSize, maxSize)
	if err != nil || !changed {
		return false, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, resized, info.Mode().Perm()); err != nil {
		return false, err
	}
	return true, nil
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// Returns the re-encoded bytes and true when the image was larger than the
// bounds; otherwise the input is returned unchanged with false.
//
// Example:
//
//	// A 1500x1000 image becomes 1000x667
//	// A 800x600 image is returned as-is
//	resized, changed, err := svc.ResizeImage(imageData, 1000, 1000)
func (s *ImageService) ResizeImage(data []byte, maxWidth, maxHeight int) ([]byte, bool, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxWidth && height <= maxHeight {
		return data, false, nil
	}

	// Calculate new dimensions maintaining aspect ratio
	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		width = int(float64(maxHeight) * ratio)
		height = maxHeight
	} else {
		// Width is the limiting factor
		height = int(float64(maxWidth) / ratio)
		width = maxWidth
	}
	width = max(width, 1)
	height = max(height, 1)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		return nil, false, err
	}

	return buf.Bytes(), true, nil
}
