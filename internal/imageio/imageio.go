package imageio

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
)

// OpenExtensions are the formats offered by the load dialog.
var OpenExtensions = []string{".png", ".jpg", ".jpeg", ".bmp"}

// SaveExtensions are the formats offered by the save dialog.
var SaveExtensions = []string{".jpg", ".png"}

const fallbackExt = ".jpg"

func Load(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	return img, nil
}

// Save writes img to path, choosing the encoder from the extension.
func Save(img image.Image, path string) error {
	if img == nil {
		return fmt.Errorf("save %s: no image", path)
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return fmt.Errorf("save image %s: %w", path, err)
	}
	return nil
}

// DefaultSaveName derives "{name}_res{ext}" keeping the extension verbatim.
func DefaultSaveName(filename string) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_res" + ext
}

// EnsureExtension appends .jpg unless path already ends in a savable extension.
func EnsureExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".jpeg" {
		return path
	}
	for _, e := range SaveExtensions {
		if ext == e {
			return path
		}
	}
	return path + fallbackExt
}

func IsOpenable(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range OpenExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
