package pptxtpl

import (
	"path/filepath"

	"github.com/mtucker502/pptxtpl/pkg/pptxtpl/pptx"
)

// InlineImage marks a spot for image substitution. Rendering replaces the
// placeholder with a marker string carrying the absolute image path;
// turning the marker into a real picture shape is left to the caller's
// post-processing, since picture placement depends on the template's shape
// structure.
type InlineImage struct {
	path   string
	width  pptx.Emu
	height pptx.Emu
}

// NewInlineImage records an image for template substitution. Width and
// height of zero keep the image's natural size.
func NewInlineImage(path string, width, height pptx.Emu) *InlineImage {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &InlineImage{path: path, width: width, height: height}
}

func (img *InlineImage) Path() string {
	return img.path
}

func (img *InlineImage) Width() pptx.Emu {
	return img.width
}

func (img *InlineImage) Height() pptx.Emu {
	return img.height
}

func (img *InlineImage) String() string {
	return "[InlineImage:" + img.path + "]"
}
