package util

import (
	"bytes"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const thumbnailWidth = 320

// IsImageMime 判断是否为可生成缩略图的图片类型
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// MakeThumbnail 生成定宽缩略图，保持纵横比，输出 JPEG
func MakeThumbnail(reader io.Reader) (*bytes.Buffer, error) {
	img, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(err, "decode image failed")
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, errors.Wrap(err, "encode thumbnail failed")
	}
	return &buf, nil
}
