package service

import (
	"Harbor/internal/api/config"
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/minio"
	"Harbor/internal/pkg/util"
	"bytes"
	"context"
	"fmt"
	"io"
	log "log/slog"
	"path"

	"github.com/google/uuid"
)

type MediaService interface {
	Upload(ctx context.Context, userID uint64, filename, mimeType string, size int64, reader io.Reader) (*dto.MediaUploadDTO, error)
}

type mediaServiceImpl struct{}

func NewMediaService() MediaService {
	return &mediaServiceImpl{}
}

// Upload 附件入桶，图片额外生成一张缩略图
func (s *mediaServiceImpl) Upload(ctx context.Context, userID uint64, filename, mimeType string, size int64, reader io.Reader) (*dto.MediaUploadDTO, error) {
	if size <= 0 || size > config.Cfg.Chat.MaxAttachmentSize {
		return nil, ErrParamInvalid
	}

	ext := path.Ext(filename)
	objectName := fmt.Sprintf("chat/%d/%s%s", userID, uuid.NewString(), ext)

	out := &dto.MediaUploadDTO{
		Name:     filename,
		Size:     size,
		MimeType: mimeType,
	}

	if util.IsImageMime(mimeType) {
		data, err := io.ReadAll(io.LimitReader(reader, config.Cfg.Chat.MaxAttachmentSize+1))
		if err != nil {
			return nil, UnExpectedError
		}
		if int64(len(data)) > config.Cfg.Chat.MaxAttachmentSize {
			return nil, ErrParamInvalid
		}

		key, err := minio.UploadFile(ctx, objectName, bytes.NewReader(data), int64(len(data)), mimeType)
		if err != nil {
			log.Error("upload attachment failed", "object", objectName, "err", err)
			return nil, UnExpectedError
		}
		out.URL = minio.GetPublicURL(key)

		// 缩略图失败不阻塞上传
		if thumb, err := util.MakeThumbnail(bytes.NewReader(data)); err == nil {
			thumbName := fmt.Sprintf("chat/%d/thumb_%s.jpg", userID, uuid.NewString())
			if thumbKey, err := minio.UploadFile(ctx, thumbName, thumb, int64(thumb.Len()), "image/jpeg"); err == nil {
				out.ThumbnailURL = minio.GetPublicURL(thumbKey)
			}
		} else {
			log.Warn("thumbnail generation failed", "object", objectName, "err", err)
		}
		return out, nil
	}

	key, err := minio.UploadFile(ctx, objectName, reader, size, mimeType)
	if err != nil {
		log.Error("upload attachment failed", "object", objectName, "err", err)
		return nil, UnExpectedError
	}
	out.URL = minio.GetPublicURL(key)
	return out, nil
}
