package handler

import (
	"Harbor/internal/pkg/response"
	"Harbor/internal/service"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	mediaSvc service.MediaService
}

func NewMediaHandler(mediaSvc service.MediaService) *MediaHandler {
	return &MediaHandler{mediaSvc: mediaSvc}
}

func (s *MediaHandler) Upload(c *gin.Context) {
	userID := c.GetUint64("user_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	mimeType := fileHeader.Header.Get("Content-Type")
	result, err := s.mediaSvc.Upload(c.Request.Context(), userID, fileHeader.Filename, mimeType, fileHeader.Size, file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
