package handler

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/response"
	"Harbor/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	convSvc service.ConversationService
}

func NewConversationHandler(convSvc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{convSvc: convSvc}
}

func (s *ConversationHandler) CreateDirect(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.CreateDirectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	conv, err := s.convSvc.CreateDirect(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conv)
}

func (s *ConversationHandler) CreateGroup(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.CreateGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	conv, err := s.convSvc.CreateGroup(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conv)
}

func (s *ConversationHandler) List(c *gin.Context) {
	userID := c.GetUint64("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	convs, err := s.convSvc.List(c.Request.Context(), userID, page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, convs)
}

func (s *ConversationHandler) Get(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	conv, err := s.convSvc.Get(c.Request.Context(), userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conv)
}

func (s *ConversationHandler) Archive(c *gin.Context) {
	s.setArchived(c, true)
}

func (s *ConversationHandler) Unarchive(c *gin.Context) {
	s.setArchived(c, false)
}

func (s *ConversationHandler) setArchived(c *gin.Context, archived bool) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	if err := s.convSvc.SetArchived(c.Request.Context(), userID, convID, archived); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ConversationHandler) Hide(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	if err := s.convSvc.Hide(c.Request.Context(), userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ConversationHandler) Mute(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	var req dto.MuteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err := s.convSvc.SetMuted(c.Request.Context(), userID, convID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ConversationHandler) Pin(c *gin.Context) {
	s.setPinned(c, true)
}

func (s *ConversationHandler) Unpin(c *gin.Context) {
	s.setPinned(c, false)
}

func (s *ConversationHandler) setPinned(c *gin.Context, pinned bool) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	if err := s.convSvc.SetPinned(c.Request.Context(), userID, convID, pinned); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ConversationHandler) SetDisappearing(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	var req dto.DisappearingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err := s.convSvc.SetDisappearing(c.Request.Context(), userID, convID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
