package handler

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/response"
	"Harbor/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	msgSvc service.MessageService
}

func NewMessageHandler(msgSvc service.MessageService) *MessageHandler {
	return &MessageHandler{msgSvc: msgSvc}
}

func (s *MessageHandler) Send(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	msg, err := s.msgSvc.Send(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

func (s *MessageHandler) List(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	var page dto.PageReq
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, err)
		return
	}

	msgs, err := s.msgSvc.List(c.Request.Context(), userID, convID, &page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msgs)
}

func (s *MessageHandler) Edit(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("msg_id")

	var req dto.EditMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	msg, err := s.msgSvc.Edit(c.Request.Context(), userID, messageID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

// Delete 删除消息，scope=all 为撤回，默认仅对自己删除
func (s *MessageHandler) Delete(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("msg_id")

	var err error
	if c.Query("scope") == "all" {
		err = s.msgSvc.DeleteForEveryone(c.Request.Context(), userID, messageID)
	} else {
		err = s.msgSvc.DeleteForMe(c.Request.Context(), userID, messageID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *MessageHandler) Pin(c *gin.Context) {
	s.setPinned(c, true)
}

func (s *MessageHandler) Unpin(c *gin.Context) {
	s.setPinned(c, false)
}

func (s *MessageHandler) setPinned(c *gin.Context, pinned bool) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("msg_id")

	if err := s.msgSvc.SetPinned(c.Request.Context(), userID, messageID, pinned); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *MessageHandler) React(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("msg_id")

	var req dto.ReactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	msg, err := s.msgSvc.AddReaction(c.Request.Context(), userID, messageID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

// Unreact 撤销表态，表情通过 query 传递
func (s *MessageHandler) Unreact(c *gin.Context) {
	userID := c.GetUint64("user_id")
	messageID := c.Param("msg_id")

	msg, err := s.msgSvc.RemoveReaction(c.Request.Context(), userID, messageID, c.Query("emoji"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

func (s *MessageHandler) Forward(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.ForwardReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	msgs, err := s.msgSvc.Forward(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msgs)
}

func (s *MessageHandler) MarkRead(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	if err := s.msgSvc.MarkRead(c.Request.Context(), userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *MessageHandler) Search(c *gin.Context) {
	userID := c.GetUint64("user_id")
	keyword := c.Query("keyword")
	from, _ := strconv.Atoi(c.DefaultQuery("from", "0"))

	hits, err := s.msgSvc.Search(c.Request.Context(), userID, keyword, from)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, hits)
}

func (s *MessageHandler) ListScheduled(c *gin.Context) {
	userID := c.GetUint64("user_id")

	list, err := s.msgSvc.ListScheduled(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *MessageHandler) CancelScheduled(c *gin.Context) {
	userID := c.GetUint64("user_id")
	id := c.Param("msg_id")

	if err := s.msgSvc.CancelScheduled(c.Request.Context(), userID, id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
