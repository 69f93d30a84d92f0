package handler

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/response"
	"Harbor/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type CallHandler struct {
	callSvc service.CallService
}

func NewCallHandler(callSvc service.CallService) *CallHandler {
	return &CallHandler{callSvc: callSvc}
}

func (s *CallHandler) Start(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.StartCallReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	call, err := s.callSvc.Start(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, call)
}

func (s *CallHandler) Accept(c *gin.Context) {
	userID := c.GetUint64("user_id")
	callID := c.Param("call_id")

	call, err := s.callSvc.Accept(c.Request.Context(), userID, callID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, call)
}

func (s *CallHandler) Reject(c *gin.Context) {
	userID := c.GetUint64("user_id")
	callID := c.Param("call_id")

	if err := s.callSvc.Reject(c.Request.Context(), userID, callID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *CallHandler) End(c *gin.Context) {
	userID := c.GetUint64("user_id")
	callID := c.Param("call_id")

	if err := s.callSvc.End(c.Request.Context(), userID, callID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *CallHandler) Signal(c *gin.Context) {
	userID := c.GetUint64("user_id")

	var req dto.CallSignalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err := s.callSvc.Signal(c.Request.Context(), userID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *CallHandler) History(c *gin.Context) {
	userID := c.GetUint64("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	calls, err := s.callSvc.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, calls)
}
