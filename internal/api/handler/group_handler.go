package handler

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/response"
	"Harbor/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groupSvc service.GroupService
}

func NewGroupHandler(groupSvc service.GroupService) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc}
}

func (s *GroupHandler) AddMembers(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	var req dto.AddMembersReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err := s.groupSvc.AddMembers(c.Request.Context(), userID, convID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *GroupHandler) RemoveMember(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err = s.groupSvc.RemoveMember(c.Request.Context(), userID, convID, targetID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *GroupHandler) Leave(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	if err := s.groupSvc.Leave(c.Request.Context(), userID, convID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *GroupHandler) PromoteAdmin(c *gin.Context) {
	s.changeAdmin(c, true)
}

func (s *GroupHandler) DemoteAdmin(c *gin.Context) {
	s.changeAdmin(c, false)
}

func (s *GroupHandler) changeAdmin(c *gin.Context, promote bool) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if promote {
		err = s.groupSvc.PromoteAdmin(c.Request.Context(), userID, convID, targetID)
	} else {
		err = s.groupSvc.DemoteAdmin(c.Request.Context(), userID, convID, targetID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *GroupHandler) UpdateInfo(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	var req dto.UpdateGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err := s.groupSvc.UpdateInfo(c.Request.Context(), userID, convID, &req); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *GroupHandler) CreateInvite(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	var req dto.CreateInviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	link, err := s.groupSvc.CreateInvite(c.Request.Context(), userID, convID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, link)
}

func (s *GroupHandler) ListInvites(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	links, err := s.groupSvc.ListInvites(c.Request.Context(), userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, links)
}

func (s *GroupHandler) RevokeInvite(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")
	linkID := c.Param("link_id")

	if err := s.groupSvc.RevokeInvite(c.Request.Context(), userID, convID, linkID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *GroupHandler) JoinByInvite(c *gin.Context) {
	userID := c.GetUint64("user_id")
	token := c.Param("token")

	result, err := s.groupSvc.JoinByInvite(c.Request.Context(), userID, token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

func (s *GroupHandler) ListJoinRequests(c *gin.Context) {
	userID := c.GetUint64("user_id")
	convID := c.Param("conv_id")

	list, err := s.groupSvc.ListJoinRequests(c.Request.Context(), userID, convID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *GroupHandler) ResolveJoinRequest(c *gin.Context) {
	userID := c.GetUint64("user_id")
	requestID := c.Param("request_id")

	var req dto.ResolveJoinReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, err)
		return
	}

	if err := s.groupSvc.ResolveJoinRequest(c.Request.Context(), userID, requestID, req.Approve); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
