package service

import (
	"Harbor/internal/api/config"
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/mongo"
	"Harbor/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type GroupService interface {
	AddMembers(ctx context.Context, userID uint64, convID string, req *dto.AddMembersReq) error
	RemoveMember(ctx context.Context, userID uint64, convID string, targetID uint64) error
	Leave(ctx context.Context, userID uint64, convID string) error
	PromoteAdmin(ctx context.Context, userID uint64, convID string, targetID uint64) error
	DemoteAdmin(ctx context.Context, userID uint64, convID string, targetID uint64) error
	UpdateInfo(ctx context.Context, userID uint64, convID string, req *dto.UpdateGroupReq) error

	CreateInvite(ctx context.Context, userID uint64, convID string, req *dto.CreateInviteReq) (*dto.InviteLinkDTO, error)
	ListInvites(ctx context.Context, userID uint64, convID string) ([]*dto.InviteLinkDTO, error)
	RevokeInvite(ctx context.Context, userID uint64, convID string, linkID string) error
	JoinByInvite(ctx context.Context, userID uint64, token string) (*dto.JoinByInviteResp, error)

	ListJoinRequests(ctx context.Context, userID uint64, convID string) ([]*dto.JoinRequestDTO, error)
	ResolveJoinRequest(ctx context.Context, userID uint64, requestID string, approve bool) error
}

type groupServiceImpl struct {
	convRepo    mongo.ConversationRepo
	msgRepo     mongo.MessageRepo
	inviteRepo  mongo.InviteRepo
	userRepo    repository.UserRepo
	convSvc     ConversationService
	broadcaster RoomBroadcaster
}

func NewGroupService(
	convRepo mongo.ConversationRepo,
	msgRepo mongo.MessageRepo,
	inviteRepo mongo.InviteRepo,
	userRepo repository.UserRepo,
	convSvc ConversationService,
	broadcaster RoomBroadcaster,
) GroupService {
	return &groupServiceImpl{
		convRepo:    convRepo,
		msgRepo:     msgRepo,
		inviteRepo:  inviteRepo,
		userRepo:    userRepo,
		convSvc:     convSvc,
		broadcaster: broadcaster,
	}
}

// requireAdmin 群管理操作的公共守卫
func (s *groupServiceImpl) requireAdmin(ctx context.Context, userID uint64, convID string) (*mongo.Conversation, error) {
	conv, err := s.convSvc.RequireMember(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	if conv.Type != consts.ConvTypeGroup {
		return nil, ErrParamInvalid
	}
	if !conv.HasAdmin(userID) {
		return nil, ErrForbidden
	}
	return conv, nil
}

func (s *groupServiceImpl) requireGroup(ctx context.Context, userID uint64, convID string) (*mongo.Conversation, error) {
	conv, err := s.convSvc.RequireMember(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	if conv.Type != consts.ConvTypeGroup {
		return nil, ErrParamInvalid
	}
	return conv, nil
}

func (s *groupServiceImpl) AddMembers(ctx context.Context, userID uint64, convID string, req *dto.AddMembersReq) error {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return err
	}
	if len(conv.Participants)+len(req.UserIDs) > config.Cfg.Chat.MaxGroupMembers {
		return ErrGroupFull
	}

	users, err := s.userRepo.GetUserByIds(ctx, req.UserIDs)
	if err != nil {
		return UnExpectedError
	}
	if len(users) != len(req.UserIDs) {
		return ErrNotFound
	}

	var added []string
	for _, u := range users {
		if err = s.convRepo.AddParticipant(ctx, conv.ID, u.ID); err != nil {
			// 已在群里的成员跳过
			continue
		}
		added = append(added, u.Name)
		s.broadcaster.Broadcast(ctx, UserRoom(u.ID), consts.EventMemberAdded, map[string]interface{}{
			"conversation_id": convID,
			"user_id":         u.ID,
		})
	}
	if len(added) == 0 {
		return nil
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMemberAdded, map[string]interface{}{
		"conversation_id": convID,
		"added_by":        userID,
		"members":         added,
	})
	s.systemMessage(ctx, conv, fmt.Sprintf("%s 加入了群聊", strings.Join(added, "、")))
	return nil
}

func (s *groupServiceImpl) RemoveMember(ctx context.Context, userID uint64, convID string, targetID uint64) error {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return err
	}
	if targetID == userID {
		return ErrParamInvalid
	}
	// 群主不可被移出
	if targetID == conv.CreatedBy {
		return ErrForbidden
	}
	if !conv.HasParticipant(targetID) {
		return ErrNotFound
	}

	if err = s.removeAndHeal(ctx, conv, targetID); err != nil {
		return err
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMemberRemoved, map[string]interface{}{
		"conversation_id": convID,
		"user_id":         targetID,
		"removed_by":      userID,
	})
	s.broadcaster.Broadcast(ctx, UserRoom(targetID), consts.EventMemberRemoved, map[string]interface{}{
		"conversation_id": convID,
		"user_id":         targetID,
	})
	s.systemMessage(ctx, conv, "有成员被移出群聊")
	return nil
}

func (s *groupServiceImpl) Leave(ctx context.Context, userID uint64, convID string) error {
	conv, err := s.requireGroup(ctx, userID, convID)
	if err != nil {
		return err
	}

	if err = s.removeAndHeal(ctx, conv, userID); err != nil {
		return err
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMemberRemoved, map[string]interface{}{
		"conversation_id": convID,
		"user_id":         userID,
	})
	s.systemMessage(ctx, conv, "有成员退出了群聊")
	return nil
}

// removeAndHeal 移除成员并保证群聊永远有管理员
func (s *groupServiceImpl) removeAndHeal(ctx context.Context, conv *mongo.Conversation, targetID uint64) error {
	if err := s.convRepo.RemoveParticipant(ctx, conv.ID, targetID); err != nil {
		return UnExpectedError
	}
	if conv.HasAdmin(targetID) {
		if err := s.convRepo.RemoveAdmin(ctx, conv.ID, targetID); err != nil {
			return UnExpectedError
		}
		if err := s.convRepo.PromoteFirstIfNoAdmin(ctx, conv.ID); err != nil {
			log.Error("admin self-heal failed", "convID", conv.ID.Hex(), "err", err)
		}
	}
	return nil
}

func (s *groupServiceImpl) PromoteAdmin(ctx context.Context, userID uint64, convID string, targetID uint64) error {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(targetID) {
		return ErrNotFound
	}
	if conv.HasAdmin(targetID) {
		return nil
	}
	if err = s.convRepo.AddAdmin(ctx, conv.ID, targetID); err != nil {
		return UnExpectedError
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventAdminChanged, map[string]interface{}{
		"conversation_id": convID,
		"user_id":         targetID,
		"is_admin":        true,
	})
	return nil
}

func (s *groupServiceImpl) DemoteAdmin(ctx context.Context, userID uint64, convID string, targetID uint64) error {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return err
	}
	// 群主身份不可被撤销
	if targetID == conv.CreatedBy {
		return ErrForbidden
	}
	if !conv.HasAdmin(targetID) {
		return ErrNotFound
	}

	if err = s.convRepo.RemoveAdmin(ctx, conv.ID, targetID); err != nil {
		return UnExpectedError
	}
	if err = s.convRepo.PromoteFirstIfNoAdmin(ctx, conv.ID); err != nil {
		log.Error("admin self-heal failed", "convID", convID, "err", err)
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventAdminChanged, map[string]interface{}{
		"conversation_id": convID,
		"user_id":         targetID,
		"is_admin":        false,
	})
	return nil
}

func (s *groupServiceImpl) UpdateInfo(ctx context.Context, userID uint64, convID string, req *dto.UpdateGroupReq) error {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return err
	}

	name := conv.GroupName
	description := conv.GroupDescription
	image := conv.GroupImage
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		description = *req.Description
	}
	if req.Image != nil {
		image = *req.Image
	}

	if err = s.convRepo.SetGroupInfo(ctx, conv.ID, name, description, image); err != nil {
		return UnExpectedError
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventConvUpdated, map[string]interface{}{
		"conversation_id":   convID,
		"group_name":        name,
		"group_description": description,
		"group_image":       image,
	})
	if req.Name != nil {
		s.systemMessage(ctx, conv, fmt.Sprintf("群名称已修改为「%s」", name))
	}
	return nil
}

func (s *groupServiceImpl) CreateInvite(ctx context.Context, userID uint64, convID string, req *dto.CreateInviteReq) (*dto.InviteLinkDTO, error) {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return nil, err
	}

	link := &mongo.InviteLink{
		Token:            uuid.NewString(),
		ConversationID:   conv.ID,
		CreatedBy:        userID,
		MaxUses:          int64(req.MaxUses),
		RequiresApproval: req.RequiresApproval,
	}
	if req.ExpiresInHours > 0 {
		t := time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		link.ExpiresAt = &t
	}

	if err = s.inviteRepo.CreateLink(ctx, link); err != nil {
		return nil, UnExpectedError
	}
	return s.linkToDTO(link), nil
}

func (s *groupServiceImpl) ListInvites(ctx context.Context, userID uint64, convID string) ([]*dto.InviteLinkDTO, error) {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	links, err := s.inviteRepo.ListLinks(ctx, conv.ID)
	if err != nil {
		return nil, UnExpectedError
	}

	out := make([]*dto.InviteLinkDTO, 0, len(links))
	for _, link := range links {
		out = append(out, s.linkToDTO(link))
	}
	return out, nil
}

func (s *groupServiceImpl) RevokeInvite(ctx context.Context, userID uint64, convID string, linkID string) error {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(linkID)
	if err != nil {
		return ErrParamInvalid
	}

	// 先确认链接属于本会话，避免拿别的群的 linkID 探测
	link, err := s.inviteRepo.GetLinkByID(ctx, oid)
	if err != nil {
		return UnExpectedError
	}
	if link == nil || link.ConversationID != conv.ID {
		return ErrNotFound
	}

	ok, err := s.inviteRepo.RevokeLink(ctx, oid, conv.ID)
	if err != nil {
		return UnExpectedError
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// JoinByInvite 通过链接进群
// 名额占用先于入群生效，链接到期或撤销后立即失效
func (s *groupServiceImpl) JoinByInvite(ctx context.Context, userID uint64, token string) (*dto.JoinByInviteResp, error) {
	link, err := s.inviteRepo.GetLinkByToken(ctx, token)
	if err != nil {
		return nil, UnExpectedError
	}
	// 不存在与已撤销的链接对外不可区分
	if link == nil || !link.IsActive {
		return nil, ErrNotFound
	}
	if link.ExpiresAt != nil && link.ExpiresAt.Before(time.Now()) {
		return nil, ErrLinkExpired
	}
	if link.MaxUses > 0 && link.UseCount >= link.MaxUses {
		return nil, ErrLinkLimit
	}

	conv, err := s.convRepo.GetByID(ctx, link.ConversationID)
	if err != nil {
		return nil, UnExpectedError
	}
	if conv == nil {
		return nil, ErrConvNotFound
	}
	convID := conv.ID.Hex()
	if conv.HasParticipant(userID) {
		return &dto.JoinByInviteResp{ConversationID: convID}, nil
	}
	if len(conv.Participants) >= config.Cfg.Chat.MaxGroupMembers {
		return nil, ErrGroupFull
	}

	if link.RequiresApproval {
		created, err := s.inviteRepo.CreateJoinRequest(ctx, &mongo.JoinRequest{
			ConversationID: conv.ID,
			UserID:         userID,
			LinkID:         link.ID,
		})
		if err != nil {
			return nil, UnExpectedError
		}
		if created {
			s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventJoinRequested, map[string]interface{}{
				"conversation_id": convID,
				"user_id":         userID,
			})
		}
		return &dto.JoinByInviteResp{ConversationID: convID, Pending: true}, nil
	}

	ok, err := s.inviteRepo.IncrementUse(ctx, link.ID)
	if err != nil {
		return nil, UnExpectedError
	}
	if !ok {
		return nil, ErrLinkLimit
	}
	if err = s.convRepo.AddParticipant(ctx, conv.ID, userID); err != nil {
		return nil, UnExpectedError
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMemberAdded, map[string]interface{}{
		"conversation_id": convID,
		"user_id":         userID,
	})
	s.systemMessage(ctx, conv, "有新成员通过邀请链接加入")
	return &dto.JoinByInviteResp{ConversationID: convID}, nil
}

func (s *groupServiceImpl) ListJoinRequests(ctx context.Context, userID uint64, convID string) ([]*dto.JoinRequestDTO, error) {
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	list, err := s.inviteRepo.ListPendingRequests(ctx, conv.ID)
	if err != nil {
		return nil, UnExpectedError
	}

	out := make([]*dto.JoinRequestDTO, 0, len(list))
	for _, r := range list {
		out = append(out, &dto.JoinRequestDTO{
			ID:             r.ID.Hex(),
			ConversationID: r.ConversationID.Hex(),
			UserID:         r.UserID,
			Status:         r.Status,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}

// ResolveJoinRequest 审批入群申请，条件更新保证同一申请只被处理一次
func (s *groupServiceImpl) ResolveJoinRequest(ctx context.Context, userID uint64, requestID string, approve bool) error {
	oid, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return ErrParamInvalid
	}
	req, err := s.inviteRepo.GetRequest(ctx, oid)
	if err != nil {
		return UnExpectedError
	}
	if req == nil {
		return ErrNotFound
	}

	convID := req.ConversationID.Hex()
	conv, err := s.requireAdmin(ctx, userID, convID)
	if err != nil {
		return err
	}

	status := consts.JoinRequestRejected
	if approve {
		status = consts.JoinRequestApproved
	}
	ok, err := s.inviteRepo.ResolveRequest(ctx, oid, status, userID)
	if err != nil {
		return UnExpectedError
	}
	if !ok {
		return ErrConflict
	}
	if !approve {
		return nil
	}

	if len(conv.Participants) >= config.Cfg.Chat.MaxGroupMembers {
		return ErrGroupFull
	}
	if _, err = s.inviteRepo.IncrementUse(ctx, req.LinkID); err != nil {
		log.Warn("increment invite use failed", "linkID", req.LinkID.Hex(), "err", err)
	}
	if err = s.convRepo.AddParticipant(ctx, conv.ID, req.UserID); err != nil {
		return UnExpectedError
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMemberAdded, map[string]interface{}{
		"conversation_id": convID,
		"user_id":         req.UserID,
	})
	s.broadcaster.Broadcast(ctx, UserRoom(req.UserID), consts.EventMemberAdded, map[string]interface{}{
		"conversation_id": convID,
		"user_id":         req.UserID,
	})
	s.systemMessage(ctx, conv, "入群申请已通过")
	return nil
}

// systemMessage 群事件落一条系统消息，不计入未读
func (s *groupServiceImpl) systemMessage(ctx context.Context, conv *mongo.Conversation, content string) {
	msg := &mongo.Message{
		ConversationID: conv.ID,
		SenderID:       0,
		Type:           consts.MsgTypeSystem,
		Content:        content,
		Status:         consts.MsgStatusSent,
	}
	if err := s.msgRepo.Insert(ctx, msg); err != nil {
		log.Error("insert system message failed", "convID", conv.ID.Hex(), "err", err)
		return
	}

	lm := &mongo.LastMessage{
		Content:   content,
		Type:      consts.MsgTypeSystem,
		Timestamp: msg.CreatedAt,
	}
	if err := s.convRepo.UpdateLastMessage(ctx, conv.ID, lm); err != nil {
		log.Warn("update last message failed", "convID", conv.ID.Hex(), "err", err)
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(conv.ID.Hex()), consts.EventMessageNew, map[string]interface{}{
		"id":              msg.ID.Hex(),
		"conversation_id": conv.ID.Hex(),
		"type":            consts.MsgTypeSystem,
		"content":         content,
		"created_at":      msg.CreatedAt,
	})
}

func (s *groupServiceImpl) linkToDTO(link *mongo.InviteLink) *dto.InviteLinkDTO {
	return &dto.InviteLinkDTO{
		Token:            link.Token,
		ConversationID:   link.ConversationID.Hex(),
		CreatedBy:        link.CreatedBy,
		MaxUses:          link.MaxUses,
		UseCount:         link.UseCount,
		ExpiresAt:        link.ExpiresAt,
		RequiresApproval: link.RequiresApproval,
		IsActive:         link.IsActive,
		CreatedAt:        link.CreatedAt,
	}
}
