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
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ConversationService interface {
	CreateDirect(ctx context.Context, userID uint64, req *dto.CreateDirectReq) (*dto.ConversationDTO, error)
	CreateGroup(ctx context.Context, userID uint64, req *dto.CreateGroupReq) (*dto.ConversationDTO, error)
	List(ctx context.Context, userID uint64, page int) ([]*dto.ConversationDTO, error)
	Get(ctx context.Context, userID uint64, convID string) (*dto.ConversationDTO, error)
	SetArchived(ctx context.Context, userID uint64, convID string, archived bool) error
	Hide(ctx context.Context, userID uint64, convID string) error
	SetMuted(ctx context.Context, userID uint64, convID string, req *dto.MuteReq) error
	SetPinned(ctx context.Context, userID uint64, convID string, pinned bool) error
	SetDisappearing(ctx context.Context, userID uint64, convID string, req *dto.DisappearingReq) error

	// RequireMember 公共守卫，解析会话并校验成员资格
	RequireMember(ctx context.Context, userID uint64, convID string) (*mongo.Conversation, error)
}

type conversationServiceImpl struct {
	convRepo    mongo.ConversationRepo
	userRepo    repository.UserRepo
	blockedRepo repository.BlockedUserRepo
	broadcaster RoomBroadcaster
}

func NewConversationService(
	convRepo mongo.ConversationRepo,
	userRepo repository.UserRepo,
	blockedRepo repository.BlockedUserRepo,
	broadcaster RoomBroadcaster,
) ConversationService {
	return &conversationServiceImpl{
		convRepo:    convRepo,
		userRepo:    userRepo,
		blockedRepo: blockedRepo,
		broadcaster: broadcaster,
	}
}

// directPeerKey 单聊去重键，成员按大小排序后拼接
func directPeerKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d_%d", a, b)
}

// CreateDirect 创建单聊，同一对用户只允许存在一个会话
// 命中已存在会话时解除双方的隐藏状态并原样返回
func (s *conversationServiceImpl) CreateDirect(ctx context.Context, userID uint64, req *dto.CreateDirectReq) (*dto.ConversationDTO, error) {
	if req.TargetUserID == userID {
		return nil, ErrParamInvalid
	}

	target, err := s.userRepo.GetUserById(ctx, req.TargetUserID)
	if err != nil {
		return nil, UnExpectedError
	}
	if target == nil || !target.IsActive {
		return nil, ErrNotFound
	}

	blocked, err := s.blockedRepo.IsBlockedEither(ctx, userID, req.TargetUserID)
	if err != nil {
		return nil, UnExpectedError
	}
	if blocked {
		return nil, ErrBlocked
	}

	peerKey := directPeerKey(userID, req.TargetUserID)
	existing, err := s.convRepo.GetDirectByPeerKey(ctx, peerKey)
	if err != nil {
		return nil, UnExpectedError
	}
	if existing != nil {
		if err = s.convRepo.UnhideFor(ctx, existing.ID, userID); err != nil {
			log.Warn("unhide direct conversation failed", "convID", existing.ID.Hex(), "err", err)
		}
		return s.toDTO(existing, userID), nil
	}

	now := time.Now()
	conv := &mongo.Conversation{
		Type:         consts.ConvTypeDirect,
		Participants: []uint64{userID, req.TargetUserID},
		PeerKey:      peerKey,
		Metadata: []mongo.MemberMeta{
			{UserID: userID},
			{UserID: req.TargetUserID},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.convRepo.Create(ctx, conv); err != nil {
		return nil, UnExpectedError
	}

	out := s.toDTO(conv, userID)
	s.broadcaster.Broadcast(ctx, UserRoom(req.TargetUserID), consts.EventConvCreated, s.toDTO(conv, req.TargetUserID))
	return out, nil
}

// CreateGroup 创建群聊，创建者自动成为管理员
func (s *conversationServiceImpl) CreateGroup(ctx context.Context, userID uint64, req *dto.CreateGroupReq) (*dto.ConversationDTO, error) {
	memberIDs := []uint64{userID}
	seen := map[uint64]struct{}{userID: {}}
	for _, id := range req.MemberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		memberIDs = append(memberIDs, id)
	}

	if len(memberIDs) > config.Cfg.Chat.MaxGroupMembers {
		return nil, ErrGroupFull
	}

	if len(memberIDs) > 1 {
		users, err := s.userRepo.GetUserByIds(ctx, memberIDs)
		if err != nil {
			return nil, UnExpectedError
		}
		if len(users) != len(memberIDs) {
			return nil, ErrNotFound
		}
	}

	metadata := make([]mongo.MemberMeta, 0, len(memberIDs))
	for _, id := range memberIDs {
		metadata = append(metadata, mongo.MemberMeta{UserID: id})
	}

	now := time.Now()
	conv := &mongo.Conversation{
		Type:             consts.ConvTypeGroup,
		Participants:     memberIDs,
		GroupName:        req.Name,
		GroupDescription: req.Description,
		GroupImage:       req.Image,
		Admins:           []uint64{userID},
		CreatedBy:        userID,
		Metadata:         metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.convRepo.Create(ctx, conv); err != nil {
		return nil, UnExpectedError
	}

	for _, id := range memberIDs {
		if id == userID {
			continue
		}
		s.broadcaster.Broadcast(ctx, UserRoom(id), consts.EventConvCreated, s.toDTO(conv, id))
	}
	return s.toDTO(conv, userID), nil
}

func (s *conversationServiceImpl) List(ctx context.Context, userID uint64, page int) ([]*dto.ConversationDTO, error) {
	if page < 1 {
		page = 1
	}
	convs, err := s.convRepo.ListForUser(ctx, userID, page, config.Cfg.Chat.ConvPageSize)
	if err != nil {
		return nil, UnExpectedError
	}

	out := make([]*dto.ConversationDTO, 0, len(convs))
	for _, conv := range convs {
		out = append(out, s.toDTO(conv, userID))
	}
	return out, nil
}

func (s *conversationServiceImpl) Get(ctx context.Context, userID uint64, convID string) (*dto.ConversationDTO, error) {
	conv, err := s.RequireMember(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(conv, userID), nil
}

func (s *conversationServiceImpl) SetArchived(ctx context.Context, userID uint64, convID string, archived bool) error {
	conv, err := s.RequireMember(ctx, userID, convID)
	if err != nil {
		return err
	}
	if err = s.convRepo.SetArchived(ctx, conv.ID, userID, archived); err != nil {
		return UnExpectedError
	}
	return nil
}

// Hide 仅影响调用者的会话列表，收到新消息后重新浮出
func (s *conversationServiceImpl) Hide(ctx context.Context, userID uint64, convID string) error {
	conv, err := s.RequireMember(ctx, userID, convID)
	if err != nil {
		return err
	}
	if err = s.convRepo.HideFor(ctx, conv.ID, userID); err != nil {
		return UnExpectedError
	}
	return nil
}

func (s *conversationServiceImpl) SetMuted(ctx context.Context, userID uint64, convID string, req *dto.MuteReq) error {
	conv, err := s.RequireMember(ctx, userID, convID)
	if err != nil {
		return err
	}

	var until *time.Time
	if req.Mute && req.Minutes > 0 {
		t := time.Now().Add(time.Duration(req.Minutes) * time.Minute)
		until = &t
	}
	if err = s.convRepo.SetMuted(ctx, conv.ID, userID, req.Mute, until); err != nil {
		return UnExpectedError
	}
	return nil
}

func (s *conversationServiceImpl) SetPinned(ctx context.Context, userID uint64, convID string, pinned bool) error {
	conv, err := s.RequireMember(ctx, userID, convID)
	if err != nil {
		return err
	}
	if err = s.convRepo.SetPinned(ctx, conv.ID, userID, pinned); err != nil {
		return UnExpectedError
	}
	return nil
}

// SetDisappearing 调整阅后即焚时长，只对调整之后的新消息生效
func (s *conversationServiceImpl) SetDisappearing(ctx context.Context, userID uint64, convID string, req *dto.DisappearingReq) error {
	conv, err := s.RequireMember(ctx, userID, convID)
	if err != nil {
		return err
	}
	if conv.Type == consts.ConvTypeGroup && !conv.HasAdmin(userID) {
		return ErrForbidden
	}

	if err = s.convRepo.SetDisappearing(ctx, conv.ID, req.Duration); err != nil {
		return UnExpectedError
	}

	conv.DisappearingDuration = req.Duration
	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventConvUpdated, map[string]interface{}{
		"conversation_id":       convID,
		"disappearing_duration": req.Duration,
	})
	return nil
}

func (s *conversationServiceImpl) RequireMember(ctx context.Context, userID uint64, convID string) (*mongo.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(convID)
	if err != nil {
		return nil, ErrParamInvalid
	}
	conv, err := s.convRepo.GetByID(ctx, oid)
	if err != nil {
		return nil, UnExpectedError
	}
	if conv == nil {
		return nil, ErrConvNotFound
	}
	if !conv.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// toDTO 按调用者视角展开成员状态
func (s *conversationServiceImpl) toDTO(conv *mongo.Conversation, viewerID uint64) *dto.ConversationDTO {
	out := &dto.ConversationDTO{
		ID:                   conv.ID.Hex(),
		Type:                 conv.Type,
		GroupName:            conv.GroupName,
		GroupDescription:     conv.GroupDescription,
		GroupImage:           conv.GroupImage,
		Participants:         conv.Participants,
		Admins:               conv.Admins,
		CreatedBy:            conv.CreatedBy,
		DisappearingDuration: conv.DisappearingDuration,
		CreatedAt:            conv.CreatedAt,
		UpdatedAt:            conv.UpdatedAt,
	}

	if conv.LastMessage != nil {
		out.LastMessage = &dto.LastMessageDTO{
			SenderID: conv.LastMessage.SenderID,
			Type:     conv.LastMessage.Type,
			Preview:  conv.LastMessage.Content,
			SentAt:   conv.LastMessage.Timestamp,
		}
	}

	if meta := conv.MetaOf(viewerID); meta != nil {
		out.UnreadCount = meta.UnreadCount
		out.IsPinned = meta.IsPinned
		out.MutedUntil = meta.MutedUntil
		// 到期的定时静音视为未静音
		out.IsMuted = meta.IsMuted && (meta.MutedUntil == nil || meta.MutedUntil.After(time.Now()))
	}

	for _, id := range conv.ArchivedFor {
		if id == viewerID {
			out.IsArchived = true
			break
		}
	}
	return out
}
