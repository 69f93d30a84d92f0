package service

import (
	"Harbor/internal/api/config"
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/es"
	"Harbor/internal/pkg/kafka"
	"Harbor/internal/pkg/mongo"
	"Harbor/internal/pkg/push"
	"Harbor/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageService interface {
	Send(ctx context.Context, userID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error)
	Edit(ctx context.Context, userID uint64, messageID string, req *dto.EditMessageReq) (*dto.MessageDTO, error)
	DeleteForMe(ctx context.Context, userID uint64, messageID string) error
	DeleteForEveryone(ctx context.Context, userID uint64, messageID string) error
	SetPinned(ctx context.Context, userID uint64, messageID string, pinned bool) error
	AddReaction(ctx context.Context, userID uint64, messageID string, req *dto.ReactReq) (*dto.MessageDTO, error)
	RemoveReaction(ctx context.Context, userID uint64, messageID string, emoji string) (*dto.MessageDTO, error)
	Forward(ctx context.Context, userID uint64, req *dto.ForwardReq) ([]*dto.MessageDTO, error)
	List(ctx context.Context, userID uint64, convID string, page *dto.PageReq) ([]*dto.MessageDTO, error)
	Search(ctx context.Context, userID uint64, keyword string, from int) ([]*dto.SearchHitDTO, error)

	MarkRead(ctx context.Context, userID uint64, convID string) error
	MarkDelivered(ctx context.Context, userID uint64, convID string, messageIDs []string) error
	Typing(ctx context.Context, userID uint64, convID string, isTyping bool) error

	ListScheduled(ctx context.Context, userID uint64) ([]*dto.ScheduledMessageDTO, error)
	CancelScheduled(ctx context.Context, userID uint64, id string) error

	// DispatchDue 由定时任务调用，把到期的定时消息物化投递
	DispatchDue(ctx context.Context) error
	// ReapExpired 由定时任务调用，物理删除已到期的阅后即焚消息
	ReapExpired(ctx context.Context) (int64, error)
}

type messageServiceImpl struct {
	msgRepo     mongo.MessageRepo
	convRepo    mongo.ConversationRepo
	schedRepo   mongo.ScheduledMessageRepo
	blockedRepo repository.BlockedUserRepo
	searchRepo  es.MessageSearchRepo
	convSvc     ConversationService
	presence    PresenceService
	broadcaster RoomBroadcaster
	producer    kafka.EventProducer
	notifier    push.Notifier
}

func NewMessageService(
	msgRepo mongo.MessageRepo,
	convRepo mongo.ConversationRepo,
	schedRepo mongo.ScheduledMessageRepo,
	blockedRepo repository.BlockedUserRepo,
	searchRepo es.MessageSearchRepo,
	convSvc ConversationService,
	presence PresenceService,
	broadcaster RoomBroadcaster,
	producer kafka.EventProducer,
	notifier push.Notifier,
) MessageService {
	return &messageServiceImpl{
		msgRepo:     msgRepo,
		convRepo:    convRepo,
		schedRepo:   schedRepo,
		blockedRepo: blockedRepo,
		searchRepo:  searchRepo,
		convSvc:     convSvc,
		presence:    presence,
		broadcaster: broadcaster,
		producer:    producer,
		notifier:    notifier,
	}
}

// Send 发送消息，ScheduledFor 非空时只入定时队列不投递
func (s *messageServiceImpl) Send(ctx context.Context, userID uint64, req *dto.SendMessageReq) (*dto.MessageDTO, error) {
	conv, err := s.convSvc.RequireMember(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	msgType := req.Type
	if msgType == "" {
		msgType = consts.MsgTypeText
	}
	if req.Content == "" && len(req.Attachments) == 0 {
		return nil, ErrParamInvalid
	}
	if len(req.Content) > config.Cfg.Chat.MessageMaxLength {
		return nil, ErrParamInvalid
	}

	if conv.Type == consts.ConvTypeDirect {
		peer := peerOf(conv, userID)
		blocked, err := s.blockedRepo.IsBlockedEither(ctx, userID, peer)
		if err != nil {
			return nil, UnExpectedError
		}
		if blocked {
			return nil, ErrBlocked
		}
	}

	attachments := make([]mongo.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, mongo.Attachment{
			URL: a.URL, Type: a.Type, Name: a.Name, Size: a.Size, MimeType: a.MimeType,
		})
	}

	if req.ScheduledFor != nil {
		if req.ScheduledFor.Before(time.Now()) {
			return nil, ErrParamInvalid
		}
		sched := &mongo.ScheduledMessage{
			ConversationID: conv.ID,
			SenderID:       userID,
			Type:           msgType,
			Content:        req.Content,
			Attachments:    attachments,
			ScheduledFor:   *req.ScheduledFor,
		}
		if err = s.schedRepo.Create(ctx, sched); err != nil {
			return nil, UnExpectedError
		}
		out := &dto.MessageDTO{
			ID:             sched.ID.Hex(),
			ConversationID: req.ConversationID,
			SenderID:       userID,
			Type:           msgType,
			Content:        req.Content,
			Status:         consts.ScheduledPending,
			CreatedAt:      sched.CreatedAt,
		}
		return out, nil
	}

	msg := &mongo.Message{
		ConversationID: conv.ID,
		SenderID:       userID,
		Type:           msgType,
		Content:        req.Content,
		Attachments:    attachments,
		Status:         consts.MsgStatusSent,
	}

	if req.ReplyTo != "" {
		oid, err := primitive.ObjectIDFromHex(req.ReplyTo)
		if err != nil {
			return nil, ErrParamInvalid
		}
		msg.ReplyTo = &oid
	}
	if req.ThreadID != "" {
		oid, err := primitive.ObjectIDFromHex(req.ThreadID)
		if err != nil {
			return nil, ErrParamInvalid
		}
		msg.ThreadID = &oid
	}

	if err = s.deliver(ctx, conv, msg); err != nil {
		return nil, err
	}
	return s.toDTO(msg), nil
}

// deliver 消息落库与所有投递副作用，实时发送与定时物化共用
func (s *messageServiceImpl) deliver(ctx context.Context, conv *mongo.Conversation, msg *mongo.Message) error {
	if conv.DisappearingDuration > 0 {
		expires := time.Now().Add(time.Duration(conv.DisappearingDuration) * time.Second)
		msg.ExpiresAt = &expires
	}

	if err := s.msgRepo.Insert(ctx, msg); err != nil {
		return UnExpectedError
	}

	lm := &mongo.LastMessage{
		Content:   preview(msg),
		SenderID:  msg.SenderID,
		Type:      msg.Type,
		Timestamp: msg.CreatedAt,
	}
	if err := s.convRepo.UpdateLastMessage(ctx, conv.ID, lm); err != nil {
		log.Error("update last message failed", "convID", conv.ID.Hex(), "err", err)
	}
	if err := s.convRepo.IncrUnreadExcept(ctx, conv.ID, msg.SenderID); err != nil {
		log.Error("increment unread failed", "convID", conv.ID.Hex(), "err", err)
	}
	// 新消息让所有隐藏方重新看到会话
	// 隐藏方（以及首条消息时的全体成员）额外收到个人房间的刷新通知，
	// 提示客户端重拉会话列表
	refetch := conv.HiddenUsers()
	if conv.LastMessage == nil {
		refetch = conv.Participants
	}
	if len(conv.HiddenFor) > 0 {
		if err := s.convRepo.UnhideAll(ctx, conv.ID); err != nil {
			log.Warn("unhide conversation failed", "convID", conv.ID.Hex(), "err", err)
		}
	}

	convID := conv.ID.Hex()
	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMessageNew, s.toDTO(msg))
	for _, uid := range refetch {
		s.broadcaster.Broadcast(ctx, UserRoom(uid), consts.EventConvUpdated, map[string]interface{}{
			"conversation_id": convID,
		})
	}

	if msg.Type == consts.MsgTypeText && msg.Content != "" {
		doc := &es.MessageES{
			ID:             msg.ID.Hex(),
			ConversationID: convID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
			Type:           msg.Type,
			CreatedAt:      msg.CreatedAt,
		}
		if err := s.searchRepo.IndexMessage(ctx, doc); err != nil {
			log.Warn("index message failed", "messageID", doc.ID, "err", err)
		}
	}

	s.producer.Emit(&kafka.ChatEvent{
		Event:          consts.EventMessageNew,
		ConversationID: convID,
		MessageID:      msg.ID.Hex(),
		ActorID:        msg.SenderID,
		OccurredAt:     msg.CreatedAt,
	})

	s.notifyOffline(ctx, conv, msg)
	return nil
}

// notifyOffline 收件人离线且未静音时走推送网关
func (s *messageServiceImpl) notifyOffline(ctx context.Context, conv *mongo.Conversation, msg *mongo.Message) {
	recipients := make([]uint64, 0, len(conv.Participants))
	now := time.Now()
	for _, id := range conv.Participants {
		if id == msg.SenderID {
			continue
		}
		if meta := conv.MetaOf(id); meta != nil && meta.IsMuted {
			if meta.MutedUntil == nil || meta.MutedUntil.After(now) {
				continue
			}
		}
		recipients = append(recipients, id)
	}

	offline := s.presence.OfflineOf(recipients)
	if len(offline) == 0 {
		return
	}

	title := conv.GroupName
	if conv.Type == consts.ConvTypeDirect {
		title = "新消息"
	}
	n := &push.Notification{
		UserIDs:        offline,
		Title:          title,
		Body:           preview(msg),
		ConversationID: conv.ID.Hex(),
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Warn("offline push failed", "convID", n.ConversationID, "err", err)
	}
}

// Edit 仅发送者可编辑，且需在编辑窗口内
func (s *messageServiceImpl) Edit(ctx context.Context, userID uint64, messageID string, req *dto.EditMessageReq) (*dto.MessageDTO, error) {
	msg, err := s.getOwn(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Type != consts.MsgTypeText {
		return nil, ErrParamInvalid
	}
	if len(req.Content) > config.Cfg.Chat.MessageMaxLength {
		return nil, ErrParamInvalid
	}

	window := time.Duration(config.Cfg.Chat.EditWindowMinutes) * time.Minute
	if time.Since(msg.CreatedAt) > window {
		return nil, ErrWindowExpired
	}

	if err = s.msgRepo.UpdateContent(ctx, msg.ID, req.Content); err != nil {
		return nil, UnExpectedError
	}
	msg.Content = req.Content
	msg.IsEdited = true
	now := time.Now()
	msg.EditedAt = &now

	convID := msg.ConversationID.Hex()
	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMessageEdited, s.toDTO(msg))

	if err = s.searchRepo.IndexMessage(ctx, &es.MessageES{
		ID:             messageID,
		ConversationID: convID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		Type:           msg.Type,
		CreatedAt:      msg.CreatedAt,
	}); err != nil {
		log.Warn("reindex edited message failed", "messageID", messageID, "err", err)
	}
	return s.toDTO(msg), nil
}

// DeleteForMe 单方删除，只影响调用者视图
func (s *messageServiceImpl) DeleteForMe(ctx context.Context, userID uint64, messageID string) error {
	msg, err := s.getVisible(ctx, userID, messageID)
	if err != nil {
		return err
	}
	if err = s.msgRepo.AddDeletedFor(ctx, msg.ID, userID); err != nil {
		return UnExpectedError
	}
	return nil
}

// DeleteForEveryone 撤回，发送者限删除窗口内，群管理员不受窗口限制
func (s *messageServiceImpl) DeleteForEveryone(ctx context.Context, userID uint64, messageID string) error {
	msg, err := s.getVisible(ctx, userID, messageID)
	if err != nil {
		return err
	}

	conv, err := s.convRepo.GetByID(ctx, msg.ConversationID)
	if err != nil || conv == nil {
		return UnExpectedError
	}

	isAdmin := conv.Type == consts.ConvTypeGroup && conv.HasAdmin(userID)
	if !isAdmin {
		if msg.SenderID != userID {
			return ErrForbidden
		}
		window := time.Duration(config.Cfg.Chat.DeleteWindowHours) * time.Hour
		if time.Since(msg.CreatedAt) > window {
			return ErrWindowExpired
		}
	}

	if err = s.msgRepo.MarkDeletedForEveryone(ctx, msg.ID); err != nil {
		return UnExpectedError
	}
	if err = s.searchRepo.DeleteMessage(ctx, messageID); err != nil {
		log.Warn("remove message from index failed", "messageID", messageID, "err", err)
	}

	convID := msg.ConversationID.Hex()
	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMessageDeleted, map[string]interface{}{
		"conversation_id": convID,
		"message_id":      messageID,
		"deleted_by":      userID,
	})
	s.producer.Emit(&kafka.ChatEvent{
		Event:          consts.EventMessageDeleted,
		ConversationID: convID,
		MessageID:      messageID,
		ActorID:        userID,
		OccurredAt:     time.Now(),
	})
	return nil
}

// SetPinned 任何参与者都可置顶消息
func (s *messageServiceImpl) SetPinned(ctx context.Context, userID uint64, messageID string, pinned bool) error {
	msg, err := s.getVisible(ctx, userID, messageID)
	if err != nil {
		return err
	}
	if err = s.msgRepo.SetPinned(ctx, msg.ID, pinned); err != nil {
		return UnExpectedError
	}

	convID := msg.ConversationID.Hex()
	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventMessagePinned, map[string]interface{}{
		"conversation_id": convID,
		"message_id":      messageID,
		"is_pinned":       pinned,
		"pinned_by":       userID,
	})
	return nil
}

// AddReaction (用户,表情) 至多一条：先清后写，重复提交幂等
// 同一用户对同一条消息可以有多个不同表情
func (s *messageServiceImpl) AddReaction(ctx context.Context, userID uint64, messageID string, req *dto.ReactReq) (*dto.MessageDTO, error) {
	msg, err := s.getVisible(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	if err = s.msgRepo.PullReaction(ctx, msg.ID, userID, req.Emoji); err != nil {
		return nil, UnExpectedError
	}
	if err = s.msgRepo.PushReaction(ctx, msg.ID, mongo.Reaction{Emoji: req.Emoji, UserID: userID}); err != nil {
		return nil, UnExpectedError
	}

	return s.finishReaction(ctx, msg.ID, messageID)
}

// RemoveReaction 撤销指定表情，不存在时同样成功
func (s *messageServiceImpl) RemoveReaction(ctx context.Context, userID uint64, messageID string, emoji string) (*dto.MessageDTO, error) {
	if emoji == "" {
		return nil, ErrParamInvalid
	}
	msg, err := s.getVisible(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}

	if err = s.msgRepo.PullReaction(ctx, msg.ID, userID, emoji); err != nil {
		return nil, UnExpectedError
	}

	return s.finishReaction(ctx, msg.ID, messageID)
}

// finishReaction 计数总是整体重算，保证并发下与表态列表一致
func (s *messageServiceImpl) finishReaction(ctx context.Context, id primitive.ObjectID, messageID string) (*dto.MessageDTO, error) {
	updated, err := s.msgRepo.RecountReactions(ctx, id)
	if err != nil {
		return nil, UnExpectedError
	}

	convID := updated.ConversationID.Hex()
	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventReactionUpdated, map[string]interface{}{
		"conversation_id": convID,
		"message_id":      messageID,
		"reactions":       updated.Reactions,
		"reaction_counts": updated.ReactionCounts,
	})
	return s.toDTO(updated), nil
}

// Forward 逐条复制为新消息投递到各目标会话，部分失败不回滚
func (s *messageServiceImpl) Forward(ctx context.Context, userID uint64, req *dto.ForwardReq) ([]*dto.MessageDTO, error) {
	sources := make([]*mongo.Message, 0, len(req.MessageIDs))
	for _, id := range req.MessageIDs {
		msg, err := s.getVisible(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, msg)
	}

	var out []*dto.MessageDTO
	for _, convID := range req.ConversationIDs {
		conv, err := s.convSvc.RequireMember(ctx, userID, convID)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			copyMsg := &mongo.Message{
				ConversationID: conv.ID,
				SenderID:       userID,
				Type:           src.Type,
				Content:        src.Content,
				Attachments:    src.Attachments,
				Status:         consts.MsgStatusSent,
			}
			if err = s.deliver(ctx, conv, copyMsg); err != nil {
				log.Error("forward delivery failed", "convID", convID, "err", err)
				continue
			}
			out = append(out, s.toDTO(copyMsg))
		}
	}
	return out, nil
}

// List 游标翻页，新到旧取数后按时间正序返回
func (s *messageServiceImpl) List(ctx context.Context, userID uint64, convID string, page *dto.PageReq) ([]*dto.MessageDTO, error) {
	conv, err := s.convSvc.RequireMember(ctx, userID, convID)
	if err != nil {
		return nil, err
	}

	var before *primitive.ObjectID
	if page.Before != "" {
		oid, err := primitive.ObjectIDFromHex(page.Before)
		if err != nil {
			return nil, ErrParamInvalid
		}
		before = &oid
	}

	limit := page.Limit
	if limit <= 0 || limit > config.Cfg.Chat.MessagePageSize {
		limit = config.Cfg.Chat.MessagePageSize
	}

	msgs, err := s.msgRepo.List(ctx, conv.ID, userID, before, limit)
	if err != nil {
		return nil, UnExpectedError
	}

	out := make([]*dto.MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, s.toDTO(m))
	}
	return out, nil
}

// Search 全文检索，范围限定在调用者参与的会话
func (s *messageServiceImpl) Search(ctx context.Context, userID uint64, keyword string, from int) ([]*dto.SearchHitDTO, error) {
	if keyword == "" {
		return nil, ErrParamInvalid
	}

	convOIDs, err := s.convRepo.IDsForUser(ctx, userID)
	if err != nil {
		return nil, UnExpectedError
	}
	convIDs := make([]string, 0, len(convOIDs))
	for _, oid := range convOIDs {
		convIDs = append(convIDs, oid.Hex())
	}

	hits, err := s.searchRepo.Search(ctx, keyword, convIDs, from, config.Cfg.Chat.MessagePageSize)
	if err != nil {
		return nil, UnExpectedError
	}

	out := make([]*dto.SearchHitDTO, 0, len(hits))
	for _, h := range hits {
		out = append(out, &dto.SearchHitDTO{
			MessageID:      h.ID,
			ConversationID: h.ConversationID,
			SenderID:       h.SenderID,
			Content:        h.Content,
			CreatedAt:      h.CreatedAt,
		})
	}
	return out, nil
}

// MarkRead 整个会话置已读，未读数归零并广播回执
func (s *messageServiceImpl) MarkRead(ctx context.Context, userID uint64, convID string) error {
	conv, err := s.convSvc.RequireMember(ctx, userID, convID)
	if err != nil {
		return err
	}

	modified, err := s.msgRepo.MarkConversationSeen(ctx, conv.ID, userID)
	if err != nil {
		return UnExpectedError
	}
	if err = s.convRepo.ResetUnread(ctx, conv.ID, userID); err != nil {
		return UnExpectedError
	}

	if modified > 0 {
		s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventReceiptSeen, &dto.ReceiptEvent{
			ConversationID: convID,
			UserID:         userID,
			At:             time.Now(),
		})
	}
	return nil
}

// MarkDelivered 送达确认，只对他人发送的消息生效
func (s *messageServiceImpl) MarkDelivered(ctx context.Context, userID uint64, convID string, messageIDs []string) error {
	if _, err := s.convSvc.RequireMember(ctx, userID, convID); err != nil {
		return err
	}

	oids := make([]primitive.ObjectID, 0, len(messageIDs))
	for _, id := range messageIDs {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return ErrParamInvalid
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil
	}

	if err := s.msgRepo.MarkDelivered(ctx, oids, userID); err != nil {
		return UnExpectedError
	}

	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventReceiptDeliver, &dto.ReceiptEvent{
		ConversationID: convID,
		UserID:         userID,
		MessageIDs:     messageIDs,
		At:             time.Now(),
	})
	return nil
}

// Typing 输入状态纯广播，不落库
func (s *messageServiceImpl) Typing(ctx context.Context, userID uint64, convID string, isTyping bool) error {
	if _, err := s.convSvc.RequireMember(ctx, userID, convID); err != nil {
		return err
	}
	s.broadcaster.Broadcast(ctx, ConvRoom(convID), consts.EventTyping, &dto.TypingEvent{
		ConversationID: convID,
		UserID:         userID,
		IsTyping:       isTyping,
	})
	return nil
}

func (s *messageServiceImpl) ListScheduled(ctx context.Context, userID uint64) ([]*dto.ScheduledMessageDTO, error) {
	list, err := s.schedRepo.ListBySender(ctx, userID)
	if err != nil {
		return nil, UnExpectedError
	}

	out := make([]*dto.ScheduledMessageDTO, 0, len(list))
	for _, m := range list {
		item := &dto.ScheduledMessageDTO{}
		if err = copier.Copy(item, m); err != nil {
			continue
		}
		item.ID = m.ID.Hex()
		item.ConversationID = m.ConversationID.Hex()
		out = append(out, item)
	}
	return out, nil
}

// CancelScheduled 只有仍处于 pending 的定时消息可取消
func (s *messageServiceImpl) CancelScheduled(ctx context.Context, userID uint64, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrParamInvalid
	}
	ok, err := s.schedRepo.CancelPending(ctx, oid, userID)
	if err != nil {
		return UnExpectedError
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

// DispatchDue 先抢占状态再投递，抢占失败说明已被其它实例处理
func (s *messageServiceImpl) DispatchDue(ctx context.Context) error {
	due, err := s.schedRepo.FindDue(ctx, time.Now())
	if err != nil {
		return err
	}

	for _, sched := range due {
		claimed, err := s.schedRepo.ClaimPending(ctx, sched.ID)
		if err != nil {
			log.Error("claim scheduled message failed", "id", sched.ID.Hex(), "err", err)
			continue
		}
		if !claimed {
			continue
		}

		conv, err := s.convRepo.GetByID(ctx, sched.ConversationID)
		if err != nil || conv == nil {
			log.Error("scheduled message conversation missing", "id", sched.ID.Hex())
			continue
		}
		// 发送者已退出会话时静默丢弃
		if !conv.HasParticipant(sched.SenderID) {
			continue
		}

		msg := &mongo.Message{
			ConversationID: sched.ConversationID,
			SenderID:       sched.SenderID,
			Type:           sched.Type,
			Content:        sched.Content,
			Attachments:    sched.Attachments,
			Status:         consts.MsgStatusSent,
		}
		if err = s.deliver(ctx, conv, msg); err != nil {
			log.Error("dispatch scheduled message failed", "id", sched.ID.Hex(), "err", err)
		}
	}
	return nil
}

func (s *messageServiceImpl) ReapExpired(ctx context.Context) (int64, error) {
	return s.msgRepo.DeleteExpired(ctx, time.Now())
}

// getVisible 解析消息并校验调用者的可见性与成员资格
func (s *messageServiceImpl) getVisible(ctx context.Context, userID uint64, messageID string) (*mongo.Message, error) {
	oid, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return nil, ErrParamInvalid
	}
	msg, err := s.msgRepo.GetByID(ctx, oid)
	if err != nil {
		return nil, UnExpectedError
	}
	if msg == nil || msg.DeletedForEveryone || !msg.VisibleTo(userID) {
		return nil, ErrMessageNotFound
	}
	if _, err = s.convSvc.RequireMember(ctx, userID, msg.ConversationID.Hex()); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageServiceImpl) getOwn(ctx context.Context, userID uint64, messageID string) (*mongo.Message, error) {
	msg, err := s.getVisible(ctx, userID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, ErrForbidden
	}
	return msg, nil
}

func peerOf(conv *mongo.Conversation, userID uint64) uint64 {
	for _, id := range conv.Participants {
		if id != userID {
			return id
		}
	}
	return userID
}

// preview 会话列表与推送里展示的摘要
func preview(msg *mongo.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	switch msg.Type {
	case consts.MsgTypeImage:
		return "[图片]"
	case consts.MsgTypeFile:
		return "[文件]"
	case consts.MsgTypeAudio:
		return "[语音]"
	case consts.MsgTypeVideo:
		return "[视频]"
	default:
		return "[消息]"
	}
}

func (s *messageServiceImpl) toDTO(msg *mongo.Message) *dto.MessageDTO {
	out := &dto.MessageDTO{
		ID:             msg.ID.Hex(),
		ConversationID: msg.ConversationID.Hex(),
		SenderID:       msg.SenderID,
		Type:           msg.Type,
		Content:        msg.Content,
		ReactionCounts: msg.ReactionCounts,
		Status:         msg.Status,
		DeliveredTo:    msg.DeliveredTo,
		SeenBy:         msg.SeenBy,
		IsEdited:       msg.IsEdited,
		IsPinned:       msg.IsPinned,
		IsDeleted:      msg.DeletedForEveryone,
		ExpiresAt:      msg.ExpiresAt,
		CreatedAt:      msg.CreatedAt,
		EditedAt:       msg.EditedAt,
	}

	for _, a := range msg.Attachments {
		out.Attachments = append(out.Attachments, dto.AttachmentDTO{
			URL: a.URL, Type: a.Type, Name: a.Name, Size: a.Size, MimeType: a.MimeType,
		})
	}
	for _, r := range msg.Reactions {
		out.Reactions = append(out.Reactions, dto.ReactionDTO{Emoji: r.Emoji, UserID: r.UserID})
	}
	if msg.ReplyTo != nil {
		out.ReplyTo = msg.ReplyTo.Hex()
	}
	if msg.ThreadID != nil {
		out.ThreadID = msg.ThreadID.Hex()
	}
	return out
}
