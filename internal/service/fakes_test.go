package service

import (
	"Harbor/internal/api/config"
	"Harbor/internal/model"
	"Harbor/internal/pkg/es"
	"Harbor/internal/pkg/kafka"
	"Harbor/internal/pkg/mongo"
	"Harbor/internal/pkg/push"
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mdriver "go.mongodb.org/mongo-driver/mongo"
)

func init() {
	config.Cfg = &config.Config{
		Chat: config.ChatConfig{
			MessageMaxLength:  5000,
			EditWindowMinutes: 15,
			DeleteWindowHours: 1,
			MessagePageSize:   50,
			ConvPageSize:      20,
			MaxGroupMembers:   256,
			MaxAttachmentSize: 10 << 20,
		},
		JWT: config.JWTConfig{Secret: "test-secret", ExpirationHours: 24},
	}
}

// ---- conversation repo ----

type fakeConvRepo struct {
	mu    sync.Mutex
	convs map[primitive.ObjectID]*mongo.Conversation
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{convs: make(map[primitive.ObjectID]*mongo.Conversation)}
}

func (s *fakeConvRepo) Create(_ context.Context, conv *mongo.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv.ID = primitive.NewObjectID()
	s.convs[conv.ID] = conv
	return nil
}

func (s *fakeConvRepo) GetByID(_ context.Context, id primitive.ObjectID) (*mongo.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convs[id], nil
}

func (s *fakeConvRepo) GetDirectByPeerKey(_ context.Context, peerKey string) (*mongo.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.convs {
		if c.PeerKey == peerKey {
			return c, nil
		}
	}
	return nil, nil
}

func (s *fakeConvRepo) ListForUser(_ context.Context, userID uint64, _, _ int) ([]*mongo.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*mongo.Conversation
	for _, c := range s.convs {
		if !c.HasParticipant(userID) {
			continue
		}
		hidden := false
		for _, id := range c.HiddenFor {
			if id == userID {
				hidden = true
				break
			}
		}
		if !hidden {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeConvRepo) UpdateLastMessage(_ context.Context, id primitive.ObjectID, lm *mongo.LastMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		c.LastMessage = lm
		c.UpdatedAt = lm.Timestamp
	}
	return nil
}

func (s *fakeConvRepo) IncrUnreadExcept(_ context.Context, id primitive.ObjectID, senderID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		for i := range c.Metadata {
			if c.Metadata[i].UserID != senderID {
				c.Metadata[i].UnreadCount++
			}
		}
	}
	return nil
}

func (s *fakeConvRepo) ResetUnread(_ context.Context, id primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		for i := range c.Metadata {
			if c.Metadata[i].UserID == userID {
				c.Metadata[i].UnreadCount = 0
			}
		}
	}
	return nil
}

func (s *fakeConvRepo) SetMuted(_ context.Context, id primitive.ObjectID, userID uint64, muted bool, until *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		for i := range c.Metadata {
			if c.Metadata[i].UserID == userID {
				c.Metadata[i].IsMuted = muted
				c.Metadata[i].MutedUntil = until
			}
		}
	}
	return nil
}

func (s *fakeConvRepo) SetPinned(_ context.Context, id primitive.ObjectID, userID uint64, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		for i := range c.Metadata {
			if c.Metadata[i].UserID == userID {
				c.Metadata[i].IsPinned = pinned
			}
		}
	}
	return nil
}

func (s *fakeConvRepo) HideFor(_ context.Context, id primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		for _, existing := range c.HiddenFor {
			if existing == userID {
				return nil
			}
		}
		c.HiddenFor = append(c.HiddenFor, userID)
	}
	return nil
}

func (s *fakeConvRepo) UnhideAll(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		c.HiddenFor = nil
	}
	return nil
}

func (s *fakeConvRepo) UnhideFor(_ context.Context, id primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		var kept []uint64
		for _, existing := range c.HiddenFor {
			if existing != userID {
				kept = append(kept, existing)
			}
		}
		c.HiddenFor = kept
	}
	return nil
}

func (s *fakeConvRepo) SetArchived(_ context.Context, id primitive.ObjectID, userID uint64, archived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil
	}
	var kept []uint64
	for _, existing := range c.ArchivedFor {
		if existing != userID {
			kept = append(kept, existing)
		}
	}
	if archived {
		kept = append(kept, userID)
	}
	c.ArchivedFor = kept
	return nil
}

func (s *fakeConvRepo) AddParticipant(_ context.Context, id primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return mdriver.ErrNoDocuments
	}
	if c.HasParticipant(userID) {
		return mdriver.ErrNoDocuments
	}
	c.Participants = append(c.Participants, userID)
	c.Metadata = append(c.Metadata, mongo.MemberMeta{UserID: userID})
	return nil
}

func (s *fakeConvRepo) RemoveParticipant(_ context.Context, id primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil
	}
	var participants []uint64
	for _, p := range c.Participants {
		if p != userID {
			participants = append(participants, p)
		}
	}
	c.Participants = participants
	var metadata []mongo.MemberMeta
	for _, m := range c.Metadata {
		if m.UserID != userID {
			metadata = append(metadata, m)
		}
	}
	c.Metadata = metadata
	return nil
}

func (s *fakeConvRepo) AddAdmin(_ context.Context, id primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok && !c.HasAdmin(userID) {
		c.Admins = append(c.Admins, userID)
	}
	return nil
}

func (s *fakeConvRepo) RemoveAdmin(_ context.Context, id primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		var kept []uint64
		for _, a := range c.Admins {
			if a != userID {
				kept = append(kept, a)
			}
		}
		c.Admins = kept
	}
	return nil
}

func (s *fakeConvRepo) PromoteFirstIfNoAdmin(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		if len(c.Admins) == 0 && len(c.Participants) > 0 {
			c.Admins = []uint64{c.Participants[0]}
		}
	}
	return nil
}

func (s *fakeConvRepo) SetGroupInfo(_ context.Context, id primitive.ObjectID, name, description, image string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		c.GroupName = name
		c.GroupDescription = description
		c.GroupImage = image
	}
	return nil
}

func (s *fakeConvRepo) SetDisappearing(_ context.Context, id primitive.ObjectID, seconds int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.convs[id]; ok {
		c.DisappearingDuration = seconds
	}
	return nil
}

func (s *fakeConvRepo) IDsForUser(_ context.Context, userID uint64) ([]primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []primitive.ObjectID
	for id, c := range s.convs {
		if c.HasParticipant(userID) {
			out = append(out, id)
		}
	}
	return out, nil
}

// ---- message repo ----

type fakeMsgRepo struct {
	mu    sync.Mutex
	msgs  map[primitive.ObjectID]*mongo.Message
	order []primitive.ObjectID
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{msgs: make(map[primitive.ObjectID]*mongo.Message)}
}

func (s *fakeMsgRepo) Insert(_ context.Context, msg *mongo.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.msgs[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	return nil
}

func (s *fakeMsgRepo) GetByID(_ context.Context, id primitive.ObjectID) (*mongo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msgs[id], nil
}

func (s *fakeMsgRepo) List(_ context.Context, convID primitive.ObjectID, userID uint64, before *primitive.ObjectID, limit int) ([]*mongo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*mongo.Message
	for _, id := range s.order {
		m := s.msgs[id]
		if m.ConversationID != convID || !m.VisibleTo(userID) {
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *fakeMsgRepo) UpdateContent(_ context.Context, id primitive.ObjectID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.msgs[id]; ok {
		m.Content = content
		m.IsEdited = true
		now := time.Now()
		m.EditedAt = &now
	}
	return nil
}

func (s *fakeMsgRepo) AddDeletedFor(_ context.Context, id primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.msgs[id]; ok {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	return nil
}

func (s *fakeMsgRepo) MarkDeletedForEveryone(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.msgs[id]; ok {
		m.DeletedForEveryone = true
		m.Content = ""
		m.Attachments = nil
		m.Reactions = nil
		m.ReactionCounts = nil
	}
	return nil
}

func (s *fakeMsgRepo) SetPinned(_ context.Context, id primitive.ObjectID, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.msgs[id]; ok {
		m.IsPinned = pinned
	}
	return nil
}

func (s *fakeMsgRepo) PullReaction(_ context.Context, id primitive.ObjectID, userID uint64, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.msgs[id]; ok {
		var kept []mongo.Reaction
		for _, r := range m.Reactions {
			if r.UserID == userID && r.Emoji == emoji {
				continue
			}
			kept = append(kept, r)
		}
		m.Reactions = kept
	}
	return nil
}

func (s *fakeMsgRepo) PushReaction(_ context.Context, id primitive.ObjectID, r mongo.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.msgs[id]; ok {
		m.Reactions = append(m.Reactions, r)
	}
	return nil
}

func (s *fakeMsgRepo) RecountReactions(_ context.Context, id primitive.ObjectID) (*mongo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok {
		return nil, nil
	}
	counts := make(map[string]int64)
	for _, r := range m.Reactions {
		counts[r.Emoji]++
	}
	if len(counts) == 0 {
		m.ReactionCounts = nil
	} else {
		m.ReactionCounts = counts
	}
	return m, nil
}

func (s *fakeMsgRepo) MarkDelivered(_ context.Context, ids []primitive.ObjectID, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		m, ok := s.msgs[id]
		if !ok || m.SenderID == userID {
			continue
		}
		already := false
		for _, d := range m.DeliveredTo {
			if d == userID {
				already = true
				break
			}
		}
		if !already {
			m.DeliveredTo = append(m.DeliveredTo, userID)
		}
		if m.Status == "sent" {
			m.Status = "delivered"
		}
	}
	return nil
}

func (s *fakeMsgRepo) MarkConversationSeen(_ context.Context, convID primitive.ObjectID, userID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for _, m := range s.msgs {
		if m.ConversationID != convID || m.SenderID == userID {
			continue
		}
		seen := false
		for _, u := range m.SeenBy {
			if u == userID {
				seen = true
				break
			}
		}
		if seen {
			continue
		}
		m.SeenBy = append(m.SeenBy, userID)
		m.DeliveredTo = append(m.DeliveredTo, userID)
		m.Status = "seen"
		modified++
	}
	return modified, nil
}

func (s *fakeMsgRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	var keptOrder []primitive.ObjectID
	for _, id := range s.order {
		m := s.msgs[id]
		if m.ExpiresAt != nil && !m.ExpiresAt.After(now) {
			delete(s.msgs, id)
			deleted++
			continue
		}
		keptOrder = append(keptOrder, id)
	}
	s.order = keptOrder
	return deleted, nil
}

// ---- scheduled message repo ----

type fakeSchedRepo struct {
	mu   sync.Mutex
	msgs map[primitive.ObjectID]*mongo.ScheduledMessage
}

func newFakeSchedRepo() *fakeSchedRepo {
	return &fakeSchedRepo{msgs: make(map[primitive.ObjectID]*mongo.ScheduledMessage)}
}

func (s *fakeSchedRepo) Create(_ context.Context, msg *mongo.ScheduledMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = primitive.NewObjectID()
	msg.Status = "pending"
	msg.CreatedAt = time.Now()
	s.msgs[msg.ID] = msg
	return nil
}

func (s *fakeSchedRepo) GetByID(_ context.Context, id primitive.ObjectID) (*mongo.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msgs[id], nil
}

func (s *fakeSchedRepo) ListBySender(_ context.Context, senderID uint64) ([]*mongo.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*mongo.ScheduledMessage
	for _, m := range s.msgs {
		if m.SenderID == senderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeSchedRepo) CancelPending(_ context.Context, id primitive.ObjectID, senderID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok || m.SenderID != senderID || m.Status != "pending" {
		return false, nil
	}
	m.Status = "cancelled"
	return true, nil
}

func (s *fakeSchedRepo) FindDue(_ context.Context, now time.Time) ([]*mongo.ScheduledMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*mongo.ScheduledMessage
	for _, m := range s.msgs {
		if m.Status == "pending" && !m.ScheduledFor.After(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeSchedRepo) ClaimPending(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.msgs[id]
	if !ok || m.Status != "pending" {
		return false, nil
	}
	m.Status = "sent"
	now := time.Now()
	m.SentAt = &now
	return true, nil
}

// ---- invite repo ----

type fakeInviteRepo struct {
	mu       sync.Mutex
	links    map[primitive.ObjectID]*mongo.InviteLink
	requests map[primitive.ObjectID]*mongo.JoinRequest
}

func newFakeInviteRepo() *fakeInviteRepo {
	return &fakeInviteRepo{
		links:    make(map[primitive.ObjectID]*mongo.InviteLink),
		requests: make(map[primitive.ObjectID]*mongo.JoinRequest),
	}
}

func (s *fakeInviteRepo) CreateLink(_ context.Context, link *mongo.InviteLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link.ID = primitive.NewObjectID()
	link.IsActive = true
	link.CreatedAt = time.Now()
	s.links[link.ID] = link
	return nil
}

func (s *fakeInviteRepo) GetLinkByToken(_ context.Context, token string) (*mongo.InviteLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.links {
		if l.Token == token {
			return l, nil
		}
	}
	return nil, nil
}

func (s *fakeInviteRepo) GetLinkByID(_ context.Context, id primitive.ObjectID) (*mongo.InviteLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[id], nil
}

func (s *fakeInviteRepo) ListLinks(_ context.Context, convID primitive.ObjectID) ([]*mongo.InviteLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*mongo.InviteLink
	for _, l := range s.links {
		if l.ConversationID == convID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeInviteRepo) RevokeLink(_ context.Context, id, convID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok || l.ConversationID != convID || !l.IsActive {
		return false, nil
	}
	l.IsActive = false
	return true, nil
}

func (s *fakeInviteRepo) IncrementUse(_ context.Context, id primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return false, nil
	}
	if l.MaxUses > 0 && l.UseCount >= l.MaxUses {
		return false, nil
	}
	l.UseCount++
	return true, nil
}

func (s *fakeInviteRepo) CreateJoinRequest(_ context.Context, req *mongo.JoinRequest) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if r.ConversationID == req.ConversationID && r.UserID == req.UserID && r.Status == "pending" {
			return false, nil
		}
	}
	req.ID = primitive.NewObjectID()
	req.Status = "pending"
	req.CreatedAt = time.Now()
	s.requests[req.ID] = req
	return true, nil
}

func (s *fakeInviteRepo) GetRequest(_ context.Context, id primitive.ObjectID) (*mongo.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id], nil
}

func (s *fakeInviteRepo) ListPendingRequests(_ context.Context, convID primitive.ObjectID) ([]*mongo.JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*mongo.JoinRequest
	for _, r := range s.requests {
		if r.ConversationID == convID && r.Status == "pending" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeInviteRepo) ResolveRequest(_ context.Context, id primitive.ObjectID, status string, resolvedBy uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok || r.Status != "pending" {
		return false, nil
	}
	r.Status = status
	r.ResolvedBy = resolvedBy
	now := time.Now()
	r.ResolvedAt = &now
	return true, nil
}

// ---- call repo ----

type fakeCallRepo struct {
	mu    sync.Mutex
	calls map[primitive.ObjectID]*mongo.CallLog
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: make(map[primitive.ObjectID]*mongo.CallLog)}
}

func (s *fakeCallRepo) Create(_ context.Context, call *mongo.CallLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	call.ID = primitive.NewObjectID()
	call.CreatedAt = time.Now()
	s.calls[call.ID] = call
	return nil
}

func (s *fakeCallRepo) GetByID(_ context.Context, id primitive.ObjectID) (*mongo.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[id], nil
}

func (s *fakeCallRepo) Transition(_ context.Context, id primitive.ObjectID, fromStatuses []string, toStatus string, set bson.M) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call, ok := s.calls[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, from := range fromStatuses {
		if call.Status == from {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	call.Status = toStatus
	if v, ok := set["started_at"].(time.Time); ok {
		call.StartedAt = &v
	}
	if v, ok := set["ended_at"].(time.Time); ok {
		call.EndedAt = &v
	}
	if v, ok := set["duration"].(int64); ok {
		call.Duration = v
	}
	return true, nil
}

func (s *fakeCallRepo) ListForUser(_ context.Context, userID uint64, limit int) ([]*mongo.CallLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*mongo.CallLog
	for _, c := range s.calls {
		for _, p := range c.Participants {
			if p == userID {
				out = append(out, c)
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ---- mysql repos ----

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[uint64]*model.User), nextID: 1000}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (s *fakeUserRepo) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = user
	return nil
}

func (s *fakeUserRepo) GetUserById(_ context.Context, id uint64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *fakeUserRepo) GetUserByIds(_ context.Context, ids []uint64) ([]*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

type fakeBlockedRepo struct {
	mu    sync.Mutex
	pairs map[[2]uint64]bool
}

func newFakeBlockedRepo() *fakeBlockedRepo {
	return &fakeBlockedRepo{pairs: make(map[[2]uint64]bool)}
}

func (s *fakeBlockedRepo) Block(_ context.Context, blockerID, blockedID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[[2]uint64{blockerID, blockedID}] = true
	return nil
}

func (s *fakeBlockedRepo) Unblock(_ context.Context, blockerID, blockedID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pairs, [2]uint64{blockerID, blockedID})
	return nil
}

func (s *fakeBlockedRepo) IsBlockedEither(_ context.Context, a, b uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pairs[[2]uint64{a, b}] || s.pairs[[2]uint64{b, a}], nil
}

func (s *fakeBlockedRepo) ListBlocked(_ context.Context, blockerID uint64) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for pair := range s.pairs {
		if pair[0] == blockerID {
			out = append(out, pair[1])
		}
	}
	return out, nil
}

// ---- search repo ----

type fakeSearchRepo struct {
	mu      sync.Mutex
	indexed map[string]*es.MessageES
	deleted []string
}

func newFakeSearchRepo() *fakeSearchRepo {
	return &fakeSearchRepo{indexed: make(map[string]*es.MessageES)}
}

func (s *fakeSearchRepo) IndexMessage(_ context.Context, msg *es.MessageES) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexed[msg.ID] = msg
	return nil
}

func (s *fakeSearchRepo) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexed, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeSearchRepo) Search(_ context.Context, keyword string, convIDs []string, _, _ int) ([]*es.MessageES, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allowed := make(map[string]bool, len(convIDs))
	for _, id := range convIDs {
		allowed[id] = true
	}
	var out []*es.MessageES
	for _, doc := range s.indexed {
		if allowed[doc.ConversationID] && doc.Content == keyword {
			out = append(out, doc)
		}
	}
	return out, nil
}

// ---- broadcast / presence / producer / notifier ----

type broadcastRecord struct {
	Room  string
	Event string
	Data  interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []broadcastRecord
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{}
}

func (s *fakeBroadcaster) Broadcast(_ context.Context, room string, event string, data interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, broadcastRecord{Room: room, Event: event, Data: data})
}

func (s *fakeBroadcaster) countOf(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func (s *fakeBroadcaster) lastOf(event string) *broadcastRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Event == event {
			rec := s.events[i]
			return &rec
		}
	}
	return nil
}

type fakePresence struct {
	mu      sync.Mutex
	offline map[uint64]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{offline: make(map[uint64]bool)}
}

func (s *fakePresence) Connected(_ context.Context, _ uint64, _ string)    {}
func (s *fakePresence) Disconnected(_ context.Context, _ uint64, _ string) {}

func (s *fakePresence) IsOnline(userID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.offline[userID]
}

func (s *fakePresence) AnyOnline(userIDs []uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range userIDs {
		if !s.offline[id] {
			return true
		}
	}
	return false
}

func (s *fakePresence) OfflineOf(userIDs []uint64) []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, id := range userIDs {
		if s.offline[id] {
			out = append(out, id)
		}
	}
	return out
}

// fake 只记录被标记离线的用户，无法枚举全量在线列表
func (s *fakePresence) OnlineUsers() []uint64 {
	return nil
}

func (s *fakePresence) LastSeen(_ context.Context, _ uint64) (*time.Time, error) {
	return nil, nil
}

type fakeProducer struct {
	mu     sync.Mutex
	events []*kafka.ChatEvent
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{}
}

func (s *fakeProducer) Emit(event *kafka.ChatEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *fakeProducer) Close() error { return nil }

type fakeNotifier struct {
	mu    sync.Mutex
	notes []*push.Notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (s *fakeNotifier) Notify(_ context.Context, n *push.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return nil
}

// ---- test env ----

type testEnv struct {
	convRepo    *fakeConvRepo
	msgRepo     *fakeMsgRepo
	schedRepo   *fakeSchedRepo
	inviteRepo  *fakeInviteRepo
	callRepo    *fakeCallRepo
	userRepo    *fakeUserRepo
	blockedRepo *fakeBlockedRepo
	searchRepo  *fakeSearchRepo
	broadcaster *fakeBroadcaster
	presence    *fakePresence
	producer    *fakeProducer
	notifier    *fakeNotifier

	convSvc  ConversationService
	msgSvc   MessageService
	groupSvc GroupService
	callSvc  CallService
}

func newTestEnv(users ...*model.User) *testEnv {
	env := &testEnv{
		convRepo:    newFakeConvRepo(),
		msgRepo:     newFakeMsgRepo(),
		schedRepo:   newFakeSchedRepo(),
		inviteRepo:  newFakeInviteRepo(),
		callRepo:    newFakeCallRepo(),
		userRepo:    newFakeUserRepo(users...),
		blockedRepo: newFakeBlockedRepo(),
		searchRepo:  newFakeSearchRepo(),
		broadcaster: newFakeBroadcaster(),
		presence:    newFakePresence(),
		producer:    newFakeProducer(),
		notifier:    newFakeNotifier(),
	}

	env.convSvc = NewConversationService(env.convRepo, env.userRepo, env.blockedRepo, env.broadcaster)
	env.msgSvc = NewMessageService(env.msgRepo, env.convRepo, env.schedRepo, env.blockedRepo, env.searchRepo,
		env.convSvc, env.presence, env.broadcaster, env.producer, env.notifier)
	env.groupSvc = NewGroupService(env.convRepo, env.msgRepo, env.inviteRepo, env.userRepo, env.convSvc, env.broadcaster)
	env.callSvc = NewCallService(env.callRepo, env.convSvc, env.broadcaster)
	return env
}

// seedGroup 预置一个群聊，第一个成员为创建者兼管理员
func (env *testEnv) seedGroup(members ...uint64) *mongo.Conversation {
	metadata := make([]mongo.MemberMeta, 0, len(members))
	for _, id := range members {
		metadata = append(metadata, mongo.MemberMeta{UserID: id})
	}
	conv := &mongo.Conversation{
		Type:         "group",
		Participants: members,
		GroupName:    "测试群",
		Admins:       []uint64{members[0]},
		CreatedBy:    members[0],
		Metadata:     metadata,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	_ = env.convRepo.Create(context.Background(), conv)
	return conv
}

func (env *testEnv) seedDirect(a, b uint64) *mongo.Conversation {
	conv := &mongo.Conversation{
		Type:         "direct",
		Participants: []uint64{a, b},
		PeerKey:      directPeerKey(a, b),
		Metadata:     []mongo.MemberMeta{{UserID: a}, {UserID: b}},
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	_ = env.convRepo.Create(context.Background(), conv)
	return conv
}
