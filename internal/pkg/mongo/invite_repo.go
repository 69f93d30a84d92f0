package mongo

import (
	"Harbor/internal/pkg/consts"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type InviteRepo interface {
	CreateLink(ctx context.Context, link *InviteLink) error
	GetLinkByToken(ctx context.Context, token string) (*InviteLink, error)
	GetLinkByID(ctx context.Context, id primitive.ObjectID) (*InviteLink, error)
	ListLinks(ctx context.Context, convID primitive.ObjectID) ([]*InviteLink, error)
	RevokeLink(ctx context.Context, id, convID primitive.ObjectID) (bool, error)
	IncrementUse(ctx context.Context, id primitive.ObjectID) (bool, error)

	CreateJoinRequest(ctx context.Context, req *JoinRequest) (created bool, err error)
	GetRequest(ctx context.Context, id primitive.ObjectID) (*JoinRequest, error)
	ListPendingRequests(ctx context.Context, convID primitive.ObjectID) ([]*JoinRequest, error)
	ResolveRequest(ctx context.Context, id primitive.ObjectID, status string, resolvedBy uint64) (bool, error)
}

type inviteRepoImpl struct {
	links    *mongo.Collection
	requests *mongo.Collection
}

func NewInviteRepo(db *mongo.Database) InviteRepo {
	return &inviteRepoImpl{
		links:    db.Collection("invite_links"),
		requests: db.Collection("join_requests"),
	}
}

func (s *inviteRepoImpl) CreateLink(ctx context.Context, link *InviteLink) error {
	link.IsActive = true
	link.CreatedAt = time.Now()
	res, err := s.links.InsertOne(ctx, link)
	if err != nil {
		return err
	}
	link.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *inviteRepoImpl) GetLinkByToken(ctx context.Context, token string) (*InviteLink, error) {
	var link InviteLink
	if err := s.links.FindOne(ctx, bson.M{"token": token}).Decode(&link); err != nil {
		return nil, noDocsAsNil(err)
	}
	return &link, nil
}

func (s *inviteRepoImpl) GetLinkByID(ctx context.Context, id primitive.ObjectID) (*InviteLink, error) {
	var link InviteLink
	if err := s.links.FindOne(ctx, bson.M{"_id": id}).Decode(&link); err != nil {
		return nil, noDocsAsNil(err)
	}
	return &link, nil
}

func (s *inviteRepoImpl) ListLinks(ctx context.Context, convID primitive.ObjectID) ([]*InviteLink, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.links.Find(ctx, bson.M{"conversation_id": convID, "is_active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*InviteLink
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *inviteRepoImpl) RevokeLink(ctx context.Context, id, convID primitive.ObjectID) (bool, error) {
	filter := bson.M{"_id": id, "conversation_id": convID, "is_active": true}
	res, err := s.links.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// IncrementUse 带用量上限的条件自增，到顶后不再匹配
func (s *inviteRepoImpl) IncrementUse(ctx context.Context, id primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id":       id,
		"is_active": true,
		"$or": []bson.M{
			{"max_uses": 0},
			{"$expr": bson.M{"$lt": bson.A{"$use_count", "$max_uses"}}},
		},
	}
	res, err := s.links.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"use_count": 1}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// CreateJoinRequest 同一 (会话,用户) 至多一条 pending，重复申请幂等返回
func (s *inviteRepoImpl) CreateJoinRequest(ctx context.Context, req *JoinRequest) (bool, error) {
	filter := bson.M{
		"conversation_id": req.ConversationID,
		"user_id":         req.UserID,
		"status":          consts.JoinRequestPending,
	}
	update := bson.M{"$setOnInsert": bson.M{
		"conversation_id": req.ConversationID,
		"user_id":         req.UserID,
		"link_id":         req.LinkID,
		"status":          consts.JoinRequestPending,
		"created_at":      time.Now(),
	}}
	res, err := s.requests.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	if res.UpsertedID != nil {
		req.ID = res.UpsertedID.(primitive.ObjectID)
		return true, nil
	}
	return false, nil
}

func (s *inviteRepoImpl) GetRequest(ctx context.Context, id primitive.ObjectID) (*JoinRequest, error) {
	var req JoinRequest
	if err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return nil, noDocsAsNil(err)
	}
	return &req, nil
}

func (s *inviteRepoImpl) ListPendingRequests(ctx context.Context, convID primitive.ObjectID) ([]*JoinRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	filter := bson.M{"conversation_id": convID, "status": consts.JoinRequestPending}
	cursor, err := s.requests.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*JoinRequest
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ResolveRequest pending 之外的状态为终态，重复处理不生效
func (s *inviteRepoImpl) ResolveRequest(ctx context.Context, id primitive.ObjectID, status string, resolvedBy uint64) (bool, error) {
	now := time.Now()
	filter := bson.M{"_id": id, "status": consts.JoinRequestPending}
	update := bson.M{"$set": bson.M{
		"status":      status,
		"resolved_by": resolvedBy,
		"resolved_at": now,
	}}
	res, err := s.requests.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
