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

type ScheduledMessageRepo interface {
	Create(ctx context.Context, msg *ScheduledMessage) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*ScheduledMessage, error)
	ListBySender(ctx context.Context, senderID uint64) ([]*ScheduledMessage, error)
	CancelPending(ctx context.Context, id primitive.ObjectID, senderID uint64) (bool, error)
	FindDue(ctx context.Context, now time.Time) ([]*ScheduledMessage, error)
	ClaimPending(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type scheduledMessageRepoImpl struct {
	col *mongo.Collection
}

func NewScheduledMessageRepo(db *mongo.Database) ScheduledMessageRepo {
	return &scheduledMessageRepoImpl{col: db.Collection("scheduled_messages")}
}

func (s *scheduledMessageRepoImpl) Create(ctx context.Context, msg *ScheduledMessage) error {
	msg.Status = consts.ScheduledPending
	msg.CreatedAt = time.Now()
	res, err := s.col.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *scheduledMessageRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*ScheduledMessage, error) {
	var msg ScheduledMessage
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, noDocsAsNil(err)
	}
	return &msg, nil
}

func (s *scheduledMessageRepoImpl) ListBySender(ctx context.Context, senderID uint64) ([]*ScheduledMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_for", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{"sender_id": senderID, "status": consts.ScheduledPending}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*ScheduledMessage
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// CancelPending 仅 pending 可取消，且只能由发送者操作
func (s *scheduledMessageRepoImpl) CancelPending(ctx context.Context, id primitive.ObjectID, senderID uint64) (bool, error) {
	filter := bson.M{"_id": id, "sender_id": senderID, "status": consts.ScheduledPending}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"status": consts.ScheduledCancelled}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *scheduledMessageRepoImpl) FindDue(ctx context.Context, now time.Time) ([]*ScheduledMessage, error) {
	filter := bson.M{
		"status":        consts.ScheduledPending,
		"scheduled_for": bson.M{"$lte": now},
	}
	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*ScheduledMessage
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// ClaimPending 先抢占状态再产生副作用，重叠的调度 tick 不会重复投递
func (s *scheduledMessageRepoImpl) ClaimPending(ctx context.Context, id primitive.ObjectID) (bool, error) {
	now := time.Now()
	filter := bson.M{"_id": id, "status": consts.ScheduledPending}
	update := bson.M{"$set": bson.M{"status": consts.ScheduledSent, "sent_at": now}}
	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
