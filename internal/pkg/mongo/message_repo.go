package mongo

import (
	"Harbor/internal/pkg/consts"
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	Insert(ctx context.Context, msg *Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Message, error)
	List(ctx context.Context, convID primitive.ObjectID, userID uint64, before *primitive.ObjectID, limit int) ([]*Message, error)
	UpdateContent(ctx context.Context, id primitive.ObjectID, content string) error
	AddDeletedFor(ctx context.Context, id primitive.ObjectID, userID uint64) error
	MarkDeletedForEveryone(ctx context.Context, id primitive.ObjectID) error
	SetPinned(ctx context.Context, id primitive.ObjectID, pinned bool) error
	PullReaction(ctx context.Context, id primitive.ObjectID, userID uint64, emoji string) error
	PushReaction(ctx context.Context, id primitive.ObjectID, r Reaction) error
	RecountReactions(ctx context.Context, id primitive.ObjectID) (*Message, error)
	MarkDelivered(ctx context.Context, ids []primitive.ObjectID, userID uint64) error
	MarkConversationSeen(ctx context.Context, convID primitive.ObjectID, userID uint64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{col: db.Collection("messages")}
}

func (s *messageRepoImpl) Insert(ctx context.Context, msg *Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	res, err := s.col.InsertOne(ctx, msg)
	if err != nil {
		return errors.Wrap(err, "insert message")
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *messageRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*Message, error) {
	var msg Message
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, noDocsAsNil(err)
	}
	return &msg, nil
}

// List 按游标向前翻页，before 为当前页最旧一条消息的 ID
// 单方删除的消息对该用户直接过滤掉，不返回占位
func (s *messageRepoImpl) List(ctx context.Context, convID primitive.ObjectID, userID uint64, before *primitive.ObjectID, limit int) ([]*Message, error) {
	filter := bson.M{
		"conversation_id": convID,
		"deleted_for":     bson.M{"$ne": userID},
	}
	if before != nil {
		filter["_id"] = bson.M{"$lt": *before}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []*Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	// 反转为从旧到新
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *messageRepoImpl) UpdateContent(ctx context.Context, id primitive.ObjectID, content string) error {
	now := time.Now()
	update := bson.M{"$set": bson.M{"content": content, "is_edited": true, "edited_at": now}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (s *messageRepoImpl) AddDeletedFor(ctx context.Context, id primitive.ObjectID, userID uint64) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"deleted_for": userID}})
	return err
}

// MarkDeletedForEveryone 全局墓碑：内容与附件不可逆抹除
func (s *messageRepoImpl) MarkDeletedForEveryone(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{
		"$set": bson.M{
			"deleted_for_everyone": true,
			"content":              "",
		},
		"$unset": bson.M{"attachments": "", "reaction_counts": "", "reactions": ""},
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (s *messageRepoImpl) SetPinned(ctx context.Context, id primitive.ObjectID, pinned bool) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"is_pinned": pinned}})
	return err
}

func (s *messageRepoImpl) PullReaction(ctx context.Context, id primitive.ObjectID, userID uint64, emoji string) error {
	update := bson.M{"$pull": bson.M{"reactions": bson.M{"user_id": userID, "emoji": emoji}}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (s *messageRepoImpl) PushReaction(ctx context.Context, id primitive.ObjectID, r Reaction) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"reactions": r}})
	return err
}

// RecountReactions 全量重算 reaction_counts，计数永远不增量维护
func (s *messageRepoImpl) RecountReactions(ctx context.Context, id primitive.ObjectID) (*Message, error) {
	msg, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, mongo.ErrNoDocuments
	}

	counts := make(map[string]int64, len(msg.Reactions))
	for _, r := range msg.Reactions {
		counts[r.Emoji]++
	}
	msg.ReactionCounts = counts

	_, err = s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"reaction_counts": counts}})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// MarkDelivered 只推进 sent→delivered，已 seen 的状态不回退
func (s *messageRepoImpl) MarkDelivered(ctx context.Context, ids []primitive.ObjectID, userID uint64) error {
	filter := bson.M{
		"_id":       bson.M{"$in": ids},
		"sender_id": bson.M{"$ne": userID},
	}
	_, err := s.col.UpdateMany(ctx, filter, bson.M{"$addToSet": bson.M{"delivered_to": userID}})
	if err != nil {
		return err
	}

	statusFilter := bson.M{
		"_id":       bson.M{"$in": ids},
		"sender_id": bson.M{"$ne": userID},
		"status":    consts.MsgStatusSent,
	}
	_, err = s.col.UpdateMany(ctx, statusFilter, bson.M{"$set": bson.M{"status": consts.MsgStatusDelivered}})
	return err
}

// MarkConversationSeen 会话级已读：他人发送且未读的消息全部置 seen
func (s *messageRepoImpl) MarkConversationSeen(ctx context.Context, convID primitive.ObjectID, userID uint64) (int64, error) {
	filter := bson.M{
		"conversation_id": convID,
		"sender_id":       bson.M{"$ne": userID},
		"seen_by":         bson.M{"$ne": userID},
	}
	update := bson.M{
		"$addToSet": bson.M{"seen_by": userID, "delivered_to": userID},
		"$set":      bson.M{"status": consts.MsgStatusSeen},
	}
	res, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// DeleteExpired 物理删除所有已过期消息
func (s *messageRepoImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"expires_at": bson.M{"$lte": now}}
	res, err := s.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
