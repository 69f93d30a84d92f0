package mongo

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConversationRepo interface {
	Create(ctx context.Context, conv *Conversation) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*Conversation, error)
	GetDirectByPeerKey(ctx context.Context, peerKey string) (*Conversation, error)
	ListForUser(ctx context.Context, userID uint64, page, pageSize int) ([]*Conversation, error)
	UpdateLastMessage(ctx context.Context, id primitive.ObjectID, lm *LastMessage) error
	IncrUnreadExcept(ctx context.Context, id primitive.ObjectID, senderID uint64) error
	ResetUnread(ctx context.Context, id primitive.ObjectID, userID uint64) error
	SetMuted(ctx context.Context, id primitive.ObjectID, userID uint64, muted bool, until *time.Time) error
	SetPinned(ctx context.Context, id primitive.ObjectID, userID uint64, pinned bool) error
	HideFor(ctx context.Context, id primitive.ObjectID, userID uint64) error
	UnhideAll(ctx context.Context, id primitive.ObjectID) error
	UnhideFor(ctx context.Context, id primitive.ObjectID, userID uint64) error
	SetArchived(ctx context.Context, id primitive.ObjectID, userID uint64, archived bool) error
	AddParticipant(ctx context.Context, id primitive.ObjectID, userID uint64) error
	RemoveParticipant(ctx context.Context, id primitive.ObjectID, userID uint64) error
	AddAdmin(ctx context.Context, id primitive.ObjectID, userID uint64) error
	RemoveAdmin(ctx context.Context, id primitive.ObjectID, userID uint64) error
	PromoteFirstIfNoAdmin(ctx context.Context, id primitive.ObjectID) error
	SetGroupInfo(ctx context.Context, id primitive.ObjectID, name, description, image string) error
	SetDisappearing(ctx context.Context, id primitive.ObjectID, seconds int64) error
	IDsForUser(ctx context.Context, userID uint64) ([]primitive.ObjectID, error)
}

type conversationRepoImpl struct {
	col *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) ConversationRepo {
	return &conversationRepoImpl{col: db.Collection("conversations")}
}

func (s *conversationRepoImpl) Create(ctx context.Context, conv *Conversation) error {
	now := time.Now()
	conv.CreatedAt = now
	conv.UpdatedAt = now

	res, err := s.col.InsertOne(ctx, conv)
	if err != nil {
		return errors.Wrap(err, "insert conversation")
	}
	conv.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *conversationRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*Conversation, error) {
	var conv Conversation
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, noDocsAsNil(err)
	}
	return &conv, nil
}

func (s *conversationRepoImpl) GetDirectByPeerKey(ctx context.Context, peerKey string) (*Conversation, error) {
	var conv Conversation
	err := s.col.FindOne(ctx, bson.M{"peer_key": peerKey}).Decode(&conv)
	if err != nil {
		return nil, noDocsAsNil(err)
	}
	return &conv, nil
}

// ListForUser 返回用户可见的会话，隐藏与归档的排除在外，按最近消息排序
func (s *conversationRepoImpl) ListForUser(ctx context.Context, userID uint64, page, pageSize int) ([]*Conversation, error) {
	filter := bson.M{
		"participants": userID,
		"hidden_for":   bson.M{"$ne": userID},
		"archived_for": bson.M{"$ne": userID},
	}

	if page < 1 {
		page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "last_message.timestamp", Value: -1}, {Key: "updated_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*Conversation
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *conversationRepoImpl) UpdateLastMessage(ctx context.Context, id primitive.ObjectID, lm *LastMessage) error {
	update := bson.M{"$set": bson.M{"last_message": lm, "updated_at": time.Now()}}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// IncrUnreadExcept 除发送者外所有成员未读数 +1，单条原子更新
func (s *conversationRepoImpl) IncrUnreadExcept(ctx context.Context, id primitive.ObjectID, senderID uint64) error {
	update := bson.M{"$inc": bson.M{"metadata.$[elem].unread_count": 1}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.user_id": bson.M{"$ne": senderID}}},
	})
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	return err
}

func (s *conversationRepoImpl) ResetUnread(ctx context.Context, id primitive.ObjectID, userID uint64) error {
	update := bson.M{"$set": bson.M{"metadata.$[elem].unread_count": 0}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.user_id": userID}},
	})
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	return err
}

func (s *conversationRepoImpl) SetMuted(ctx context.Context, id primitive.ObjectID, userID uint64, muted bool, until *time.Time) error {
	set := bson.M{"metadata.$[elem].is_muted": muted}
	if until != nil {
		set["metadata.$[elem].muted_until"] = until
	}
	update := bson.M{"$set": set}
	if until == nil {
		update["$unset"] = bson.M{"metadata.$[elem].muted_until": ""}
	}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.user_id": userID}},
	})
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	return err
}

func (s *conversationRepoImpl) SetPinned(ctx context.Context, id primitive.ObjectID, userID uint64, pinned bool) error {
	update := bson.M{"$set": bson.M{"metadata.$[elem].is_pinned": pinned}}
	opts := options.Update().SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"elem.user_id": userID}},
	})
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update, opts)
	return err
}

func (s *conversationRepoImpl) HideFor(ctx context.Context, id primitive.ObjectID, userID uint64) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"hidden_for": userID}})
	return err
}

// UnhideAll 新消息到达时对所有人取消隐藏
func (s *conversationRepoImpl) UnhideAll(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"hidden_for": []uint64{}}})
	return err
}

func (s *conversationRepoImpl) UnhideFor(ctx context.Context, id primitive.ObjectID, userID uint64) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"hidden_for": userID}})
	return err
}

func (s *conversationRepoImpl) SetArchived(ctx context.Context, id primitive.ObjectID, userID uint64, archived bool) error {
	var update bson.M
	if archived {
		update = bson.M{"$addToSet": bson.M{"archived_for": userID}}
	} else {
		update = bson.M{"$pull": bson.M{"archived_for": userID}}
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// AddParticipant 成员与视图状态一并写入，重复加入由 participants 条件拦截
func (s *conversationRepoImpl) AddParticipant(ctx context.Context, id primitive.ObjectID, userID uint64) error {
	filter := bson.M{"_id": id, "participants": bson.M{"$ne": userID}}
	update := bson.M{
		"$push": bson.M{
			"participants": userID,
			"metadata":     MemberMeta{UserID: userID},
		},
	}
	res, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *conversationRepoImpl) RemoveParticipant(ctx context.Context, id primitive.ObjectID, userID uint64) error {
	update := bson.M{
		"$pull": bson.M{
			"participants": userID,
			"admins":       userID,
			"metadata":     bson.M{"user_id": userID},
		},
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (s *conversationRepoImpl) AddAdmin(ctx context.Context, id primitive.ObjectID, userID uint64) error {
	// admins ⊆ participants：只对已是成员的用户生效
	filter := bson.M{"_id": id, "participants": userID}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{"admins": userID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *conversationRepoImpl) RemoveAdmin(ctx context.Context, id primitive.ObjectID, userID uint64) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"admins": userID}})
	return err
}

// PromoteFirstIfNoAdmin 自愈不变量：管理员清空且仍有成员时，提升首位成员
func (s *conversationRepoImpl) PromoteFirstIfNoAdmin(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{
		"_id":            id,
		"participants.0": bson.M{"$exists": true},
		"$or": []bson.M{
			{"admins": bson.M{"$size": 0}},
			{"admins": bson.M{"$exists": false}},
		},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{"admins": bson.A{bson.M{"$arrayElemAt": bson.A{"$participants", 0}}}}}},
	}
	_, err := s.col.UpdateOne(ctx, filter, update)
	return err
}

func (s *conversationRepoImpl) SetGroupInfo(ctx context.Context, id primitive.ObjectID, name, description, image string) error {
	set := bson.M{"updated_at": time.Now()}
	if name != "" {
		set["group_name"] = name
	}
	if description != "" {
		set["group_description"] = description
	}
	if image != "" {
		set["group_image"] = image
	}
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (s *conversationRepoImpl) SetDisappearing(ctx context.Context, id primitive.ObjectID, seconds int64) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"disappearing_duration": seconds}})
	return err
}

// IDsForUser 连接建立时计算房间清单用
func (s *conversationRepoImpl) IDsForUser(ctx context.Context, userID uint64) ([]primitive.ObjectID, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1})
	cursor, err := s.col.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
