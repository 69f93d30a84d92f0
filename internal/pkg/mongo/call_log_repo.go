package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CallLogRepo interface {
	Create(ctx context.Context, call *CallLog) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*CallLog, error)
	Transition(ctx context.Context, id primitive.ObjectID, fromStatuses []string, toStatus string, set bson.M) (bool, error)
	ListForUser(ctx context.Context, userID uint64, limit int) ([]*CallLog, error)
}

type callLogRepoImpl struct {
	col *mongo.Collection
}

func NewCallLogRepo(db *mongo.Database) CallLogRepo {
	return &callLogRepoImpl{col: db.Collection("call_logs")}
}

func (s *callLogRepoImpl) Create(ctx context.Context, call *CallLog) error {
	call.CreatedAt = time.Now()
	res, err := s.col.InsertOne(ctx, call)
	if err != nil {
		return err
	}
	call.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *callLogRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*CallLog, error) {
	var call CallLog
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&call); err != nil {
		return nil, noDocsAsNil(err)
	}
	return &call, nil
}

// Transition 条件状态迁移，当前状态不在 fromStatuses 中时不生效
// 对已终态的重复操作由调用方按幂等处理
func (s *callLogRepoImpl) Transition(ctx context.Context, id primitive.ObjectID, fromStatuses []string, toStatus string, set bson.M) (bool, error) {
	if set == nil {
		set = bson.M{}
	}
	set["status"] = toStatus

	filter := bson.M{"_id": id, "status": bson.M{"$in": fromStatuses}}
	res, err := s.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (s *callLogRepoImpl) ListForUser(ctx context.Context, userID uint64, limit int) ([]*CallLog, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.col.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []*CallLog
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}
