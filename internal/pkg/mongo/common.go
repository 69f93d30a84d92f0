package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// noDocsAsNil 把单文档查询的未命中归一为 (nil, nil)
// 服务层只判空指针，由它统一映射 NotFound，查询错误原样上抛
func noDocsAsNil(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return err
}
