package mongo

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestNoDocsAsNil(t *testing.T) {
	// 未命中归一为 nil，服务层据此判定 NotFound
	assert.NoError(t, noDocsAsNil(mongo.ErrNoDocuments))
	// Wrap 后的未命中同样识别
	assert.NoError(t, noDocsAsNil(errors.Wrap(mongo.ErrNoDocuments, "get conversation")))

	// 真正的查询错误原样上抛
	queryErr := errors.New("connection reset")
	assert.Equal(t, queryErr, noDocsAsNil(queryErr))
	assert.NoError(t, noDocsAsNil(nil))
}
