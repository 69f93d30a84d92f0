package es

import (
	"context"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

// MessageES 消息检索文档，内容被抹除时同步删除
type MessageES struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       uint64    `json:"sender_id"`
	Content        string    `json:"content"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
}

type MessageSearchRepo interface {
	IndexMessage(ctx context.Context, msg *MessageES) error
	DeleteMessage(ctx context.Context, id string) error
	Search(ctx context.Context, keyword string, convIDs []string, from, size int) ([]*MessageES, error)
}

type messageSearchRepoImpl struct {
	client *elasticsearch.TypedClient
}

func NewMessageSearchRepo(client *elasticsearch.TypedClient) MessageSearchRepo {
	return &messageSearchRepoImpl{client: client}
}

func (s *messageSearchRepoImpl) IndexMessage(ctx context.Context, msg *MessageES) error {
	_, err := s.client.Index(MessageIndex).
		Id(msg.ID).
		Document(msg).
		Do(ctx)
	return err
}

func (s *messageSearchRepoImpl) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.client.Delete(MessageIndex, id).Do(ctx)
	return err
}

// Search 全文检索，范围限定在调用者参与的会话内
func (s *messageSearchRepoImpl) Search(ctx context.Context, keyword string, convIDs []string, from, size int) ([]*MessageES, error) {
	if len(convIDs) == 0 {
		return []*MessageES{}, nil
	}

	convValues := make([]types.FieldValue, 0, len(convIDs))
	for _, id := range convIDs {
		convValues = append(convValues, id)
	}

	boolQuery := &types.BoolQuery{
		Must: []types.Query{
			{Match: map[string]types.MatchQuery{"content": {Query: keyword}}},
		},
		Filter: []types.Query{
			{Terms: &types.TermsQuery{TermsQuery: map[string]types.TermsQueryField{
				"conversation_id": convValues,
			}}},
		},
	}

	res, err := s.client.Search().
		Index(MessageIndex).
		Query(&types.Query{Bool: boolQuery}).
		Sort(types.SortOptions{SortOptions: map[string]types.FieldSort{
			"created_at": {Order: &sortorder.Desc},
		}}).
		From(from).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*MessageES, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc MessageES
		if err := json.Unmarshal(hit.Source_, &doc); err != nil {
			continue
		}
		out = append(out, &doc)
	}
	return out, nil
}
