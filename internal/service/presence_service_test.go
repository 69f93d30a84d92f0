package service

import (
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/mongo"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPresenceFirstConnectionAnnounces(t *testing.T) {
	convRepo := newFakeConvRepo()
	broadcaster := newFakeBroadcaster()
	presence := NewPresenceService(convRepo, broadcaster)
	ctx := context.Background()

	conv := &mongo.Conversation{
		Type:         consts.ConvTypeDirect,
		Participants: []uint64{1, 2},
		Metadata:     []mongo.MemberMeta{{UserID: 1}, {UserID: 2}},
	}
	_ = convRepo.Create(ctx, conv)

	presence.Connected(ctx, 1, "conn-a")
	assert.True(t, presence.IsOnline(1))
	assert.Equal(t, 1, broadcaster.countOf(consts.EventPresence))

	// 同一用户的后续连接不再广播
	presence.Connected(ctx, 1, "conn-b")
	assert.Equal(t, 1, broadcaster.countOf(consts.EventPresence))

	// 还有存活连接时下线不广播
	presence.Disconnected(ctx, 1, "conn-a")
	assert.True(t, presence.IsOnline(1))
	assert.Equal(t, 1, broadcaster.countOf(consts.EventPresence))
}

func TestPresenceQueries(t *testing.T) {
	presence := NewPresenceService(newFakeConvRepo(), newFakeBroadcaster())
	ctx := context.Background()

	presence.Connected(ctx, 1, "conn-a")

	assert.True(t, presence.AnyOnline([]uint64{1, 2}))
	assert.False(t, presence.AnyOnline([]uint64{2, 3}))
	assert.Equal(t, []uint64{2, 3}, presence.OfflineOf([]uint64{1, 2, 3}))
}

// 新连接下发的在线快照来自这里
func TestPresenceOnlineUsersSnapshot(t *testing.T) {
	presence := NewPresenceService(newFakeConvRepo(), newFakeBroadcaster())
	ctx := context.Background()

	assert.Empty(t, presence.OnlineUsers())

	presence.Connected(ctx, 1, "conn-a")
	presence.Connected(ctx, 1, "conn-b")
	presence.Connected(ctx, 2, "conn-c")
	assert.ElementsMatch(t, []uint64{1, 2}, presence.OnlineUsers())

	// 仍有存活连接的用户保留在快照里
	presence.Disconnected(ctx, 1, "conn-a")
	assert.ElementsMatch(t, []uint64{1, 2}, presence.OnlineUsers())
}
