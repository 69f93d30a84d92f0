package service

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/consts"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddMembers(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2)

	// 仅管理员可拉人
	err := env.groupSvc.AddMembers(ctx, 2, conv.ID.Hex(), &dto.AddMembersReq{UserIDs: []uint64{3}})
	assert.ErrorIs(t, err, ErrForbidden)

	err = env.groupSvc.AddMembers(ctx, 1, conv.ID.Hex(), &dto.AddMembersReq{UserIDs: []uint64{404}})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, env.groupSvc.AddMembers(ctx, 1, conv.ID.Hex(), &dto.AddMembersReq{UserIDs: []uint64{3}}))
	stored, _ := env.convRepo.GetByID(ctx, conv.ID)
	assert.True(t, stored.HasParticipant(3))
	// 进群事件 + 系统消息
	assert.Equal(t, 2, env.broadcaster.countOf(consts.EventMemberAdded))
	assert.Equal(t, 1, env.broadcaster.countOf(consts.EventMessageNew))

	// 已在群里的成员静默跳过，不再发系统消息
	assert.NoError(t, env.groupSvc.AddMembers(ctx, 1, conv.ID.Hex(), &dto.AddMembersReq{UserIDs: []uint64{3}}))
	assert.Equal(t, 1, env.broadcaster.countOf(consts.EventMessageNew))
}

func TestRemoveMemberProtections(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2, 3)
	_ = env.convRepo.AddAdmin(ctx, conv.ID, 2)

	// 不能移出自己，走退群
	assert.ErrorIs(t, env.groupSvc.RemoveMember(ctx, 1, conv.ID.Hex(), 1), ErrParamInvalid)
	// 群主不可被移出
	assert.ErrorIs(t, env.groupSvc.RemoveMember(ctx, 2, conv.ID.Hex(), 1), ErrForbidden)
	assert.ErrorIs(t, env.groupSvc.RemoveMember(ctx, 1, conv.ID.Hex(), 99), ErrNotFound)

	assert.NoError(t, env.groupSvc.RemoveMember(ctx, 1, conv.ID.Hex(), 3))
	stored, _ := env.convRepo.GetByID(ctx, conv.ID)
	assert.False(t, stored.HasParticipant(3))
	assert.Equal(t, 2, env.broadcaster.countOf(consts.EventMemberRemoved))
}

func TestLeavePromotesNewAdmin(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2, 3)

	// 唯一管理员退群后自动递补
	assert.NoError(t, env.groupSvc.Leave(ctx, 1, conv.ID.Hex()))

	stored, _ := env.convRepo.GetByID(ctx, conv.ID)
	assert.False(t, stored.HasParticipant(1))
	assert.Equal(t, []uint64{2}, stored.Admins)
}

func TestPromoteAndDemoteAdmin(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2, 3)

	assert.NoError(t, env.groupSvc.PromoteAdmin(ctx, 1, conv.ID.Hex(), 2))
	// 重复提升幂等，不再广播
	assert.NoError(t, env.groupSvc.PromoteAdmin(ctx, 1, conv.ID.Hex(), 2))
	assert.Equal(t, 1, env.broadcaster.countOf(consts.EventAdminChanged))

	assert.ErrorIs(t, env.groupSvc.PromoteAdmin(ctx, 1, conv.ID.Hex(), 99), ErrNotFound)

	// 群主身份不可被撤销
	assert.ErrorIs(t, env.groupSvc.DemoteAdmin(ctx, 2, conv.ID.Hex(), 1), ErrForbidden)
	assert.ErrorIs(t, env.groupSvc.DemoteAdmin(ctx, 1, conv.ID.Hex(), 3), ErrNotFound)

	assert.NoError(t, env.groupSvc.DemoteAdmin(ctx, 1, conv.ID.Hex(), 2))
	stored, _ := env.convRepo.GetByID(ctx, conv.ID)
	assert.Equal(t, []uint64{1}, stored.Admins)
}

func TestUpdateInfo(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2)

	name := "新名字"
	assert.NoError(t, env.groupSvc.UpdateInfo(ctx, 1, conv.ID.Hex(), &dto.UpdateGroupReq{Name: &name}))

	stored, _ := env.convRepo.GetByID(ctx, conv.ID)
	assert.Equal(t, "新名字", stored.GroupName)
	assert.Equal(t, 1, env.broadcaster.countOf(consts.EventConvUpdated))
	// 改名落系统消息
	assert.Equal(t, 1, env.broadcaster.countOf(consts.EventMessageNew))

	// 仅改简介不发系统消息
	desc := "只改简介"
	assert.NoError(t, env.groupSvc.UpdateInfo(ctx, 1, conv.ID.Hex(), &dto.UpdateGroupReq{Description: &desc}))
	assert.Equal(t, 1, env.broadcaster.countOf(consts.EventMessageNew))

	stored, _ = env.convRepo.GetByID(ctx, conv.ID)
	assert.Equal(t, "新名字", stored.GroupName)
	assert.Equal(t, "只改简介", stored.GroupDescription)
}

func TestJoinByInvite(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3, 4)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2)

	// 仅管理员可建链接
	_, err := env.groupSvc.CreateInvite(ctx, 2, conv.ID.Hex(), &dto.CreateInviteReq{})
	assert.ErrorIs(t, err, ErrForbidden)

	link, err := env.groupSvc.CreateInvite(ctx, 1, conv.ID.Hex(), &dto.CreateInviteReq{MaxUses: 1})
	assert.NoError(t, err)

	resp, err := env.groupSvc.JoinByInvite(ctx, 3, link.Token)
	assert.NoError(t, err)
	assert.False(t, resp.Pending)
	stored, _ := env.convRepo.GetByID(ctx, conv.ID)
	assert.True(t, stored.HasParticipant(3))

	// 已是成员时直接返回会话，不消耗名额
	resp, err = env.groupSvc.JoinByInvite(ctx, 3, link.Token)
	assert.NoError(t, err)
	assert.Equal(t, conv.ID.Hex(), resp.ConversationID)

	// 名额用尽
	_, err = env.groupSvc.JoinByInvite(ctx, 4, link.Token)
	assert.ErrorIs(t, err, ErrLinkLimit)

	// 不存在的链接按 NotFound 处理，不泄露过期语义
	_, err = env.groupSvc.JoinByInvite(ctx, 4, "no-such-token")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinByInviteExpiredOrRevoked(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2)

	link, err := env.groupSvc.CreateInvite(ctx, 1, conv.ID.Hex(), &dto.CreateInviteReq{ExpiresInHours: 1})
	assert.NoError(t, err)

	stored, _ := env.inviteRepo.GetLinkByToken(ctx, link.Token)
	past := time.Now().Add(-time.Minute)
	stored.ExpiresAt = &past

	_, err = env.groupSvc.JoinByInvite(ctx, 3, link.Token)
	assert.ErrorIs(t, err, ErrLinkExpired)

	fresh, err := env.groupSvc.CreateInvite(ctx, 1, conv.ID.Hex(), &dto.CreateInviteReq{})
	assert.NoError(t, err)
	storedFresh, _ := env.inviteRepo.GetLinkByToken(ctx, fresh.Token)

	assert.NoError(t, env.groupSvc.RevokeInvite(ctx, 1, conv.ID.Hex(), storedFresh.ID.Hex()))
	// 重复撤销
	assert.ErrorIs(t, env.groupSvc.RevokeInvite(ctx, 1, conv.ID.Hex(), storedFresh.ID.Hex()), ErrNotFound)

	// 撤销后的链接与不存在等价
	_, err = env.groupSvc.JoinByInvite(ctx, 3, fresh.Token)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeInviteScopedToConversation(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2)...)
	ctx := context.Background()
	convA := env.seedGroup(1, 2)
	convB := env.seedGroup(1, 2)

	link, err := env.groupSvc.CreateInvite(ctx, 1, convA.ID.Hex(), &dto.CreateInviteReq{})
	assert.NoError(t, err)
	stored, _ := env.inviteRepo.GetLinkByToken(ctx, link.Token)

	// 拿着 A 群的 linkID 在 B 群撤销不生效
	assert.ErrorIs(t, env.groupSvc.RevokeInvite(ctx, 1, convB.ID.Hex(), stored.ID.Hex()), ErrNotFound)

	refetched, _ := env.inviteRepo.GetLinkByID(ctx, stored.ID)
	assert.True(t, refetched.IsActive)
}

func TestJoinRequestApprovalFlow(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2)

	link, err := env.groupSvc.CreateInvite(ctx, 1, conv.ID.Hex(), &dto.CreateInviteReq{RequiresApproval: true})
	assert.NoError(t, err)

	resp, err := env.groupSvc.JoinByInvite(ctx, 3, link.Token)
	assert.NoError(t, err)
	assert.True(t, resp.Pending)
	assert.Equal(t, 1, env.broadcaster.countOf(consts.EventJoinRequested))

	// 重复申请不产生第二条待审记录
	resp, err = env.groupSvc.JoinByInvite(ctx, 3, link.Token)
	assert.NoError(t, err)
	assert.True(t, resp.Pending)
	assert.Equal(t, 1, env.broadcaster.countOf(consts.EventJoinRequested))

	pending, err := env.groupSvc.ListJoinRequests(ctx, 1, conv.ID.Hex())
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	requestID := pending[0].ID

	// 非管理员不可审批
	assert.ErrorIs(t, env.groupSvc.ResolveJoinRequest(ctx, 2, requestID, true), ErrForbidden)

	assert.NoError(t, env.groupSvc.ResolveJoinRequest(ctx, 1, requestID, true))
	stored, _ := env.convRepo.GetByID(ctx, conv.ID)
	assert.True(t, stored.HasParticipant(3))

	// 同一申请只能被处理一次
	assert.ErrorIs(t, env.groupSvc.ResolveJoinRequest(ctx, 1, requestID, true), ErrConflict)
}

func TestJoinRequestRejection(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3)...)
	ctx := context.Background()
	conv := env.seedGroup(1, 2)

	link, err := env.groupSvc.CreateInvite(ctx, 1, conv.ID.Hex(), &dto.CreateInviteReq{RequiresApproval: true})
	assert.NoError(t, err)

	_, err = env.groupSvc.JoinByInvite(ctx, 3, link.Token)
	assert.NoError(t, err)

	pending, _ := env.groupSvc.ListJoinRequests(ctx, 1, conv.ID.Hex())
	assert.Len(t, pending, 1)

	assert.NoError(t, env.groupSvc.ResolveJoinRequest(ctx, 1, pending[0].ID, false))
	stored, _ := env.convRepo.GetByID(ctx, conv.ID)
	assert.False(t, stored.HasParticipant(3))

	// 被拒后可重新申请
	resp, err := env.groupSvc.JoinByInvite(ctx, 3, link.Token)
	assert.NoError(t, err)
	assert.True(t, resp.Pending)
}

func TestGroupOpsRejectDirectConversation(t *testing.T) {
	env := newTestEnv(activeUsers(1, 2, 3)...)
	ctx := context.Background()
	conv := env.seedDirect(1, 2)

	err := env.groupSvc.AddMembers(ctx, 1, conv.ID.Hex(), &dto.AddMembersReq{UserIDs: []uint64{3}})
	assert.ErrorIs(t, err, ErrParamInvalid)
	assert.ErrorIs(t, env.groupSvc.Leave(ctx, 1, conv.ID.Hex()), ErrParamInvalid)
}
