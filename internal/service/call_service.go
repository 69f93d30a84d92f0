package service

import (
	"Harbor/internal/api/dto"
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/mongo"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CallService 通话信令与状态机
// 状态只会单向推进，重复的状态迁移请求为幂等no-op
type CallService interface {
	Start(ctx context.Context, userID uint64, req *dto.StartCallReq) (*dto.CallDTO, error)
	Accept(ctx context.Context, userID uint64, callID string) (*dto.CallDTO, error)
	Reject(ctx context.Context, userID uint64, callID string) error
	End(ctx context.Context, userID uint64, callID string) error
	Signal(ctx context.Context, userID uint64, req *dto.CallSignalReq) error
	History(ctx context.Context, userID uint64, limit int) ([]*dto.CallDTO, error)
}

type callServiceImpl struct {
	callRepo    mongo.CallLogRepo
	convSvc     ConversationService
	broadcaster RoomBroadcaster
}

func NewCallService(callRepo mongo.CallLogRepo, convSvc ConversationService, broadcaster RoomBroadcaster) CallService {
	return &callServiceImpl{
		callRepo:    callRepo,
		convSvc:     convSvc,
		broadcaster: broadcaster,
	}
}

func (s *callServiceImpl) Start(ctx context.Context, userID uint64, req *dto.StartCallReq) (*dto.CallDTO, error) {
	conv, err := s.convSvc.RequireMember(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	call := &mongo.CallLog{
		ConversationID: conv.ID,
		CallType:       req.CallType,
		InitiatedBy:    userID,
		Participants:   []uint64{userID},
		Status:         consts.CallInitiated,
	}
	if err = s.callRepo.Create(ctx, call); err != nil {
		return nil, UnExpectedError
	}

	// 记录落库后立即转入响铃，initiated 只存在于落库与推送之间
	ok, err := s.callRepo.Transition(ctx, call.ID,
		[]string{consts.CallInitiated}, consts.CallRinging, nil)
	if err != nil || !ok {
		return nil, UnExpectedError
	}
	call.Status = consts.CallRinging

	s.announceState(ctx, call)
	return s.toDTO(call), nil
}

func (s *callServiceImpl) Accept(ctx context.Context, userID uint64, callID string) (*dto.CallDTO, error) {
	call, err := s.getCall(ctx, userID, callID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ok, err := s.callRepo.Transition(ctx, call.ID,
		[]string{consts.CallRinging}, consts.CallOngoing,
		bson.M{"started_at": now})
	if err != nil {
		return nil, UnExpectedError
	}
	if ok {
		call.Status = consts.CallOngoing
		call.StartedAt = &now
		s.announceState(ctx, call)
	} else if call.Status != consts.CallOngoing {
		// 已进入终态的通话不可再接听
		return nil, ErrConflict
	}
	return s.toDTO(call), nil
}

// Reject 被叫拒接，仍在响铃时生效，重复拒接直接吞掉
func (s *callServiceImpl) Reject(ctx context.Context, userID uint64, callID string) error {
	call, err := s.getCall(ctx, userID, callID)
	if err != nil {
		return err
	}
	if call.InitiatedBy == userID {
		return ErrParamInvalid
	}

	now := time.Now()
	ok, err := s.callRepo.Transition(ctx, call.ID,
		[]string{consts.CallRinging}, consts.CallRejected,
		bson.M{"ended_at": now})
	if err != nil {
		return UnExpectedError
	}
	if ok {
		call.Status = consts.CallRejected
		s.announceState(ctx, call)
	}
	return nil
}

// End 结束通话：进行中的记录时长，仍在响铃的按未接处理
func (s *callServiceImpl) End(ctx context.Context, userID uint64, callID string) error {
	call, err := s.getCall(ctx, userID, callID)
	if err != nil {
		return err
	}

	now := time.Now()
	set := bson.M{"ended_at": now}
	if call.StartedAt != nil {
		set["duration"] = int64(now.Sub(*call.StartedAt).Seconds())
	}

	ok, err := s.callRepo.Transition(ctx, call.ID,
		[]string{consts.CallOngoing}, consts.CallEnded, set)
	if err != nil {
		return UnExpectedError
	}
	if ok {
		call.Status = consts.CallEnded
		s.announceState(ctx, call)
		return nil
	}

	ok, err = s.callRepo.Transition(ctx, call.ID,
		[]string{consts.CallInitiated, consts.CallRinging}, consts.CallMissed,
		bson.M{"ended_at": now})
	if err != nil {
		return UnExpectedError
	}
	if ok {
		call.Status = consts.CallMissed
		s.announceState(ctx, call)
	}
	return nil
}

// Signal SDP/ICE 透传，引擎不解析载荷
func (s *callServiceImpl) Signal(ctx context.Context, userID uint64, req *dto.CallSignalReq) error {
	call, err := s.getCall(ctx, userID, req.CallID)
	if err != nil {
		return err
	}

	conv, err := s.convSvc.RequireMember(ctx, userID, call.ConversationID.Hex())
	if err != nil {
		return err
	}
	if !conv.HasParticipant(req.TargetUserID) {
		return ErrNotParticipant
	}

	s.broadcaster.Broadcast(ctx, UserRoom(req.TargetUserID), consts.EventCallSignal, &dto.CallSignalEvent{
		CallID:     req.CallID,
		FromUserID: userID,
		Signal:     req.Signal,
		Payload:    req.Payload,
	})
	return nil
}

func (s *callServiceImpl) History(ctx context.Context, userID uint64, limit int) ([]*dto.CallDTO, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	calls, err := s.callRepo.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, UnExpectedError
	}

	out := make([]*dto.CallDTO, 0, len(calls))
	for _, c := range calls {
		out = append(out, s.toDTO(c))
	}
	return out, nil
}

// getCall 解析通话并校验调用者是通话所在会话的成员
func (s *callServiceImpl) getCall(ctx context.Context, userID uint64, callID string) (*mongo.CallLog, error) {
	oid, err := primitive.ObjectIDFromHex(callID)
	if err != nil {
		return nil, ErrParamInvalid
	}
	call, err := s.callRepo.GetByID(ctx, oid)
	if err != nil {
		return nil, UnExpectedError
	}
	if call == nil {
		return nil, ErrNotFound
	}
	if _, err = s.convSvc.RequireMember(ctx, userID, call.ConversationID.Hex()); err != nil {
		return nil, err
	}
	return call, nil
}

func (s *callServiceImpl) announceState(ctx context.Context, call *mongo.CallLog) {
	s.broadcaster.Broadcast(ctx, ConvRoom(call.ConversationID.Hex()), consts.EventCallState, &dto.CallStateEvent{
		CallID:         call.ID.Hex(),
		ConversationID: call.ConversationID.Hex(),
		CallType:       call.CallType,
		InitiatedBy:    call.InitiatedBy,
		Status:         call.Status,
	})
}

func (s *callServiceImpl) toDTO(call *mongo.CallLog) *dto.CallDTO {
	return &dto.CallDTO{
		ID:             call.ID.Hex(),
		ConversationID: call.ConversationID.Hex(),
		CallType:       call.CallType,
		InitiatedBy:    call.InitiatedBy,
		Participants:   call.Participants,
		Status:         call.Status,
		StartedAt:      call.StartedAt,
		EndedAt:        call.EndedAt,
		Duration:       call.Duration,
		CreatedAt:      call.CreatedAt,
	}
}
