package service

import (
	"Harbor/internal/api/config"
	"Harbor/internal/api/dto"
	"Harbor/internal/model"
	"Harbor/internal/pkg/consts"
	"Harbor/internal/pkg/redis"
	"Harbor/internal/pkg/security"
	"Harbor/internal/repository"
	"context"
	log "log/slog"
	"time"

	"github.com/jinzhu/copier"
)

type UserService interface {
	Register(ctx context.Context, req *dto.RegisterDTO) (*dto.TokenDTO, error)
	Login(ctx context.Context, req *dto.LoginDTO) (*dto.TokenDTO, error)
	Logout(ctx context.Context, token string) error
	GetProfile(ctx context.Context, userID uint64) (*dto.UserDTO, error)
	Block(ctx context.Context, userID, targetID uint64) error
	Unblock(ctx context.Context, userID, targetID uint64) error
	ListBlocked(ctx context.Context, userID uint64) ([]*dto.UserDTO, error)
}

type userServiceImpl struct {
	userRepo    repository.UserRepo
	blockedRepo repository.BlockedUserRepo
}

func NewUserService(userRepo repository.UserRepo, blockedRepo repository.BlockedUserRepo) UserService {
	return &userServiceImpl{
		userRepo:    userRepo,
		blockedRepo: blockedRepo,
	}
}

func (s *userServiceImpl) Register(ctx context.Context, req *dto.RegisterDTO) (*dto.TokenDTO, error) {
	existing, err := s.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, UnExpectedError
	}
	if existing != nil {
		return nil, ErrConflict
	}

	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, UnExpectedError
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashed,
		IsActive: true,
	}
	if err = s.userRepo.CreateUser(ctx, user); err != nil {
		log.Error("create user failed", "email", req.Email, "err", err)
		return nil, UnExpectedError
	}

	return s.issueToken(user)
}

func (s *userServiceImpl) Login(ctx context.Context, req *dto.LoginDTO) (*dto.TokenDTO, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, UnExpectedError
	}
	if user == nil || !user.IsActive {
		return nil, ErrCredentials
	}

	if err = security.CheckPasswordHash(req.Password, user.Password); err != nil {
		return nil, ErrCredentials
	}

	return s.issueToken(user)
}

// Logout 把令牌签名写入吊销名单，剩余有效期内拒绝复用
func (s *userServiceImpl) Logout(ctx context.Context, token string) error {
	sig, err := security.ExtractSignature(token)
	if err != nil {
		return UnauthorizedError
	}

	ttl := time.Duration(config.Cfg.JWT.ExpirationHours) * time.Hour
	if err = redis.SetWithExpiration(ctx, consts.TokenRevokePrefix+sig, "1", ttl); err != nil {
		log.Error("revoke token failed", "err", err)
		return UnExpectedError
	}
	return nil
}

func (s *userServiceImpl) GetProfile(ctx context.Context, userID uint64) (*dto.UserDTO, error) {
	user, err := s.userRepo.GetUserById(ctx, userID)
	if err != nil {
		return nil, UnExpectedError
	}
	if user == nil {
		return nil, ErrNotFound
	}

	out := &dto.UserDTO{}
	if err = copier.Copy(out, user); err != nil {
		return nil, UnExpectedError
	}
	return out, nil
}

func (s *userServiceImpl) Block(ctx context.Context, userID, targetID uint64) error {
	if userID == targetID {
		return ErrParamInvalid
	}
	target, err := s.userRepo.GetUserById(ctx, targetID)
	if err != nil {
		return UnExpectedError
	}
	if target == nil {
		return ErrNotFound
	}
	if err = s.blockedRepo.Block(ctx, userID, targetID); err != nil {
		return UnExpectedError
	}
	return nil
}

func (s *userServiceImpl) Unblock(ctx context.Context, userID, targetID uint64) error {
	if err := s.blockedRepo.Unblock(ctx, userID, targetID); err != nil {
		return UnExpectedError
	}
	return nil
}

func (s *userServiceImpl) ListBlocked(ctx context.Context, userID uint64) ([]*dto.UserDTO, error) {
	ids, err := s.blockedRepo.ListBlocked(ctx, userID)
	if err != nil {
		return nil, UnExpectedError
	}
	if len(ids) == 0 {
		return []*dto.UserDTO{}, nil
	}

	users, err := s.userRepo.GetUserByIds(ctx, ids)
	if err != nil {
		return nil, UnExpectedError
	}

	out := make([]*dto.UserDTO, 0, len(users))
	for _, u := range users {
		item := &dto.UserDTO{}
		if err = copier.Copy(item, u); err != nil {
			continue
		}
		item.Email = ""
		out = append(out, item)
	}
	return out, nil
}

func (s *userServiceImpl) issueToken(user *model.User) (*dto.TokenDTO, error) {
	token, err := security.GenerateToken(user.ID)
	if err != nil {
		return nil, UnExpectedError
	}
	return &dto.TokenDTO{
		Token: token,
		User: &dto.UserDTO{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			AvatarURL: user.AvatarURL,
		},
	}, nil
}
