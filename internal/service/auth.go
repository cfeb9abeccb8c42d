package service

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SafeCircle/config"
	"SafeCircle/internal/cache"
	"SafeCircle/internal/model"
	"SafeCircle/internal/repository"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/logger"
	"SafeCircle/pkg/sms"
	"SafeCircle/pkg/snowflake"
	"SafeCircle/pkg/token"
	"SafeCircle/utils"
)

// AuthService 手机号 + 短信验证码登录，首次登录即注册
type AuthService struct {
	users *repository.UserRepo
}

func NewAuthService(users *repository.UserRepo) *AuthService {
	return &AuthService{users: users}
}

// TokenPair 登录产物
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RequestLoginCode 发送登录验证码。同一号码 60 秒限一次。
func (s *AuthService) RequestLoginCode(ctx context.Context, phone string) error {
	if !utils.ValidatePhone(phone) {
		return errors.PhoneInvalid
	}

	phoneHash := utils.HashPhone(phone)

	allowed, err := cache.TryThrottleLogin(ctx, phoneHash)
	if err != nil {
		return err
	}
	if !allowed {
		return errors.LoginThrottled
	}

	code, err := generateLoginCode()
	if err != nil {
		return err
	}

	if err := cache.StoreLoginCode(ctx, phoneHash, code); err != nil {
		return err
	}

	param := fmt.Sprintf(`{"code":"%s"}`, code)
	if _, err := sms.GetClient().SendSingle(ctx, phone, config.Cfg.SMSSignName, config.Cfg.SMSCaptchaTemplate, param); err != nil {
		return err
	}

	logger.Logger.Info("Login code sent")
	return nil
}

// VerifyLoginCode 校验验证码并颁发 token。号码未注册时创建新用户。
// 验证码一次有效，失败不回存。
func (s *AuthService) VerifyLoginCode(ctx context.Context, phone, code, displayName, timezone string) (*TokenPair, *model.User, error) {
	if !utils.ValidatePhone(phone) {
		return nil, nil, errors.PhoneInvalid
	}

	phoneHash := utils.HashPhone(phone)

	stored, err := cache.TakeLoginCode(ctx, phoneHash)
	if err != nil {
		return nil, nil, err
	}
	if stored == "" || stored != code {
		return nil, nil, errors.LoginCodeInvalid
	}

	user, err := s.users.FindByPhoneHash(ctx, phoneHash)
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		user, err = s.register(ctx, phone, phoneHash, displayName, timezone)
	}
	if err != nil {
		return nil, nil, err
	}

	access, refresh, expiresIn, err := token.GenerateTokenPair(fmt.Sprintf("%d", user.ID))
	if err != nil {
		return nil, nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
	}, user, nil
}

// Refresh 用 refresh token 换新的 token 对
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	uid, err := token.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.ErrInvalidToken
	}

	access, refresh, expiresIn, err := token.GenerateTokenPair(uid)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    expiresIn,
	}, nil
}

// UpdatePushToken 绑定推送设备
func (s *AuthService) UpdatePushToken(ctx context.Context, userID int64, pushToken string) error {
	return s.users.UpdatePushToken(ctx, userID, pushToken)
}

func (s *AuthService) register(ctx context.Context, phone, phoneHash, displayName, timezone string) (*model.User, error) {
	cipher, err := utils.EncryptPhone(phone)
	if err != nil {
		return nil, err
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, err
	}

	if timezone == "" {
		timezone = "America/New_York"
	}

	user := &model.User{
		PublicID:    publicID,
		DisplayName: displayName,
		PhoneCipher: cipher,
		PhoneHash:   &phoneHash,
		Status:      model.UserStatusActive,
		Timezone:    timezone,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Logger.Info("User registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func generateLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
