package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/gagetrack/internal/config"
	"github.com/bitfantasy/gagetrack/internal/gage/entity"
	"github.com/bitfantasy/gagetrack/internal/gage/repository"
	"github.com/bitfantasy/gagetrack/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 认证服务
// 本地账号密码登录，JWT双令牌，refresh token存Redis校验与轮换
type AuthService struct {
	userRepo *repository.UserRepository
	rdb      *redis.Client
	jwtCfg   config.JWTConfig
}

func NewAuthService(userRepo *repository.UserRepository, rdb *redis.Client, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		rdb:      rdb,
		jwtCfg:   jwtCfg,
	}
}

// TokenPair 令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // access token有效秒数
}

func refreshKey(userID string) string {
	return "gagetrack:refresh:" + userID
}

// Login 账号密码登录
func (s *AuthService) Login(ctx context.Context, username, password string) (*entity.User, *TokenPair, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		// 不区分用户不存在与密码错误
		return nil, nil, fmt.Errorf("用户名或密码错误")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, fmt.Errorf("用户名或密码错误")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh 刷新令牌，旧refresh token作废
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*entity.User, *TokenPair, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("刷新令牌无效: %w", err)
	}

	stored, err := s.rdb.Get(ctx, refreshKey(claims.UserID)).Result()
	if err != nil || stored != refreshToken {
		return nil, nil, fmt.Errorf("刷新令牌已失效")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("用户不存在")
	}

	pair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Logout 注销，吊销refresh token
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, refreshKey(userID)).Err()
}

// GetCurrentUser 当前用户信息
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// ChangePassword 修改密码
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("原密码错误")
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("新密码至少8位")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	// 改密后强制重新登录
	return s.rdb.Del(ctx, refreshKey(userID)).Err()
}

func (s *AuthService) issueTokens(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()

	access, err := s.signToken(user, now, s.jwtCfg.AccessTokenExpire)
	if err != nil {
		return nil, fmt.Errorf("签发access token失败: %w", err)
	}
	refresh, err := s.signToken(user, now, s.jwtCfg.RefreshTokenExpire)
	if err != nil {
		return nil, fmt.Errorf("签发refresh token失败: %w", err)
	}

	if err := s.rdb.Set(ctx, refreshKey(user.ID), refresh, s.jwtCfg.RefreshTokenExpire).Err(); err != nil {
		return nil, fmt.Errorf("存储refresh token失败: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.jwtCfg.AccessTokenExpire.Seconds()),
	}, nil
}

func (s *AuthService) signToken(user *entity.User, now time.Time, expire time.Duration) (string, error) {
	claims := middleware.JWTClaims{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.jwtCfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
			ID:        uuid.New().String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.Secret))
}

func (s *AuthService) parseToken(tokenStr string) (*middleware.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &middleware.JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtCfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*middleware.JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
