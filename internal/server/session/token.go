package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"

	"github.com/palemoky/muuzika/internal/apperrors"
	"github.com/palemoky/muuzika/internal/config"
)

// Identity 令牌绑定的玩家身份
type Identity struct {
	RoomCode  string
	Username  string
	SessionID string
}

// playerClaims 房间级令牌声明
type playerClaims struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issuer 签发和校验连接令牌（HS256）
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	maxAge   time.Duration
	clock    clockwork.Clock
	parser   *jwt.Parser
}

// NewIssuer 创建令牌签发器
func NewIssuer(cfg config.JwtConfig, clk clockwork.Clock) *Issuer {
	return &Issuer{
		key:      []byte(cfg.Key),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		maxAge:   cfg.MaxAgeDuration(),
		clock:    clk,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithTimeFunc(clk.Now),
		),
	}
}

// Issue 为玩家签发令牌
func (i *Issuer) Issue(id Identity) (string, error) {
	now := i.clock.Now()
	claims := playerClaims{
		RoomCode: id.RoomCode,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.SessionID,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.maxAge)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify 校验令牌并返回身份
func (i *Issuer) Verify(tokenString string) (Identity, error) {
	claims := &playerClaims{}
	_, err := i.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidSignature
		}
		return i.key, nil
	})
	if err != nil {
		return Identity{}, mapJWTError(err)
	}

	if claims.RoomCode == "" || claims.Username == "" || claims.ID == "" {
		return Identity{}, apperrors.ErrInvalidToken
	}
	return Identity{
		RoomCode:  claims.RoomCode,
		Username:  claims.Username,
		SessionID: claims.ID,
	}, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperrors.ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, apperrors.ErrInvalidSignature):
		return apperrors.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.ErrTokenExpired
	default:
		return apperrors.ErrInvalidToken
	}
}
