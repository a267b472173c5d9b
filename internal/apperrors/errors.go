package apperrors

import (
	"errors"
	"net/http"

	"github.com/palemoky/muuzika/internal/protocol"
)

// Kind 错误类别，决定对外暴露方式
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindNotFound
	KindInternal
	KindUnavailable
)

// GameError 房间和会话共享的错误类型
type GameError struct {
	Code    int
	Kind    Kind
	Message string
}

func (e *GameError) Error() string {
	return e.Message
}

func newError(code int, kind Kind) *GameError {
	return &GameError{Code: code, Kind: kind, Message: protocol.ErrorMessages[code]}
}

// 预定义错误
var (
	ErrInvalidUsername   = newError(protocol.ErrCodeInvalidUsername, KindValidation)
	ErrRoomFull          = newError(protocol.ErrCodeRoomFull, KindValidation)
	ErrUsernameTaken     = newError(protocol.ErrCodeUsernameTaken, KindValidation)
	ErrRoomNotJoinable   = newError(protocol.ErrCodeRoomNotJoinable, KindValidation)
	ErrNotLeader         = newError(protocol.ErrCodeNotLeader, KindValidation)
	ErrInvalidTransition = newError(protocol.ErrCodeInvalidTransition, KindValidation)

	ErrRoomNotFound   = newError(protocol.ErrCodeRoomNotFound, KindNotFound)
	ErrPlayerNotFound = newError(protocol.ErrCodePlayerNotFound, KindNotFound)

	ErrInvalidToken     = newError(protocol.ErrCodeInvalidToken, KindAuth)
	ErrMalformedToken   = newError(protocol.ErrCodeMalformedToken, KindAuth)
	ErrInvalidSignature = newError(protocol.ErrCodeInvalidSignature, KindAuth)
	ErrTokenExpired     = newError(protocol.ErrCodeTokenExpired, KindAuth)

	ErrCodeSpaceExhausted = newError(protocol.ErrCodeCodeExhausted, KindInternal)
	ErrInvariantViolation = newError(protocol.ErrCodeInvariant, KindInternal)

	ErrServerMaintenance = newError(protocol.ErrCodeServerMaintenance, KindUnavailable)
)

var (
	errUnauthorized = newError(protocol.ErrCodeUnauthorized, KindAuth)
	errNotFound     = newError(protocol.ErrCodeNotFound, KindNotFound)
	errInternal     = newError(protocol.ErrCodeInternal, KindInternal)
)

// Public 返回可以发给客户端的错误。
// 鉴权失败统一为 unauthorized，房间和玩家不存在统一为 not found，未知错误统一为 internal。
func Public(err error) *GameError {
	var ge *GameError
	if !errors.As(err, &ge) {
		return errInternal
	}
	switch ge.Kind {
	case KindAuth:
		return errUnauthorized
	case KindNotFound:
		return errNotFound
	default:
		return ge
	}
}

// HTTPStatus 错误对应的 HTTP 状态码
func HTTPStatus(err error) int {
	var ge *GameError
	if !errors.As(err, &ge) {
		return http.StatusInternalServerError
	}
	switch ge.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindInternal:
		return http.StatusInternalServerError
	}
	switch ge.Code {
	case protocol.ErrCodeRoomFull, protocol.ErrCodeUsernameTaken, protocol.ErrCodeRoomNotJoinable:
		return http.StatusConflict
	case protocol.ErrCodeNotLeader:
		return http.StatusForbidden
	}
	return http.StatusBadRequest
}
