package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/muuzika/internal/apperrors"
	"github.com/palemoky/muuzika/internal/game/coordinator"
	"github.com/palemoky/muuzika/internal/protocol"
)

// handleCreateRoom POST /room
func (s *Server) handleCreateRoom(c *gin.Context) {
	var req protocol.CreateOrJoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalidBody(c)
		return
	}

	joined, err := s.rooms.CreateRoom(req.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomResponse(joined))
}

// handleJoinRoom POST /room/:code
func (s *Server) handleJoinRoom(c *gin.Context) {
	var req protocol.CreateOrJoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortInvalidBody(c)
		return
	}

	joined, err := s.rooms.JoinRoom(c.Param("code"), req.Username)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomResponse(joined))
}

// handleHealth 健康检查接口
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatsResponse /stats 响应
type StatsResponse struct {
	Rooms          int  `json:"rooms"`
	Online         int  `json:"online"`
	Connections    int  `json:"connections"`
	MaxConnections int  `json:"maxConnections"`
	Maintenance    bool `json:"maintenance"`
}

// handleStats 服务器状态
func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.stats())
}

func (s *Server) stats() StatsResponse {
	return StatsResponse{
		Rooms:          s.rooms.RoomCount(),
		Online:         s.hub.OnlineCount(),
		Connections:    len(s.semaphore),
		MaxConnections: s.maxConnections,
		Maintenance:    s.rooms.InMaintenance(),
	}
}

func roomResponse(j *coordinator.Joined) protocol.RoomCreatedOrJoinedResponse {
	return protocol.RoomCreatedOrJoinedResponse{
		Username: j.Identity.Username,
		RoomCode: j.Identity.RoomCode,
		Token:    j.Token,
	}
}

func abortInvalidBody(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"code":  protocol.ErrCodeInvalidMsg,
		"error": protocol.ErrorMessages[protocol.ErrCodeInvalidMsg],
	})
}

// abortWithError 将协调器错误映射为 HTTP 响应，认证和不存在错误不暴露细节
func abortWithError(c *gin.Context, err error) {
	var ge *apperrors.GameError
	if !errors.As(err, &ge) || ge.Kind == apperrors.KindInternal {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("❗ 请求处理失败")
	}

	pub := apperrors.Public(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{
		"code":  pub.Code,
		"error": pub.Message,
	})
}

// bearerToken 从 access_token 查询参数或 Authorization 头读取令牌
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
