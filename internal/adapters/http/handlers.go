package http

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Keystroke/internal/app/orch"
	"github.com/dkeye/Keystroke/internal/domain"
)

type handlers struct {
	orch *orch.Orchestrator
}

type VerifyModCodeRequest struct {
	Code   string `json:"code" binding:"required"`
	UserID string `json:"userId" binding:"required"`
}

type VerifyModCodeResponse struct {
	Success bool `json:"success"`
}

type RoomNameResponse struct {
	Name string `json:"name"`
}

func (h *handlers) up(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) offensiveWords(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.OffensiveWords())
}

func (h *handlers) verifyModCode(c *gin.Context) {
	var req VerifyModCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid code"})
		return
	}
	uid := domain.UserID(req.UserID)
	if !h.orch.VerifyModCode(req.Code, uid) {
		log.Warn().Str("module", "adapters.http").Str("user", req.UserID).Msg("moderator code rejected")
		c.JSON(http.StatusOK, VerifyModCodeResponse{Success: false})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionModKey, req.UserID)
	if err := session.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("user", req.UserID).Msg("moderator verified")
	c.JSON(http.StatusOK, VerifyModCodeResponse{Success: true})
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.PublicRooms())
}

func (h *handlers) getRoom(c *gin.Context) {
	room, ok := h.orch.Room(domain.RoomID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *handlers) counts(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Counts())
}

func (h *handlers) roomName(c *gin.Context) {
	c.JSON(http.StatusOK, RoomNameResponse{Name: suggestRoomName()})
}
