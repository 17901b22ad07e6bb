package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createUserPayload struct {
	TelegramID string  `json:"telegramId" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Username   *string `json:"username"`
}

func (s *Server) createUser(c *gin.Context) {
	var payload createUserPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.GetOrCreateUser(c.Request.Context(), payload.TelegramID, payload.Name, payload.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.users.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) getUser(c *gin.Context) {
	user, err := s.users.GetUser(c.Request.Context(), c.Param("telegramId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) markRulesSeen(c *gin.Context) {
	if err := s.users.MarkRulesSeen(c.Request.Context(), c.Param("telegramId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rulesSeen": true})
}

func (s *Server) getActiveDuel(c *gin.Context) {
	duel, err := s.duels.GetActiveDuelForUser(c.Request.Context(), c.Param("telegramId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if duel == nil {
		c.JSON(http.StatusOK, gin.H{"duel": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"duel": duel})
}
