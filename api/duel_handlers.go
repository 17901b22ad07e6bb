package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type requestDuelPayload struct {
	InitiatorID string `json:"initiatorId" binding:"required"`
	OpponentID  string `json:"opponentId" binding:"required"`
	SeatID      int64  `json:"seatId" binding:"required"`
}

func (s *Server) requestDuel(c *gin.Context) {
	var payload requestDuelPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := s.duels.RequestDuel(c.Request.Context(), payload.InitiatorID, payload.OpponentID, payload.SeatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, update)
}

func (s *Server) acceptDuel(c *gin.Context) {
	duelID, err := parseID(c.Param("duelId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duel id"})
		return
	}

	update, err := s.duels.AcceptDuel(c.Request.Context(), duelID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, update)
}

func (s *Server) declineDuel(c *gin.Context) {
	duelID, err := parseID(c.Param("duelId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duel id"})
		return
	}

	update, err := s.duels.DeclineDuel(c.Request.Context(), duelID, false)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, update)
}

func (s *Server) completeDuel(c *gin.Context) {
	duelID, err := parseID(c.Param("duelId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duel id"})
		return
	}

	update, err := s.duels.CompleteDuel(c.Request.Context(), duelID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, update)
}

func (s *Server) getDuel(c *gin.Context) {
	duelID, err := parseID(c.Param("duelId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid duel id"})
		return
	}

	duel, err := s.duels.GetDuelByID(c.Request.Context(), duelID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, duel)
}

func (s *Server) listDuels(c *gin.Context) {
	duels, err := s.duels.GetAllDuels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, duels)
}

func (s *Server) listDuelsBySeat(c *gin.Context) {
	seatID, err := parseID(c.Param("seatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seat id"})
		return
	}

	duels, err := s.duels.GetDuelsBySeat(c.Request.Context(), seatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, duels)
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}
