package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type takeSeatPayload struct {
	TelegramID string `json:"telegramId" binding:"required"`
}

func (s *Server) listSeats(c *gin.Context) {
	seats, err := s.seats.ListSeats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

func (s *Server) getSeat(c *gin.Context) {
	seatID, err := parseID(c.Param("seatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seat id"})
		return
	}

	seat, err := s.seats.GetSeat(c.Request.Context(), seatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seat)
}

func (s *Server) takeSeat(c *gin.Context) {
	seatID, err := parseID(c.Param("seatId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seat id"})
		return
	}

	var payload takeSeatPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seat, changed, err := s.seats.TakeSeat(c.Request.Context(), payload.TelegramID, seatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"seat": seat, "changedSeats": changed})
}

func (s *Server) resetSeats(c *gin.Context) {
	seats, err := s.seats.ResetAllSeats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}
