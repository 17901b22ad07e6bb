package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"seatduel/models"
	"seatduel/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Server is the HTTP adapter over the duel engine. It binds identities
// to requests and maps engine errors onto status codes; all state lives
// behind the services.
type Server struct {
	engine *gin.Engine
	http   *http.Server

	users service.UserService
	seats service.SeatService
	duels service.DuelService
	hub   *Hub
}

// NewServer creates the HTTP server with all routes registered
func NewServer(addr string, users service.UserService, seats service.SeatService, duels service.DuelService, hub *Hub) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	s := &Server{
		engine: engine,
		users:  users,
		seats:  seats,
		duels:  duels,
		hub:    hub,
	}

	engine.GET("/health-check", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	engine.GET("/ws", hub.HandleConnection)

	// Static and param segments never share a level; the router rejects
	// such conflicts at registration time.
	userRoutes := engine.Group("/users")
	{
		userRoutes.POST("", s.createUser)
		userRoutes.GET("", s.listUsers)
		userRoutes.GET("/:telegramId", s.getUser)
		userRoutes.PUT("/:telegramId/rules-seen", s.markRulesSeen)
		userRoutes.GET("/:telegramId/duel", s.getActiveDuel)
	}

	seatRoutes := engine.Group("/seats")
	{
		seatRoutes.GET("", s.listSeats)
		seatRoutes.GET("/:seatId", s.getSeat)
		seatRoutes.GET("/:seatId/duels", s.listDuelsBySeat)
		seatRoutes.POST("/:seatId/take", s.takeSeat)
	}
	engine.POST("/reset", s.resetSeats)

	duelRoutes := engine.Group("/duels")
	{
		duelRoutes.POST("", s.requestDuel)
		duelRoutes.GET("", s.listDuels)
		duelRoutes.GET("/:duelId", s.getDuel)
		duelRoutes.PUT("/:duelId/accept", s.acceptDuel)
		duelRoutes.PUT("/:duelId/decline", s.declineDuel)
		duelRoutes.PUT("/:duelId/complete", s.completeDuel)
	}

	s.http = &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	return s
}

// Run starts serving and blocks until the listener fails or Shutdown is
// called
func (s *Server) Run() error {
	log.WithField("addr", s.http.Addr).Info("HTTP server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// respondError maps the engine's error taxonomy onto HTTP status codes.
// ContentionExhausted maps to 503 so clients know the request itself was
// valid and may be retried wholesale.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSeatNotFound),
		errors.Is(err, models.ErrDuelNotFound),
		errors.Is(err, models.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrSeatOccupied),
		errors.Is(err, models.ErrSeatNotOccupied),
		errors.Is(err, models.ErrUserDueling),
		errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrContentionExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.WithField("error", err).Error("Unhandled error in HTTP handler")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
