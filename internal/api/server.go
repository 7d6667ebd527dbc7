// Package api serves the operational endpoints: health, loop status and
// Prometheus metrics. There is no data API; reporting reads the database
// directly.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"tracker/internal/account"
	"tracker/internal/fetcher"
)

// HealthChecker reports storage connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the operational HTTP server.
type Server struct {
	engine   *fetcher.Engine
	accounts *account.Provider
	db       HealthChecker
	http     *http.Server
}

// NewServer wires the gin router over the engine and provider snapshots.
func NewServer(addr string, engine *fetcher.Engine, accounts *account.Provider, db HealthChecker) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		engine:   engine,
		accounts: accounts,
		db:       db,
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}

	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Start serves until Shutdown is called.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("status server failed")
		}
	}()
	logrus.WithField("addr", s.http.Addr).Info("status server listening")
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.db.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStatus(c *gin.Context) {
	type userStatus struct {
		Account  string `json:"account"`
		Exchange string `json:"exchange"`
		Valid    bool   `json:"valid"`
		Reason   string `json:"reason,omitempty"`
	}

	users := s.accounts.Users()
	accounts := make([]userStatus, 0, len(users))
	for _, u := range users {
		accounts = append(accounts, userStatus{
			Account:  u.AccountName,
			Exchange: u.ExchangeName,
			Valid:    u.Valid,
			Reason:   u.Reason,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"loops":    s.engine.Status(),
		"accounts": accounts,
	})
}
