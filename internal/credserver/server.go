// Package credserver is the companion HTTP service that issues signed
// session URLs together with the rendered system prompt and a greeting.
package credserver

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"voicefront/internal/dayphase"
	"voicefront/internal/domain"
	"voicefront/internal/prompts"
)

const DefaultUpstream = "https://api.elevenlabs.io"

const signedURLFailure = "Failed to get signed URL"

// Config controls the credential server.
type Config struct {
	AgentID       string
	APIKey        string
	UpstreamURL   string
	PromptPath    string
	GreetingsPath string
	StaticDir     string
	// Location fills the location placeholders of the prompt.
	Location prompts.Location
	Timeout  time.Duration
}

// Server serves the credential endpoints.
type Server struct {
	cfg      Config
	catalog  prompts.Catalog
	upstream *resty.Client
	logger   *zap.Logger

	now  func() time.Time
	intn func(int) int
}

func New(cfg Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = DefaultUpstream
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	catalog, err := prompts.LoadCatalog(cfg.GreetingsPath)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		catalog:  catalog,
		upstream: resty.New().SetBaseURL(strings.TrimRight(cfg.UpstreamURL, "/")).SetTimeout(cfg.Timeout),
		logger:   logger,
		now:      time.Now,
		intn:     rand.IntN,
	}, nil
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(loggerMiddleware(s.logger))

	api := r.Group("/api")
	api.GET("/signed-url", s.handleSignedURL)
	api.GET("/signed-url/:dayPhase", s.handleSignedURL)
	api.GET("/getAgentId", s.handleAgentID)

	if s.cfg.StaticDir != "" {
		r.Static("/static", s.cfg.StaticDir)
		index := filepath.Join(s.cfg.StaticDir, "index.html")
		r.NoRoute(func(c *gin.Context) {
			if _, err := os.Stat(index); err != nil {
				c.Status(http.StatusNotFound)
				return
			}
			c.File(index)
		})
	}
	return r
}

func (s *Server) handleSignedURL(c *gin.Context) {
	phase := dayphase.Parse(c.Param("dayPhase"))

	tpl, err := prompts.LoadTemplate(s.cfg.PromptPath, 0)
	if err != nil {
		s.logger.Error("system prompt unavailable", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": signedURLFailure})
		return
	}

	creds := domain.Credentials{
		System:       tpl.Render(prompts.Vars(s.now(), s.cfg.Location)),
		FirstMessage: s.catalog.Pick(phase, s.intn),
	}

	signed, err := s.fetchSignedURL(c.Request.Context())
	if err != nil {
		s.logger.Error("signed url request failed", zap.String("phase", string(phase)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": signedURLFailure})
		return
	}
	creds.SignedURL = signed
	c.JSON(http.StatusOK, creds)
}

func (s *Server) handleAgentID(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agentId": s.cfg.AgentID})
}

type signedURLResponse struct {
	SignedURL string `json:"signed_url"`
}

func (s *Server) fetchSignedURL(ctx context.Context) (string, error) {
	var out signedURLResponse
	resp, err := s.upstream.R().
		SetContext(ctx).
		SetHeader("xi-api-key", s.cfg.APIKey).
		SetQueryParam("agent_id", s.cfg.AgentID).
		SetResult(&out).
		Get("/v1/convai/conversation/get_signed_url")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("upstream status %d", resp.StatusCode())
	}
	if out.SignedURL == "" {
		return "", errors.New("upstream returned no signed url")
	}
	return out.SignedURL, nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()
		if strings.HasPrefix(path, "/static") {
			return
		}
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
