package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dyscraper/pkg/browser"
	"dyscraper/pkg/config"
	"dyscraper/pkg/logger"
	"dyscraper/pkg/ratelimit"
	"dyscraper/pkg/scraper"
)

// SessionFactory opens a fresh browser session. Every inbound request
// gets its own: sessions are single-subscriber and must never be shared
// across concurrent calls.
type SessionFactory func() (browser.Driver, error)

// Server exposes the resolver and harvester over HTTP.
type Server struct {
	cfg        *config.Config
	log        logger.Logger
	limiter    ratelimit.Limiter
	jobs       *JobRegistry
	newSession SessionFactory
}

// New creates a Server.
func New(cfg *config.Config, log logger.Logger, newSession SessionFactory) *Server {
	return &Server{
		cfg:        cfg,
		log:        log,
		limiter:    ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute),
		jobs:       NewJobRegistry(),
		newSession: newSession,
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/get_video_url", s.getVideoURL)
	r.GET("/get_user_videos", s.getUserVideos)

	r.POST("/harvest", s.startHarvest)
	r.GET("/harvest/:id", s.getHarvest)
	r.DELETE("/harvest/:id", s.deleteHarvest)

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	s.log.WithField("addr", s.cfg.Server.Addr).Info("http server listening")
	return s.Router().Run(s.cfg.Server.Addr)
}

func (s *Server) getVideoURL(c *gin.Context) {
	rawURL := c.Query("url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}
	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	session, err := s.newSession()
	if err != nil {
		s.log.WithError(err).Error("failed to open browser session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = session.Close() }()

	resolver := scraper.NewLinkResolver(session, s.cfg, s.log)
	videoURL, err := resolver.Resolve(c.Request.Context(), rawURL)
	if err != nil {
		s.log.WithError(err).WithField("url", rawURL).Error("resolve failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"video_url": videoURL})
}

func (s *Server) getUserVideos(c *gin.Context) {
	pageURL := c.Query("pageurl")
	if pageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing pageurl parameter"})
		return
	}
	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	session, err := s.newSession()
	if err != nil {
		s.log.WithError(err).Error("failed to open browser session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer func() { _ = session.Close() }()

	harvester := scraper.NewFeedHarvester(session, s.cfg, s.log)
	videos, err := harvester.Harvest(c.Request.Context(), pageURL)
	if err != nil {
		s.log.WithError(err).WithField("pageurl", pageURL).Error("harvest failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

type harvestRequest struct {
	PageURL string `json:"pageurl" binding:"required"`
}

func (s *Server) startHarvest(c *gin.Context) {
	var req harvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing pageurl field"})
		return
	}
	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	job, ctx := s.jobs.Create(req.PageURL)
	go s.runHarvestJob(ctx, job.ID, req.PageURL)

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID})
}

func (s *Server) runHarvestJob(ctx context.Context, jobID, pageURL string) {
	log := s.log.WithField("job_id", jobID)

	session, err := s.newSession()
	if err != nil {
		log.WithError(err).Error("failed to open browser session")
		s.jobs.Fail(jobID, err.Error())
		return
	}
	defer func() { _ = session.Close() }()

	harvester := scraper.NewFeedHarvester(session, s.cfg, log)
	videos, err := harvester.Harvest(ctx, pageURL)
	if err != nil {
		log.WithError(err).Error("harvest job failed")
		s.jobs.Fail(jobID, err.Error())
		return
	}

	log.WithField("total", len(videos)).Info("harvest job finished")
	s.jobs.Complete(jobID, videos)
}

func (s *Server) getHarvest(c *gin.Context) {
	job, ok := s.jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) deleteHarvest(c *gin.Context) {
	if !s.jobs.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
