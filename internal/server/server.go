// Package server exposes the pipeline over HTTP: runs are started
// asynchronously and polled as jobs, outputs are served once written.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/contentsmith/pipewright/internal/engine"
	"github.com/contentsmith/pipewright/internal/jobs"
	"github.com/contentsmith/pipewright/internal/pipeline"
)

// RunFunc executes one full pipeline run. The server calls it once per
// accepted job; each call must be backed by a fresh engine.
type RunFunc func(ctx context.Context) (*engine.Report, error)

// Config assembles a Server.
type Config struct {
	Run       RunFunc
	Jobs      *jobs.Manager
	OutputDir string
	Logger    *slog.Logger
	// Registry receives the HTTP process metrics; the pipeline's own stage
	// metrics are registered against it by the caller. Nil disables /metrics.
	Registry *prometheus.Registry
}

// Server handles the HTTP API.
type Server struct {
	cfg Config
}

// outputFiles maps API output names to files in the output directory.
var outputFiles = map[string]string{
	"faq":        pipeline.OutputFAQ,
	"product":    pipeline.OutputProductPage,
	"comparison": pipeline.OutputComparisonPage,
}

// New returns a server ready to build its router.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{cfg: cfg}
}

// Router builds the gin router with all API routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/pipeline", s.handleRunPipeline)
	api.GET("/jobs", s.handleListJobs)
	api.GET("/jobs/:id", s.handleGetJob)
	api.GET("/outputs/:name", s.handleOutput)

	if s.cfg.Registry != nil {
		s.cfg.Registry.MustRegister(collectors.NewGoCollector())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{})))
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleRunPipeline accepts a run and returns immediately with a job id the
// caller polls for the result.
func (s *Server) handleRunPipeline(c *gin.Context) {
	id := s.cfg.Jobs.Create()
	s.cfg.Logger.Info("pipeline run accepted", "job_id", id)

	go func() {
		s.cfg.Jobs.Update(id, jobs.StatusProcessing, nil, "")
		report, err := s.cfg.Run(context.Background())
		if err != nil {
			s.cfg.Logger.Error("pipeline run failed", "job_id", id, "error", err)
			s.cfg.Jobs.Update(id, jobs.StatusFailed, report, err.Error())
			return
		}
		s.cfg.Jobs.Update(id, jobs.StatusCompleted, report, "")
	}()

	c.JSON(http.StatusAccepted, gin.H{"job_id": id, "status": jobs.StatusPending})
}

func (s *Server) handleGetJob(c *gin.Context) {
	job, ok := s.cfg.Jobs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

func (s *Server) handleListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": s.cfg.Jobs.List()})
}

func (s *Server) handleOutput(c *gin.Context) {
	name := c.Param("name")
	file, ok := outputFiles[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown output: " + name})
		return
	}

	path := filepath.Join(s.cfg.OutputDir, file)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "output not generated yet, run the pipeline first"})
		return
	}
	c.File(path)
}
