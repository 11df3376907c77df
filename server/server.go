package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/chaos-io/cleanlens/clean"
	"github.com/chaos-io/cleanlens/config"
)

//go:embed page.html
var pageHTML []byte

// Server 单用户的本地网页预览，只持有一个编排器
type Server struct {
	orch   *clean.Orchestrator
	cfg    config.ServerConfig
	logger zerolog.Logger
	engine *gin.Engine
	cron   *cron.Cron
	images *imageCache

	// 后台处理使用的 context，Close 时取消
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func New(orch *clean.Orchestrator, cfg config.ServerConfig, logger zerolog.Logger) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		orch:   orch,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(),
		images: newImageCache(),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.IdleTTL > 0 && cfg.IdleCheck != "" {
		if _, err := s.cron.AddFunc(cfg.IdleCheck, s.resetIdle); err != nil {
			cancel()
			return nil, fmt.Errorf("add idle reset job: %w", err)
		}
	}

	s.engine = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/", s.page)
	r.GET("/healthz", s.healthz)

	api := r.Group("/api")
	api.GET("/state", s.getState)
	api.DELETE("/state", s.reset)
	api.PUT("/mode", s.putMode)
	api.POST("/upload", s.upload)
	api.POST("/process", s.process)
	api.GET("/images/original", s.originalImage)
	api.GET("/images/processed", s.processedImage)
	api.GET("/download", s.download)
	api.GET("/compare.png", s.comparePNG)
	return r
}

// Run 启动 HTTP 服务和空闲重置任务，ctx 结束时优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.cron.Start()
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("web preview listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info().Msg("web preview stopped")
	return nil
}

// Close 停止定时任务，取消并等待后台处理
func (s *Server) Close() {
	s.once.Do(func() {
		<-s.cron.Stop().Done()
		s.cancel()
		s.wg.Wait()
	})
}

func (s *Server) resetIdle() {
	if s.orch.ResetIdle(s.cfg.IdleTTL) {
		s.images.clear()
		s.logger.Info().Dur("ttl", s.cfg.IdleTTL).Msg("idle session reset")
	}
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
