// Package preview serves the archived briefing over HTTP for local viewing.
package preview

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"trade-briefing/internal/archive"
	"trade-briefing/internal/logger"
	"trade-briefing/internal/parse"
	"trade-briefing/internal/trace"
	"trade-briefing/internal/types"
)

type BriefingStore interface {
	LatestNarrative() (string, error)
	LatestDashboard() ([]byte, error)
	LatestRunAt() (time.Time, error)
}

type Handler struct {
	store  BriefingStore
	parser *parse.Parser
}

func NewHandler(store BriefingStore, parser *parse.Parser) *Handler {
	return &Handler{store: store, parser: parser}
}

type BriefingResponse struct {
	Briefing  types.BriefingData `json:"briefing"`
	Narrative string             `json:"narrative"`
}

// Dashboard serves the latest rendered page as-is.
func (h *Handler) Dashboard(c *gin.Context) {
	html, err := h.store.LatestDashboard()
	if errors.Is(err, archive.ErrNoBriefing) {
		c.String(http.StatusNotFound, "No briefing yet. Run the pipeline first.")
		return
	}
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Failed to read dashboard", err)
		c.String(http.StatusInternalServerError, "failed to read dashboard")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// Briefing re-parses the latest narrative into structured setups, stamped
// with the time of the run that produced it.
func (h *Handler) Briefing(c *gin.Context) {
	narrative, err := h.store.LatestNarrative()
	if errors.Is(err, archive.ErrNoBriefing) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no briefing yet"})
		return
	}
	if err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Failed to read narrative", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read briefing"})
		return
	}
	data := h.parser.Parse(narrative)
	if at, err := h.store.LatestRunAt(); err == nil {
		data.GeneratedAt = at
	} else {
		logger.Warn(c.Request.Context(), "Run time unavailable, using request time", "error", err)
	}
	c.JSON(http.StatusOK, BriefingResponse{
		Briefing:  data,
		Narrative: narrative,
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NewRouter wires the preview routes. allowedOrigins enables CORS on the
// JSON endpoint for browser clients hosted elsewhere.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if trace.Enabled() {
		r.Use(otelgin.Middleware(trace.ServiceName))
	}
	r.Use(requestLog())
	if len(allowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: allowedOrigins,
			AllowMethods: []string{"GET", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type"},
		}))
	}

	r.GET("/", h.Dashboard)
	r.GET("/api/briefing", h.Briefing)
	r.GET("/healthz", h.Health)
	return r
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), "Preview request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// Serve runs the router until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Preview server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info(ctx, "Preview server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
