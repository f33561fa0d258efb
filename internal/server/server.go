// ABOUTME: HTTP server publishing the generated feed directory
// ABOUTME: Serves feed artifacts and the OPML index with feed content types, plus health and listing endpoints

package server

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/harper/pubfeed/internal/config"
	"github.com/harper/pubfeed/internal/feedwriter"
)

// Handler serves artifacts written by generate.
type Handler struct {
	cfg     *config.Config
	version string
	logger  *log.Logger
}

// NewHandler returns a Handler for cfg's output directory.
func NewHandler(cfg *config.Config, version string, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Handler{cfg: cfg, version: version, logger: logger}
}

// NewServer creates a gin engine with all routes configured.
func NewServer(handler *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(requestLogger(handler.logger))
	r.Use(gin.Recovery())

	r.GET("/feeds/:file", handler.GetFeed)
	r.HEAD("/feeds/:file", handler.GetFeed)
	r.GET("/health", handler.HealthCheck)
	r.GET("/", handler.Index)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	return r
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP())
	}
}

// GetFeed serves one artifact from the output directory.
func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("file")
	if !h.servable(name) {
		c.Status(http.StatusNotFound)
		return
	}

	path := filepath.Join(h.cfg.Output.Dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.logger.Error("failed to stat feed", "file", name, "err", err)
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNotFound)
		return
	}

	c.Header("Content-Type", h.contentType(name))
	c.Header("X-Feed-Name", name)
	c.Header("X-Last-Updated", info.ModTime().UTC().Format(time.RFC3339))
	c.File(path)
}

// HealthCheck reports how many configured artifacts exist.
func (h *Handler) HealthCheck(c *gin.Context) {
	present, missing := 0, []string{}
	for _, name := range h.artifacts() {
		if _, err := os.Stat(filepath.Join(h.cfg.Output.Dir, name)); err == nil {
			present++
		} else {
			missing = append(missing, name)
		}
	}

	status := http.StatusOK
	state := "ok"
	if present == 0 {
		status = http.StatusServiceUnavailable
		state = "no feeds"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"feeds":     present,
		"missing":   missing,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Index lists every configured feed and its URL.
func (h *Handler) Index(c *gin.Context) {
	type feedInfo struct {
		Collection string `json:"collection"`
		Mode       string `json:"mode"`
		Title      string `json:"title"`
		URL        string `json:"url"`
	}

	feeds := []feedInfo{}
	for _, mode := range h.cfg.DisplayModes() {
		for _, col := range h.cfg.Collections {
			file := col.FileName(mode)
			feeds = append(feeds, feedInfo{
				Collection: col.Name,
				Mode:       string(mode),
				Title:      col.Title,
				URL:        "/feeds/" + file,
			})
		}
	}

	endpoints := map[string]string{
		"feed":   "/feeds/<file>",
		"health": "/health",
	}
	if file := h.cfg.OPMLFile(); file != "" {
		endpoints["index"] = "/feeds/" + file
	}

	c.JSON(http.StatusOK, gin.H{
		"service":   "pubfeed",
		"version":   h.version,
		"library":   h.cfg.API.Library,
		"feeds":     feeds,
		"endpoints": endpoints,
	})
}

// servable restricts requests to configured artifact names.
func (h *Handler) servable(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	for _, a := range h.artifacts() {
		if a == name {
			return true
		}
	}
	return false
}

func (h *Handler) artifacts() []string {
	var names []string
	for _, mode := range h.cfg.DisplayModes() {
		for _, col := range h.cfg.Collections {
			names = append(names, col.FileName(mode))
		}
	}
	if file := h.cfg.OPMLFile(); file != "" {
		names = append(names, file)
	}
	return names
}

func (h *Handler) contentType(name string) string {
	if name == h.cfg.OPMLFile() {
		return "text/x-opml; charset=utf-8"
	}
	if w, err := feedwriter.New(h.cfg.FeedFormat(), h.logger); err == nil {
		return w.ContentType()
	}
	return "application/xml; charset=utf-8"
}
