package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"linkctl/internal/api"
	"linkctl/internal/api/tools"
	"linkctl/pkg/logging"
)

const shutdownTimeout = 10 * time.Second

// NewRouter mounts every HTTP surface on a gin engine.
func (a *Application) NewRouter(links *api.LinkService) *gin.Engine {
	if !a.config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api.NewHandler(links).Register(r)
	a.services.Proxy.Register(r, a.config.LinkctlConfig.Server.ProxyPrefix)
	r.GET("/api/v1/events", a.services.Hub.ServeWS)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"backend":  a.config.LinkctlConfig.GlobalSettings.Backend,
			"projects": len(a.services.Registry.List()),
		})
	})
	return r
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("HTTP", "%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down. Cancelling also aborts in-flight reconciliations.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lc := a.config.LinkctlConfig
	links := api.NewLinkService(ctx, a.services.Registry, a.services.Resolver, a.services.Reporter)

	addr := net.JoinHostPort(lc.Server.Host, strconv.Itoa(lc.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.NewRouter(links),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logging.Info("Server", "Listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var sseServer *server.SSEServer
	if lc.MCP.Enabled {
		mcpAddr := net.JoinHostPort(lc.MCP.Host, strconv.Itoa(lc.MCP.Port))
		sseServer = server.NewSSEServer(
			tools.NewServer(links, a.config.Version),
			server.WithBaseURL("http://"+mcpAddr),
			server.WithKeepAlive(true),
			server.WithKeepAliveInterval(30*time.Second),
		)
		go func() {
			logging.Info("MCP", "Serving link tools on %s", mcpAddr)
			if err := sseServer.Start(mcpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("mcp server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info("Server", "Shutting down")
	case runErr = <-errCh:
		logging.Error("Server", runErr, "Server failed, shutting down")
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server", err, "Error shutting down HTTP server")
	}
	if sseServer != nil {
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("MCP", err, "Error shutting down MCP server")
		}
	}
	links.Wait()
	a.services.Bus.Close()
	return runErr
}
