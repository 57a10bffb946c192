// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package relay is the HTTP server that sits between the sheetlink client and
// Databricks. It forwards SQL statements and Genie calls with the caller's bearer token
// attached and reshapes columnar statement results into row objects.
//
// Routes:
//
//	POST /query-databricks
//	POST /genie/start-conversation
//	POST /genie/create-message
//	POST /genie/get-message
//	POST /genie/get-query-result
//	GET  /health
//	GET  /metrics
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"sheetlink/cli/internal/databricks"
)

// Warehouse executes SQL statements. databricks.Client and sqlexec.Executor both
// satisfy it.
type Warehouse interface {
	ExecuteStatement(ctx context.Context, conn databricks.Conn, warehouseID, sql string) (databricks.StatementResponse, error)
}

// Genie is the conversation API the relay forwards to.
type Genie interface {
	StartConversation(ctx context.Context, conn databricks.Conn, spaceID, content string) (conversationID, messageID string, err error)
	CreateMessage(ctx context.Context, conn databricks.Conn, spaceID, conversationID, content string) (string, error)
	GetMessage(ctx context.Context, conn databricks.Conn, spaceID, conversationID, messageID string) (json.RawMessage, error)
	GetQueryResult(ctx context.Context, conn databricks.Conn, spaceID, conversationID, messageID, attachmentID string) (databricks.QueryResult, error)
}

// Options configures the relay.
type Options struct {
	Addr           string
	CORSOrigin     string
	RatePerMinute  int
	Burst          int
	GRPCHealthAddr string
	Logger         *pterm.Logger
}

const (
	DefaultAddr          = ":3001"
	DefaultRatePerMinute = 120
	shutdownTimeout      = 10 * time.Second
)

// Server holds the router and its upstreams.
type Server struct {
	warehouse Warehouse
	genie     Genie
	opts      Options
	log       *pterm.Logger
	engine    *gin.Engine
	health    *health.Server
}

// New builds a Server. Zero options fall back to defaults.
func New(warehouse Warehouse, genie Genie, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = DefaultRatePerMinute
	}
	if opts.Burst <= 0 {
		opts.Burst = opts.RatePerMinute / 4
		if opts.Burst < 1 {
			opts.Burst = 1
		}
	}
	log := opts.Logger
	if log == nil {
		log = pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled)
	}

	s := &Server{
		warehouse: warehouse,
		genie:     genie,
		opts:      opts,
		log:       log,
		health:    health.NewServer(),
	}
	s.engine = s.routes()
	return s
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog(s.log))
	r.Use(Metrics())
	r.Use(CORSMiddleware(s.opts.CORSOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	api.Use(RateLimitMiddleware(s.opts.RatePerMinute, s.opts.Burst))
	api.POST("/query-databricks", s.queryDatabricks)

	g := api.Group("/genie")
	g.POST("/start-conversation", s.startConversation)
	g.POST("/create-message", s.createMessage)
	g.POST("/get-message", s.getMessage)
	g.POST("/get-query-result", s.getQueryResult)
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully. When a gRPC health
// address is configured the health service runs alongside the HTTP listener.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var gs *grpc.Server
	if s.opts.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", s.opts.GRPCHealthAddr)
		if err != nil {
			return err
		}
		gs = NewHealthServer(s.health)
		go func() {
			if err := gs.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				s.log.Error("grpc health server stopped", s.log.Args("error", err.Error()))
			}
		}()
		s.log.Info("grpc health listening", s.log.Args("addr", s.opts.GRPCHealthAddr))
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("relay listening", s.log.Args("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()
	SetServing(s.health, true)

	select {
	case err := <-errCh:
		SetServing(s.health, false)
		if gs != nil {
			gs.Stop()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down relay")
	SetServing(s.health, false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if gs != nil {
		gs.GracefulStop()
	}
	return srv.Shutdown(shutdownCtx)
}
