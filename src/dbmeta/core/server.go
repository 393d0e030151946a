package core

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bkdbm/dbmeta/src/dbmeta/api"
	"github.com/bkdbm/dbmeta/src/dbmeta/db"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/migrations"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Server serves the catalog API
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	database   *db.Database
	api        *api.API
}

// NewServer creates a server backed by database
func NewServer(database *db.Database, runner *migrations.Runner) *Server {
	if viper.GetString("log.level") == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger())

	api.SetLogger(log)
	api.SetVersionInfo(VersionInfo)
	apiInstance := api.New(api.Config{
		Database:     database,
		Runner:       runner,
		InstanceRepo: db.NewExtraProcessInstanceRepository(database),
		DtsInfoRepo:  db.NewSQLServerDtsInfoRepository(database),
		RateLimit: api.RateLimitConfig{
			Enabled:             viper.GetBool("server.rate_limit.enabled"),
			ReadRequestsPerMin:  viper.GetInt("server.rate_limit.read_per_min"),
			WriteRequestsPerMin: viper.GetInt("server.rate_limit.write_per_min"),
		},
	})
	apiInstance.RegisterRoutes(router)

	return &Server{
		router:   router,
		database: database,
		api:      apiInstance,
	}
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", viper.GetString("server.bind"), viper.GetInt("server.port"))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting dbmeta server", "address", addr, "dialect", s.database.Dialect().Name())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("Received signal, shutting down", "signal", sig)
	}

	return s.Shutdown()
}

// Shutdown stops the HTTP server and closes the database
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.api.Close()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error("HTTP server shutdown error", "error", err)
		}
	}

	if err := s.database.Close(); err != nil {
		log.Error("Database close error", "error", err)
		return err
	}

	log.Info("Server stopped gracefully")
	return nil
}

func ginLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if query := c.Request.URL.RawQuery; query != "" {
			path = path + "?" + query
		}

		c.Next()

		log.Debug("HTTP request",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", path,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// prepareServe applies pending migrations when migrate is set and fails if
// any remain pending
func prepareServe(ctx context.Context, database *db.Database, migrate bool) (*migrations.Runner, error) {
	runner, err := database.Migrations()
	if err != nil {
		return nil, err
	}

	if migrate {
		if _, err := runner.Run(ctx); err != nil {
			return nil, err
		}
	}

	pending, err := runner.PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, fmt.Errorf("%d migration(s) pending; run 'dbmeta migrate' or pass --migrate", pending)
	}
	return runner, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog API",
		Long: `Serve the catalog HTTP API.

With --migrate, pending migrations are applied before the server starts.
Otherwise the server refuses to start while migrations are pending.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			database, err := openDatabase(ctx)
			if err != nil {
				return err
			}

			runner, err := prepareServe(ctx, database, viper.GetBool("server.migrate"))
			if err != nil {
				database.Close()
				return err
			}

			return NewServer(database, runner).Run()
		},
	}

	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().StringP("bind", "b", "0.0.0.0", "Address to bind to")
	cmd.Flags().Bool("migrate", false, "Apply pending migrations before serving")

	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.bind", cmd.Flags().Lookup("bind"))
	_ = viper.BindPFlag("server.migrate", cmd.Flags().Lookup("migrate"))

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.bind", "0.0.0.0")
	viper.SetDefault("server.rate_limit.enabled", true)
	viper.SetDefault("server.rate_limit.read_per_min", api.DefaultRateLimitConfig().ReadRequestsPerMin)
	viper.SetDefault("server.rate_limit.write_per_min", api.DefaultRateLimitConfig().WriteRequestsPerMin)

	return cmd
}
