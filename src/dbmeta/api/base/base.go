package base

import (
	"context"
	"net/http"
	"time"

	"github.com/bkdbm/dbmeta/src/common/logs"
	"github.com/bkdbm/dbmeta/src/common/version"
	"github.com/gin-gonic/gin"
)

var (
	VersionInfo = version.New()

	log = logs.Discard()
)

// SetLogger sets the logger for the base package
func SetLogger(l *logs.Logger) {
	if l != nil {
		log = l
	}
}

// SetVersionInfo sets the version info for the base package
func SetVersionInfo(v *version.Info) {
	if v != nil {
		VersionInfo = v
	}
}

// NewHandler creates a new base handler. db may be nil, in which case the
// health check does not probe the database.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// HandleRoot returns API discovery information
func (h *Handler) HandleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, APIInfo{
		Name:        "dbmeta",
		Description: "DB metadata catalog API",
		Version:     VersionInfo.Version,
		APIVersions: []string{"v1"},
		Endpoints: APIInfoEndpoints{
			Health:                "/v1/health",
			Version:               "/v1/version",
			Migrations:            "/v1/migrations",
			ExtraProcessInstances: "/v1/extra-process-instances",
			SQLServerDtsInfos:     "/v1/sqlserver-dts-infos",
		},
	})
}

// HandleHealth reports whether the server and its database are usable
func (h *Handler) HandleHealth(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Database:  "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			log.Warn("Health check failed", "error", err)
			response.Status = "unhealthy"
			response.Database = "unreachable"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
	}

	c.JSON(http.StatusOK, response)
}

// HandleVersion returns version and build information for the server
func (h *Handler) HandleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, VersionResponse{
		Version:   VersionInfo.Version,
		BuildDate: VersionInfo.BuildDate,
		GitCommit: VersionInfo.GitCommit,
		GoVersion: version.GoVersion(),
	})
}
