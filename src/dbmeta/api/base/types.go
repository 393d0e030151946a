package base

import (
	"context"
)

// Pinger reports whether the catalog database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles base HTTP requests (root, health, version)
type Handler struct {
	db Pinger
}

// APIInfo represents the root API discovery response
type APIInfo struct {
	Name        string           `json:"name" example:"dbmeta"`
	Description string           `json:"description" example:"DB metadata catalog API"`
	Version     string           `json:"version" example:"v1.4.0"`
	APIVersions []string         `json:"api_versions" example:"v1"`
	Endpoints   APIInfoEndpoints `json:"endpoints"`
}

// APIInfoEndpoints contains the available API endpoints
type APIInfoEndpoints struct {
	Health                string `json:"health" example:"/v1/health"`
	Version               string `json:"version" example:"/v1/version"`
	Migrations            string `json:"migrations" example:"/v1/migrations"`
	ExtraProcessInstances string `json:"extra_process_instances" example:"/v1/extra-process-instances"`
	SQLServerDtsInfos     string `json:"sqlserver_dts_infos" example:"/v1/sqlserver-dts-infos"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status" example:"healthy"`
	Database  string `json:"database" example:"ok"`
	Timestamp string `json:"timestamp" example:"2024-05-20T11:04:00Z"`
}

// VersionResponse represents the version information response
type VersionResponse struct {
	Version   string `json:"version" example:"v1.4.0-4f9f297"`
	BuildDate string `json:"build_date" example:"2024-05-20T11:04:00Z"`
	GitCommit string `json:"git_commit" example:"4f9f297"`
	GoVersion string `json:"go_version" example:"go1.24"`
}
