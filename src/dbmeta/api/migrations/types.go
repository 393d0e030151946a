package migrations

import (
	"github.com/bkdbm/dbmeta/src/dbmeta/db/migrations"
)

// Handler serves migration status and rendered SQL
type Handler struct {
	runner *migrations.Runner
}

// Config contains configuration options for the Handler
type Config struct {
	Runner *migrations.Runner
}

// StatusResponse lists every known migration
type StatusResponse struct {
	Count      int                 `json:"count" example:"2"`
	Pending    int                 `json:"pending" example:"0"`
	Migrations []migrations.Status `json:"migrations"`
}

// SQLResponse holds the statements a migration runs in one direction
type SQLResponse struct {
	App        string   `json:"app" example:"db_meta"`
	Name       string   `json:"name" example:"0037_auto_20240520_1104"`
	Direction  string   `json:"direction" example:"forward"`
	Dialect    string   `json:"dialect" example:"mysql"`
	Statements []string `json:"statements"`
}
