// Package api wires the dbmeta HTTP handlers onto a gin router.
package api

import (
	"github.com/bkdbm/dbmeta/src/common/logs"
	"github.com/bkdbm/dbmeta/src/common/version"
	"github.com/bkdbm/dbmeta/src/dbmeta/api/base"
	"github.com/bkdbm/dbmeta/src/dbmeta/api/common"
	"github.com/bkdbm/dbmeta/src/dbmeta/api/dtsinfos"
	"github.com/bkdbm/dbmeta/src/dbmeta/api/instances"
	apimigrations "github.com/bkdbm/dbmeta/src/dbmeta/api/migrations"
)

// SetLogger sets the logger for the api package and subpackages
func SetLogger(l *logs.Logger) {
	common.SetAuditLogger(l)
	base.SetLogger(l)
}

// SetVersionInfo sets the version info for the api package and subpackages
func SetVersionInfo(v *version.Info) {
	base.SetVersionInfo(v)
}

// New creates a new API instance with all subpackage handlers
func New(cfg Config) *API {
	var pinger base.Pinger
	if cfg.Database != nil {
		pinger = cfg.Database
	}

	return &API{
		Base: base.NewHandler(pinger),

		Migrations: apimigrations.NewHandler(apimigrations.Config{
			Runner: cfg.Runner,
		}),

		Instances: instances.NewHandler(instances.Config{
			Repo: cfg.InstanceRepo,
		}),

		DtsInfos: dtsinfos.NewHandler(dtsinfos.Config{
			Repo: cfg.DtsInfoRepo,
		}),

		rateLimiter: NewRateLimiter(cfg.RateLimit),
	}
}

// Close releases background resources held by the API
func (a *API) Close() {
	a.rateLimiter.Stop()
}
