package api

import (
	"github.com/bkdbm/dbmeta/src/dbmeta/api/base"
	"github.com/bkdbm/dbmeta/src/dbmeta/api/dtsinfos"
	"github.com/bkdbm/dbmeta/src/dbmeta/api/instances"
	apimigrations "github.com/bkdbm/dbmeta/src/dbmeta/api/migrations"
	"github.com/bkdbm/dbmeta/src/dbmeta/db"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/migrations"
)

// API holds all handler instances and dependencies
type API struct {
	Base       *base.Handler
	Migrations *apimigrations.Handler
	Instances  *instances.Handler
	DtsInfos   *dtsinfos.Handler

	rateLimiter *RateLimiter
}

// Config contains API configuration options
type Config struct {
	Database     *db.Database
	Runner       *migrations.Runner
	InstanceRepo *db.ExtraProcessInstanceRepository
	DtsInfoRepo  *db.SQLServerDtsInfoRepository
	RateLimit    RateLimitConfig
}
