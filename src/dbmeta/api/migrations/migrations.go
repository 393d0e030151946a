// Package migrations exposes the migration runner over HTTP, read-only.
package migrations

import (
	"net/http"

	"github.com/bkdbm/dbmeta/src/dbmeta/api/common"
	"github.com/bkdbm/dbmeta/src/dbmeta/db/migrations"
	"github.com/gin-gonic/gin"
)

const (
	DirectionForward  = "forward"
	DirectionBackward = "backward"
)

// NewHandler creates a new migrations handler
func NewHandler(cfg Config) *Handler {
	return &Handler{runner: cfg.Runner}
}

// HandleStatus lists migrations in apply order with their applied state
func (h *Handler) HandleStatus(c *gin.Context) {
	statuses, err := h.runner.Status(c.Request.Context())
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	pending := 0
	for _, st := range statuses {
		if !st.Applied {
			pending++
		}
	}

	c.JSON(http.StatusOK, StatusResponse{
		Count:      len(statuses),
		Pending:    pending,
		Migrations: statuses,
	})
}

// HandleSQL renders the statements of one migration for the server's
// database engine
func (h *Handler) HandleSQL(c *gin.Context) {
	key := migrations.Key{App: c.Param("app"), Name: c.Param("name")}

	direction := c.DefaultQuery("direction", DirectionForward)
	if direction != DirectionForward && direction != DirectionBackward {
		common.AbortWithValidation(c, "direction", "must be forward or backward")
		return
	}

	stmts, err := h.runner.SQL(key, direction == DirectionBackward)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	if stmts == nil {
		stmts = []string{}
	}

	c.JSON(http.StatusOK, SQLResponse{
		App:        key.App,
		Name:       key.Name,
		Direction:  direction,
		Dialect:    h.runner.Dialect().Name(),
		Statements: stmts,
	})
}
