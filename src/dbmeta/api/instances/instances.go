// Package instances serves extra process instances and their CMDB binding.
package instances

import (
	"fmt"
	"net/http"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/bkdbm/dbmeta/src/dbmeta/api/common"
	"github.com/bkdbm/dbmeta/src/dbmeta/db"
	"github.com/gin-gonic/gin"
)

// NewHandler creates a new instances handler
func NewHandler(cfg Config) *Handler {
	return &Handler{repo: cfg.Repo}
}

// HandleList lists instances of a cluster (cluster_id), or unbound
// instances (unbound=true, optionally narrowed by bk_biz_id)
func (h *Handler) HandleList(c *gin.Context) {
	clusterID, ok := common.QueryInt(c, "cluster_id")
	if !ok {
		return
	}
	bkBizID, ok := common.QueryInt(c, "bk_biz_id")
	if !ok {
		return
	}

	var (
		instances []db.ExtraProcessInstance
		err       error
	)
	switch {
	case c.Query("unbound") == "true":
		instances, err = h.repo.ListUnbound(bkBizID)
	case clusterID > 0:
		instances, err = h.repo.ListByCluster(clusterID)
	default:
		common.AbortWithValidation(c, "cluster_id", "cluster_id or unbound=true is required")
		return
	}
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Count: len(instances), Instances: instances})
}

// HandleGet returns a single instance by ID
func (h *Handler) HandleGet(c *gin.Context) {
	id, ok := common.ParamID(c, "id")
	if !ok {
		return
	}

	instance, err := h.repo.GetByID(id)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, instance)
}

// HandleBind sets the CMDB service instance id of an instance
func (h *Handler) HandleBind(c *gin.Context) {
	id, ok := common.ParamID(c, "id")
	if !ok {
		return
	}

	var req BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, errors.ErrInvalidJSON.WithMessage("bk_instance_id must be a positive integer").WithCause(err))
		return
	}

	operator := common.Operator(c)
	event := common.AuditEvent{
		Action:   "extra_process_instance.bind",
		Resource: fmt.Sprintf("extra_process_instance:%d", id),
		Operator: operator,
		Detail:   fmt.Sprintf("bk_instance_id=%d", req.BkInstanceID),
	}

	if err := h.repo.BindInstance(id, req.BkInstanceID, operator); err != nil {
		common.AuditLog(c, event)
		common.AbortWithError(c, err)
		return
	}

	event.Success = true
	common.AuditLog(c, event)

	instance, err := h.repo.GetByID(id)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, instance)
}
