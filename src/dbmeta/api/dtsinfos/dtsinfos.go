// Package dtsinfos serves SQL Server data transfer records.
package dtsinfos

import (
	"fmt"
	"net/http"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/bkdbm/dbmeta/src/dbmeta/api/common"
	"github.com/bkdbm/dbmeta/src/dbmeta/db"
	"github.com/gin-gonic/gin"
)

// NewHandler creates a new DTS info handler
func NewHandler(cfg Config) *Handler {
	return &Handler{repo: cfg.Repo}
}

// HandleList returns the DTS records of ticket_id. With source_cluster_id
// and target_cluster_id it returns the single matching record.
func (h *Handler) HandleList(c *gin.Context) {
	ticketID, ok := common.QueryInt(c, "ticket_id")
	if !ok {
		return
	}
	if ticketID <= 0 {
		common.AbortWithValidation(c, "ticket_id", "ticket_id is required")
		return
	}
	source, ok := common.QueryInt(c, "source_cluster_id")
	if !ok {
		return
	}
	target, ok := common.QueryInt(c, "target_cluster_id")
	if !ok {
		return
	}

	if source > 0 && target > 0 {
		d, err := h.repo.GetByTask(ticketID, source, target)
		if err != nil {
			common.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, ListResponse{Count: 1, DtsInfos: []db.SQLServerDtsInfo{*d}})
		return
	}

	infos, err := h.repo.ListByTicket(ticketID)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ListResponse{Count: len(infos), DtsInfos: infos})
}

// HandleGet returns a single DTS record by ID
func (h *Handler) HandleGet(c *gin.Context) {
	id, ok := common.ParamID(c, "id")
	if !ok {
		return
	}

	d, err := h.repo.GetByID(id)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// HandleCreate records a new transfer. A second record for the same
// ticket and cluster pair is rejected with 409.
func (h *Handler) HandleCreate(c *gin.Context) {
	var req DtsInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, errors.ErrInvalidJSON.WithCause(err))
		return
	}

	operator := common.Operator(c)
	d := &db.SQLServerDtsInfo{Audit: db.Audit{Creator: operator, Updater: operator}}
	req.apply(d)

	event := common.AuditEvent{
		Action:   "dts_info.create",
		Operator: operator,
		Detail:   fmt.Sprintf("ticket=%d source=%d target=%d", d.TicketID, d.SourceClusterID, d.TargetClusterID),
	}
	if err := h.repo.Create(d); err != nil {
		common.AuditLog(c, event)
		common.AbortWithError(c, err)
		return
	}

	event.Resource = fmt.Sprintf("sqlserver_dts_info:%d", d.ID)
	event.Success = true
	common.AuditLog(c, event)

	c.JSON(http.StatusCreated, d)
}

// HandleUpdate rewrites a DTS record
func (h *Handler) HandleUpdate(c *gin.Context) {
	id, ok := common.ParamID(c, "id")
	if !ok {
		return
	}

	var req DtsInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, errors.ErrInvalidJSON.WithCause(err))
		return
	}

	d, err := h.repo.GetByID(id)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	req.apply(d)
	d.Updater = common.Operator(c)

	event := common.AuditEvent{
		Action:   "dts_info.update",
		Resource: fmt.Sprintf("sqlserver_dts_info:%d", id),
		Operator: d.Updater,
	}
	if err := h.repo.Update(d); err != nil {
		common.AuditLog(c, event)
		common.AbortWithError(c, err)
		return
	}

	event.Success = true
	common.AuditLog(c, event)
	c.JSON(http.StatusOK, d)
}

// HandleUpdateStatus changes only the status of a DTS record
func (h *Handler) HandleUpdateStatus(c *gin.Context) {
	id, ok := common.ParamID(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AbortWithError(c, errors.ErrInvalidJSON.WithCause(err))
		return
	}

	operator := common.Operator(c)
	event := common.AuditEvent{
		Action:   "dts_info.status",
		Resource: fmt.Sprintf("sqlserver_dts_info:%d", id),
		Operator: operator,
		Detail:   req.Status,
	}
	if err := h.repo.UpdateStatus(id, req.Status, operator); err != nil {
		common.AuditLog(c, event)
		common.AbortWithError(c, err)
		return
	}

	event.Success = true
	common.AuditLog(c, event)

	d, err := h.repo.GetByID(id)
	if err != nil {
		common.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
