// Package common holds helpers shared by the dbmeta API handlers.
package common

import (
	"strconv"

	"github.com/bkdbm/dbmeta/src/common/errors"
	"github.com/bkdbm/dbmeta/src/common/logs"
	"github.com/gin-gonic/gin"
)

// OperatorHeader carries the user a write request is made on behalf of
const OperatorHeader = "X-Bk-Username"

// DefaultOperator is recorded when a request names no operator
const DefaultOperator = "system"

var auditLogger = logs.NewDefault()

// SetAuditLogger sets the logger used for audit events.
func SetAuditLogger(l *logs.Logger) {
	if l != nil {
		auditLogger = l
	}
}

// AuditEvent describes a change made to the catalog through the API.
type AuditEvent struct {
	// Action identifies the operation (e.g., "dts_info.create").
	Action string
	// Resource identifies the target (e.g., "extra_process_instance:12").
	Resource string
	// Operator is the user the request was made for.
	Operator string
	Detail   string
	Success  bool
}

// AuditLog emits a structured audit log entry from a gin request context.
// Entries carry audit=true for filtering.
func AuditLog(c *gin.Context, event AuditEvent) {
	status := "success"
	if !event.Success {
		status = "failure"
	}

	args := []any{
		"audit", true,
		"action", event.Action,
		"status", status,
	}
	if c != nil {
		args = append(args, "client_ip", c.ClientIP())
	}
	if event.Operator != "" {
		args = append(args, "operator", event.Operator)
	}
	if event.Resource != "" {
		args = append(args, "resource", event.Resource)
	}
	if event.Detail != "" {
		args = append(args, "detail", event.Detail)
	}

	auditLogger.Info("audit", args...)
}

// Operator returns the user named by the request, or DefaultOperator
func Operator(c *gin.Context) string {
	if op := c.GetHeader(OperatorHeader); op != "" {
		return op
	}
	return DefaultOperator
}

// AbortWithError writes err with its mapped HTTP status
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(errors.GetHTTPStatus(err), errors.NewResponse(err))
}

// AbortWithValidation writes a validation failure for one field
func AbortWithValidation(c *gin.Context, field, message string) {
	c.AbortWithStatusJSON(errors.ErrValidationFailed.HTTPStatus, errors.NewValidationResponse(field, message))
}

// ParamID parses a positive integer path parameter. On failure it writes a
// validation response and returns false.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		AbortWithValidation(c, name, "must be a positive integer")
		return 0, false
	}
	return id, true
}

// QueryInt parses an optional integer query parameter; absent means 0.
func QueryInt(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		AbortWithValidation(c, name, "must be an integer")
		return 0, false
	}
	return v, true
}
