package instances

import (
	"github.com/bkdbm/dbmeta/src/dbmeta/db"
)

// Handler handles extra process instance HTTP requests
type Handler struct {
	repo *db.ExtraProcessInstanceRepository
}

// Config contains configuration options for the Handler
type Config struct {
	Repo *db.ExtraProcessInstanceRepository
}

// ListResponse represents a list of extra process instances
type ListResponse struct {
	Count     int                       `json:"count" example:"2"`
	Instances []db.ExtraProcessInstance `json:"instances"`
}

// BindRequest links an instance to its CMDB service instance
type BindRequest struct {
	BkInstanceID int64 `json:"bk_instance_id" binding:"required,gt=0" example:"9001"`
}
