package dtsinfos

import (
	"github.com/bkdbm/dbmeta/src/dbmeta/db"
)

// Handler handles SQL Server DTS info HTTP requests
type Handler struct {
	repo *db.SQLServerDtsInfoRepository
}

// Config contains configuration options for the Handler
type Config struct {
	Repo *db.SQLServerDtsInfoRepository
}

// ListResponse represents the DTS records of a ticket
type ListResponse struct {
	Count    int                   `json:"count" example:"1"`
	DtsInfos []db.SQLServerDtsInfo `json:"dts_infos"`
}

// DtsInfoRequest is the body of create and update requests
type DtsInfoRequest struct {
	BkBizID         int64    `json:"bk_biz_id" example:"3"`
	TicketID        int64    `json:"ticket_id" binding:"required" example:"100"`
	RootID          string   `json:"root_id" example:"b2a9c1"`
	SourceClusterID int64    `json:"source_cluster_id" binding:"required" example:"1"`
	TargetClusterID int64    `json:"target_cluster_id" binding:"required" example:"2"`
	DtsMode         string   `json:"dts_mode" example:"full"`
	MigrateDBList   []string `json:"migrate_db_list" example:"orders"`
	Status          string   `json:"status" example:"pending"`
}

// StatusRequest changes the status of a DTS record
type StatusRequest struct {
	Status string `json:"status" binding:"required" example:"succeeded"`
}

// apply copies the request onto d. An empty status keeps d's status.
func (r *DtsInfoRequest) apply(d *db.SQLServerDtsInfo) {
	d.BkBizID = r.BkBizID
	d.TicketID = r.TicketID
	d.RootID = r.RootID
	d.SourceClusterID = r.SourceClusterID
	d.TargetClusterID = r.TargetClusterID
	d.DtsMode = r.DtsMode
	d.MigrateDBList = r.MigrateDBList
	if r.Status != "" {
		d.Status = r.Status
	}
}
