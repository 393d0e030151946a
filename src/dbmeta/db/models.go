package db

import "time"

// Audit holds the bookkeeping columns every catalog table carries
type Audit struct {
	Creator  string    `json:"creator"`
	CreateAt time.Time `json:"create_at"`
	Updater  string    `json:"updater"`
	UpdateAt time.Time `json:"update_at"`
}

// ExtraProcessInstance is a process deployed alongside a cluster that is
// not one of its storage instances, such as a binlog dumper.
type ExtraProcessInstance struct {
	ID          int64                  `json:"id"`
	BkBizID     int64                  `json:"bk_biz_id"`
	ClusterID   int64                  `json:"cluster_id"`
	BkCloudID   int64                  `json:"bk_cloud_id"`
	IP          string                 `json:"ip"`
	ListenPort  int                    `json:"listen_port"`
	ProcType    string                 `json:"proc_type"`
	Version     string                 `json:"version"`
	ExtraConfig map[string]interface{} `json:"extra_config,omitempty"`
	// BkInstanceID is the CMDB service instance id; 0 means not yet bound
	BkInstanceID int64 `json:"bk_instance_id"`
	Audit
}

// Bound reports whether the process is linked to a CMDB service instance
func (p *ExtraProcessInstance) Bound() bool {
	return p.BkInstanceID != 0
}

// SQLServerDtsInfo records one SQL Server data transfer task. A ticket
// moves data between a given source and target cluster at most once.
type SQLServerDtsInfo struct {
	ID              int64    `json:"id"`
	BkBizID         int64    `json:"bk_biz_id"`
	TicketID        int64    `json:"ticket_id"`
	RootID          string   `json:"root_id"`
	SourceClusterID int64    `json:"source_cluster_id"`
	TargetClusterID int64    `json:"target_cluster_id"`
	DtsMode         string   `json:"dts_mode"`
	MigrateDBList   []string `json:"migrate_db_list,omitempty"`
	Status          string   `json:"status"`
	Audit
}

// DTS task statuses
const (
	DtsStatusPending    = "pending"
	DtsStatusRunning    = "running"
	DtsStatusSucceeded  = "succeeded"
	DtsStatusFailed     = "failed"
	DtsStatusTerminated = "terminated"
)

// ValidDtsStatus reports whether s is a known DTS status
func ValidDtsStatus(s string) bool {
	switch s {
	case DtsStatusPending, DtsStatusRunning, DtsStatusSucceeded, DtsStatusFailed, DtsStatusTerminated:
		return true
	}
	return false
}
