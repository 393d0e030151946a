package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/bkdbm/dbmeta/src/common/errors"
)

const extraProcessInstanceColumns = `id, bk_biz_id, cluster_id, bk_cloud_id, ip, listen_port, proc_type,
	version, extra_config, bk_instance_id, creator, create_at, updater, update_at`

// ExtraProcessInstanceRepository handles extra process instance database
// operations
type ExtraProcessInstanceRepository struct {
	db *Database
}

// NewExtraProcessInstanceRepository creates a new extra process instance
// repository
func NewExtraProcessInstanceRepository(db *Database) *ExtraProcessInstanceRepository {
	return &ExtraProcessInstanceRepository{db: db}
}

// Create inserts a new extra process instance. A zero BkInstanceID stores
// the unbound value 0.
func (r *ExtraProcessInstanceRepository) Create(p *ExtraProcessInstance) error {
	if p.IP == "" {
		return errors.ErrMissingRequiredField.WithMessage("ip is required")
	}
	if p.ProcType == "" {
		return errors.ErrMissingRequiredField.WithMessage("proc_type is required")
	}
	if p.BkInstanceID < 0 {
		return errors.ErrInvalidFieldValue.WithMessage("bk_instance_id must not be negative")
	}

	extra, err := encodeJSON(p.ExtraConfig)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	p.CreateAt = now
	p.UpdateAt = now
	if p.Updater == "" {
		p.Updater = p.Creator
	}

	query := `
		INSERT INTO db_meta_extraprocessinstance (bk_biz_id, cluster_id, bk_cloud_id, ip, listen_port,
			proc_type, version, extra_config, bk_instance_id, creator, create_at, updater, update_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.insert(query,
		p.BkBizID, p.ClusterID, p.BkCloudID, p.IP, p.ListenPort,
		p.ProcType, p.Version, extra, p.BkInstanceID, p.Creator, p.CreateAt, p.Updater, p.UpdateAt,
	)
	if err != nil {
		return queryError("create extra process instance", err)
	}

	p.ID = id
	return nil
}

// GetByID retrieves an extra process instance by ID
func (r *ExtraProcessInstanceRepository) GetByID(id int64) (*ExtraProcessInstance, error) {
	query := `SELECT ` + extraProcessInstanceColumns + ` FROM db_meta_extraprocessinstance WHERE id = ?`
	p, err := r.scan(r.db.DB().QueryRow(r.db.rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrInstanceNotFound.WithMessagef("extra process instance %d not found", id)
	}
	if err != nil {
		return nil, queryError("get extra process instance", err)
	}
	return p, nil
}

// ListByCluster retrieves the extra processes of a cluster
func (r *ExtraProcessInstanceRepository) ListByCluster(clusterID int64) ([]ExtraProcessInstance, error) {
	query := `SELECT ` + extraProcessInstanceColumns + `
		FROM db_meta_extraprocessinstance
		WHERE cluster_id = ?
		ORDER BY id ASC`
	return r.list(query, clusterID)
}

// ListUnbound retrieves processes not yet linked to a CMDB service
// instance. A zero bkBizID lists every business.
func (r *ExtraProcessInstanceRepository) ListUnbound(bkBizID int64) ([]ExtraProcessInstance, error) {
	query := `SELECT ` + extraProcessInstanceColumns + `
		FROM db_meta_extraprocessinstance
		WHERE bk_instance_id = 0 AND (? = 0 OR bk_biz_id = ?)
		ORDER BY id ASC`
	return r.list(query, bkBizID, bkBizID)
}

// BindInstance links a process to its CMDB service instance
func (r *ExtraProcessInstanceRepository) BindInstance(id, bkInstanceID int64, updater string) error {
	if bkInstanceID <= 0 {
		return errors.ErrInvalidFieldValue.WithMessage("bk_instance_id must be positive")
	}

	query := `UPDATE db_meta_extraprocessinstance SET bk_instance_id = ?, updater = ?, update_at = ? WHERE id = ?`
	result, err := r.db.DB().Exec(r.db.rebind(query), bkInstanceID, updater, time.Now().UTC(), id)
	if err != nil {
		return queryError("bind extra process instance", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return queryError("get rows affected", err)
	}
	if affected == 0 {
		return errors.ErrInstanceNotFound.WithMessagef("extra process instance %d not found", id)
	}

	return nil
}

func (r *ExtraProcessInstanceRepository) list(query string, args ...interface{}) ([]ExtraProcessInstance, error) {
	rows, err := r.db.DB().Query(r.db.rebind(query), args...)
	if err != nil {
		return nil, queryError("list extra process instances", err)
	}
	defer rows.Close()

	out := []ExtraProcessInstance{}
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, queryError("scan extra process instance", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list extra process instances", err)
	}
	return out, nil
}

func (r *ExtraProcessInstanceRepository) scan(row rowScanner) (*ExtraProcessInstance, error) {
	var p ExtraProcessInstance
	var extra sql.NullString

	err := row.Scan(&p.ID, &p.BkBizID, &p.ClusterID, &p.BkCloudID, &p.IP, &p.ListenPort, &p.ProcType,
		&p.Version, &extra, &p.BkInstanceID, &p.Creator, &p.CreateAt, &p.Updater, &p.UpdateAt)
	if err != nil {
		return nil, err
	}

	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &p.ExtraConfig); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// encodeJSON renders v for a JSON column; nil and empty values become NULL
func encodeJSON(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		if len(t) == 0 {
			return nil, nil
		}
	case []string:
		if len(t) == 0 {
			return nil, nil
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.ErrInvalidFieldValue.WithMessage("value is not valid JSON").WithCause(err)
	}
	return string(b), nil
}
