package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/bkdbm/dbmeta/src/common/errors"
)

const sqlServerDtsInfoColumns = `id, bk_biz_id, ticket_id, root_id, source_cluster_id, target_cluster_id,
	dts_mode, migrate_db_list, status, creator, create_at, updater, update_at`

// SQLServerDtsInfoRepository handles SQL Server DTS info database operations
type SQLServerDtsInfoRepository struct {
	db *Database
}

// NewSQLServerDtsInfoRepository creates a new DTS info repository
func NewSQLServerDtsInfoRepository(db *Database) *SQLServerDtsInfoRepository {
	return &SQLServerDtsInfoRepository{db: db}
}

func validateDtsInfo(d *SQLServerDtsInfo) error {
	if d.TicketID <= 0 {
		return errors.ErrMissingRequiredField.WithMessage("ticket_id is required")
	}
	if d.SourceClusterID <= 0 || d.TargetClusterID <= 0 {
		return errors.ErrMissingRequiredField.WithMessage("source_cluster_id and target_cluster_id are required")
	}
	if d.Status != "" && !ValidDtsStatus(d.Status) {
		return errors.ErrInvalidFieldValue.WithMessagef("unknown status %q", d.Status)
	}
	return nil
}

// duplicateTask builds the conflict error for a ticket/cluster pair
func duplicateTask(d *SQLServerDtsInfo, err error) error {
	return errors.ErrDtsInfoExists.WithMessagef(
		"ticket %d already has a DTS task from cluster %d to cluster %d",
		d.TicketID, d.SourceClusterID, d.TargetClusterID).WithCause(err)
}

// Create inserts a new DTS record. Inserting a second record for the same
// ticket, source cluster and target cluster fails with ErrDtsInfoExists.
func (r *SQLServerDtsInfoRepository) Create(d *SQLServerDtsInfo) error {
	if err := validateDtsInfo(d); err != nil {
		return err
	}
	if d.Status == "" {
		d.Status = DtsStatusPending
	}

	dbList, err := encodeJSON(d.MigrateDBList)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	d.CreateAt = now
	d.UpdateAt = now
	if d.Updater == "" {
		d.Updater = d.Creator
	}

	query := `
		INSERT INTO db_meta_sqlserverdtsinfo (bk_biz_id, ticket_id, root_id, source_cluster_id,
			target_cluster_id, dts_mode, migrate_db_list, status, creator, create_at, updater, update_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.insert(query,
		d.BkBizID, d.TicketID, d.RootID, d.SourceClusterID,
		d.TargetClusterID, d.DtsMode, dbList, d.Status, d.Creator, d.CreateAt, d.Updater, d.UpdateAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateTask(d, err)
		}
		return queryError("create DTS info", err)
	}

	d.ID = id
	return nil
}

// Update rewrites an existing DTS record. An empty status leaves the stored
// status alone. Moving it onto a ticket and cluster pair another record
// already holds fails with ErrDtsInfoExists.
func (r *SQLServerDtsInfoRepository) Update(d *SQLServerDtsInfo) error {
	if err := validateDtsInfo(d); err != nil {
		return err
	}

	dbList, err := encodeJSON(d.MigrateDBList)
	if err != nil {
		return err
	}

	d.UpdateAt = time.Now().UTC()

	query := `
		UPDATE db_meta_sqlserverdtsinfo
		SET bk_biz_id = ?, ticket_id = ?, root_id = ?, source_cluster_id = ?, target_cluster_id = ?,
			dts_mode = ?, migrate_db_list = ?, status = COALESCE(NULLIF(?, ''), status), updater = ?, update_at = ?
		WHERE id = ?`
	result, err := r.db.DB().Exec(r.db.rebind(query),
		d.BkBizID, d.TicketID, d.RootID, d.SourceClusterID, d.TargetClusterID,
		d.DtsMode, dbList, d.Status, d.Updater, d.UpdateAt, d.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return duplicateTask(d, err)
		}
		return queryError("update DTS info", err)
	}

	return r.requireAffected(result, d.ID)
}

// UpdateStatus changes only the status of a DTS record
func (r *SQLServerDtsInfoRepository) UpdateStatus(id int64, status, updater string) error {
	if !ValidDtsStatus(status) {
		return errors.ErrInvalidFieldValue.WithMessagef("unknown status %q", status)
	}

	query := `UPDATE db_meta_sqlserverdtsinfo SET status = ?, updater = ?, update_at = ? WHERE id = ?`
	result, err := r.db.DB().Exec(r.db.rebind(query), status, updater, time.Now().UTC(), id)
	if err != nil {
		return queryError("update DTS status", err)
	}

	return r.requireAffected(result, id)
}

func (r *SQLServerDtsInfoRepository) requireAffected(result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return queryError("get rows affected", err)
	}
	if affected == 0 {
		return errors.ErrDtsInfoNotFound.WithMessagef("DTS info %d not found", id)
	}
	return nil
}

// GetByID retrieves a DTS record by ID
func (r *SQLServerDtsInfoRepository) GetByID(id int64) (*SQLServerDtsInfo, error) {
	query := `SELECT ` + sqlServerDtsInfoColumns + ` FROM db_meta_sqlserverdtsinfo WHERE id = ?`
	d, err := r.scan(r.db.DB().QueryRow(r.db.rebind(query), id))
	if err == sql.ErrNoRows {
		return nil, errors.ErrDtsInfoNotFound.WithMessagef("DTS info %d not found", id)
	}
	if err != nil {
		return nil, queryError("get DTS info", err)
	}
	return d, nil
}

// GetByTask retrieves the record of a ticket's transfer between two clusters
func (r *SQLServerDtsInfoRepository) GetByTask(ticketID, sourceClusterID, targetClusterID int64) (*SQLServerDtsInfo, error) {
	query := `SELECT ` + sqlServerDtsInfoColumns + `
		FROM db_meta_sqlserverdtsinfo
		WHERE ticket_id = ? AND source_cluster_id = ? AND target_cluster_id = ?`
	d, err := r.scan(r.db.DB().QueryRow(r.db.rebind(query), ticketID, sourceClusterID, targetClusterID))
	if err == sql.ErrNoRows {
		return nil, errors.ErrDtsInfoNotFound.WithMessagef(
			"no DTS info for ticket %d from cluster %d to cluster %d", ticketID, sourceClusterID, targetClusterID)
	}
	if err != nil {
		return nil, queryError("get DTS info", err)
	}
	return d, nil
}

// ListByTicket retrieves every DTS record of a ticket
func (r *SQLServerDtsInfoRepository) ListByTicket(ticketID int64) ([]SQLServerDtsInfo, error) {
	query := `SELECT ` + sqlServerDtsInfoColumns + `
		FROM db_meta_sqlserverdtsinfo
		WHERE ticket_id = ?
		ORDER BY id ASC`
	rows, err := r.db.DB().Query(r.db.rebind(query), ticketID)
	if err != nil {
		return nil, queryError("list DTS info", err)
	}
	defer rows.Close()

	out := []SQLServerDtsInfo{}
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, queryError("scan DTS info", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("list DTS info", err)
	}
	return out, nil
}

func (r *SQLServerDtsInfoRepository) scan(row rowScanner) (*SQLServerDtsInfo, error) {
	var d SQLServerDtsInfo
	var dbList sql.NullString

	err := row.Scan(&d.ID, &d.BkBizID, &d.TicketID, &d.RootID, &d.SourceClusterID, &d.TargetClusterID,
		&d.DtsMode, &dbList, &d.Status, &d.Creator, &d.CreateAt, &d.Updater, &d.UpdateAt)
	if err != nil {
		return nil, err
	}

	if dbList.Valid && dbList.String != "" {
		if err := json.Unmarshal([]byte(dbList.String), &d.MigrateDBList); err != nil {
			return nil, err
		}
	}
	return &d, nil
}
