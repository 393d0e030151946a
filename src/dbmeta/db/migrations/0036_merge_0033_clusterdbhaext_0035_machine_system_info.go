package migrations

import (
	"github.com/bkdbm/dbmeta/src/dbmeta/db/schema"
)

// AppDBMeta is the app label of the metadata catalog
const AppDBMeta = "db_meta"

// auditedFields are the bookkeeping columns shared by catalog models
func auditedFields() []schema.Field {
	return []schema.Field{
		{Name: "id", Type: schema.TypeAuto, PrimaryKey: true},
		{Name: "creator", Type: schema.TypeVarchar, MaxLength: 64, Default: ""},
		{Name: "create_at", Type: schema.TypeDateTime},
		{Name: "updater", Type: schema.TypeVarchar, MaxLength: 64, Default: ""},
		{Name: "update_at", Type: schema.TypeDateTime},
	}
}

// migration0036Baseline creates the catalog tables this service owns in the
// shape they had at revision 0036, the merge of the 0033 and 0035 branches.
func migration0036Baseline() Migration {
	extraProcessInstance := schema.Model{
		Name:  "extraprocessinstance",
		Table: "db_meta_extraprocessinstance",
		Fields: append(auditedFields(),
			schema.Field{Name: "bk_biz_id", Type: schema.TypeInteger, Default: 0},
			schema.Field{Name: "cluster_id", Type: schema.TypeInteger, Default: 0},
			schema.Field{Name: "bk_cloud_id", Type: schema.TypeInteger, Default: 0},
			schema.Field{Name: "ip", Type: schema.TypeVarchar, MaxLength: 45, Default: ""},
			schema.Field{Name: "listen_port", Type: schema.TypeInteger, Default: 0},
			schema.Field{Name: "proc_type", Type: schema.TypeVarchar, MaxLength: 64, Default: ""},
			schema.Field{Name: "version", Type: schema.TypeVarchar, MaxLength: 64, Default: ""},
			schema.Field{Name: "extra_config", Type: schema.TypeJSON, Null: true},
		),
	}

	sqlServerDtsInfo := schema.Model{
		Name:  "sqlserverdtsinfo",
		Table: "db_meta_sqlserverdtsinfo",
		Fields: append(auditedFields(),
			schema.Field{Name: "bk_biz_id", Type: schema.TypeInteger, Default: 0},
			schema.Field{Name: "ticket_id", Type: schema.TypeInteger},
			schema.Field{Name: "root_id", Type: schema.TypeVarchar, MaxLength: 64, Default: ""},
			schema.Field{Name: "source_cluster_id", Type: schema.TypeInteger},
			schema.Field{Name: "target_cluster_id", Type: schema.TypeInteger},
			schema.Field{Name: "dts_mode", Type: schema.TypeVarchar, MaxLength: 64, Default: ""},
			schema.Field{Name: "migrate_db_list", Type: schema.TypeJSON, Null: true},
			schema.Field{Name: "status", Type: schema.TypeVarchar, MaxLength: 64, Default: ""},
		),
	}

	return Migration{
		App:         AppDBMeta,
		Name:        "0036_merge_0033_clusterdbhaext_0035_machine_system_info",
		Description: "Catalog baseline for extra process instances and SQL Server DTS info",
		Operations: []schema.Operation{
			&schema.CreateModel{Model: extraProcessInstance},
			&schema.CreateModel{Model: sqlServerDtsInfo},
		},
	}
}
