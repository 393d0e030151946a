package migrations

import (
	"github.com/bkdbm/dbmeta/src/dbmeta/db/schema"
)

// migration0037Auto20240520 binds extra process instances to their CMDB
// service instance and makes DTS records unique per ticket and cluster pair.
func migration0037Auto20240520() Migration {
	return Migration{
		App:         AppDBMeta,
		Name:        "0037_auto_20240520_1104",
		Description: "Add bk_instance_id to extraprocessinstance; unique DTS info per ticket and cluster pair",
		Dependencies: []Key{
			{App: AppDBMeta, Name: "0036_merge_0033_clusterdbhaext_0035_machine_system_info"},
		},
		Operations: []schema.Operation{
			&schema.AddField{
				Model: "extraprocessinstance",
				Field: schema.Field{
					Name:     "bk_instance_id",
					Type:     schema.TypeInteger,
					Default:  0,
					HelpText: "service instance id, matches CMDB",
				},
			},
			&schema.AlterUniqueTogether{
				Model: "sqlserverdtsinfo",
				UniqueTogether: [][]string{
					{"ticket_id", "source_cluster_id", "target_cluster_id"},
				},
			},
		},
	}
}
