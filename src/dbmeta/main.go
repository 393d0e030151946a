// dbmeta applies the DB metadata catalog migrations and serves the
// catalog API.
package main

import (
	"github.com/bkdbm/dbmeta/src/dbmeta/core"
)

func main() {
	core.Execute()
}
