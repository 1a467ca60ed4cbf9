// Package storage archives run reports in object storage.
//
// Backends register themselves by provider name; import the ones you need:
//
//	import (
//	    "github.com/kbukum/dagflow/storage"
//	    _ "github.com/kbukum/dagflow/storage/local"
//	    _ "github.com/kbukum/dagflow/storage/s3"
//	)
//
//	st, err := storage.New(storage.Config{Provider: "s3", Bucket: "runs"}, log)
//	err = storage.PutJSON(ctx, st, "reports/r1.json", report)
package storage
