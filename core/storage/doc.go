// Package storage wraps the MinIO client used to cache extracted document content.
//
// The Client interface covers only what the content store calls; its tests run against
// the testify mock in core/storage/mocks instead of a live S3 endpoint.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	if err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region); err != nil {
//	    return err
//	}
package storage
