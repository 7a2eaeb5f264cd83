package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/Alfresco/SearchServices-sub009/core/storage"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/minio-go/v7"
)

const objectSuffix = ".zst"

// ObjectStore keeps zstd-compressed texts in an object storage bucket.
type ObjectStore struct {
	client storage.Client
	bucket string
	prefix string
	enc    *zstd.Encoder
	dec    *zstd.Decoder
}

// NewObjectStore returns a store writing under prefix in bucket.
func NewObjectStore(client storage.Client, bucket, prefix string) (*ObjectStore, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("content: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("content: zstd decoder: %w", err)
	}
	return &ObjectStore{client: client, bucket: bucket, prefix: prefix, enc: enc, dec: dec}, nil
}

func (s *ObjectStore) key(name string) string {
	return path.Join(s.prefix, name)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *ObjectStore) Put(ctx context.Context, ref, text string) error {
	data := s.enc.EncodeAll([]byte(text), nil)
	_, err := s.client.PutObject(ctx, s.bucket, s.key(ref)+objectSuffix, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/zstd",
	})
	if err != nil {
		return fmt.Errorf("content: put %s: %w", ref, err)
	}
	return nil
}

func (s *ObjectStore) Get(ctx context.Context, ref string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(ref)+objectSuffix, minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("content: get %s: %w", ref, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("content: read %s: %w", ref, err)
	}
	text, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("content: decode %s: %w", ref, err)
	}
	return string(text), nil
}

func (s *ObjectStore) DeleteNode(ctx context.Context, nodeID int64) error {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(nodePrefix(nodeID)) + "/",
		Recursive: true,
	}) {
		if obj.Err != nil {
			return fmt.Errorf("content: list node %d: %w", nodeID, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	if len(keys) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	for rerr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return fmt.Errorf("content: remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return nil
}
