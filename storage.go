// SPDX-License-Identifier: MIT

package conceptjoin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 is the subset of minio.Client this package uses for publishing the
// final output file to S3-compatible object storage. A
// run is not required to configure one: publication is optional.
type S3 interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// PublishOutput uploads a finished output file to S3-compatible storage,
// skipping the upload if an object already exists at dest (the run may be
// retried after a partial failure further down the pipeline).
func PublishOutput(ctx context.Context, storage S3, bucket, dest, localPath, contentType string) error {
	if _, err := storage.StatObject(ctx, bucket, dest, minio.StatObjectOptions{}); err == nil {
		return nil
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := storage.FPutObject(ctx, bucket, dest, localPath, opts); err != nil {
		return fmt.Errorf("conceptjoin: uploading %s to %s/%s: %w", localPath, bucket, dest, err)
	}
	return nil
}

// storageConfig is the JSON shape of an S3 credentials file, or falls back
// to the S3_ENDPOINT/S3_KEY/S3_SECRET environment variables when no path is
// given.
type storageConfig struct {
	Endpoint, Key, Secret string
}

// NewStorageClient sets up a client for an S3-compatible object store, used
// only for the optional final-output publication step.
func NewStorageClient(keypath string) (*minio.Client, error) {
	var config storageConfig
	if keypath == "" {
		config.Endpoint = os.Getenv("S3_ENDPOINT")
		config.Key = os.Getenv("S3_KEY")
		config.Secret = os.Getenv("S3_SECRET")
	} else {
		data, err := os.ReadFile(keypath)
		if err != nil {
			return nil, fmt.Errorf("conceptjoin: reading storage credentials %q: %w", keypath, err)
		}
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("conceptjoin: parsing storage credentials %q: %w", keypath, err)
		}
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.Key, config.Secret, ""),
		Secure: true,
	})
	if err != nil {
		return nil, fmt.Errorf("conceptjoin: creating storage client: %w", err)
	}
	client.SetAppInfo("ConceptJoinBuilder", "0.1")
	return client, nil
}
