package network

import (
	"context"

	"github.com/minio/minio-go/v7"
)

/*
   Formally define the part of the Minio client interface we use, so we
   can mock it for testing. See
   https://min.io/docs/minio/linux/developers/go/API.html

   The wrapper only reads the dataset bucket. Output goes back to S3
   through s3cmd, so nothing here writes.
*/

type MinioClientInterface interface {
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}
