package export

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// MinioMirror copies harvested files into a bucket on a MinIO or S3
// compatible server, under <source bucket>/<key>.
type MinioMirror struct {
	client *minio.Client
	bucket string
}

func NewMinioMirror(endpoint, accessKey, secretKey, bucket string, secure bool) (*MinioMirror, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to MinIO server: %w", err)
	}
	return &MinioMirror{client: client, bucket: bucket}, nil
}

func (m *MinioMirror) Upload(ctx context.Context, bucket, key, localPath string) error {
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	objectName := path.Join(bucket, key)
	info, err := m.client.FPutObject(ctx, m.bucket, objectName, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("error uploading %s: %w", objectName, err)
	}
	log.WithFields(log.Fields{"state": "mirror", "action": "upload"}).Debugf("uploaded '%s' of size %d bytes", info.Key, info.Size)
	return nil
}
