package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kjk/kvlog/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures access to an S3-compatible bucket
type S3Config struct {
	Access   string
	Secret   string
	Bucket   string
	Endpoint string
	Region   string
	// use http instead of https, for local servers
	Insecure bool
	// if set, http requests are traced to it
	RequestTrace io.Writer
}

// S3 uploads and downloads backups to an S3-compatible bucket
type S3 struct {
	Client *minio.Client
	Bucket string
}

func (c *S3Config) validate() error {
	if c == nil {
		return errors.New("must provide config")
	}
	if c.Access == "" || c.Secret == "" || c.Bucket == "" || c.Endpoint == "" {
		return errors.New("must provide Access, Secret, Bucket and Endpoint in config")
	}
	return nil
}

// NewS3 creates a client and checks that the bucket exists
func NewS3(config *S3Config) (*S3, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	c := config
	mc, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.Access, c.Secret, ""),
		Region: c.Region,
		Secure: !c.Insecure,
	})
	if err != nil {
		return nil, err
	}
	if c.RequestTrace != nil {
		mc.TraceOn(c.RequestTrace)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	found, err := mc.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("bucket '%s' doesn't exist", c.Bucket)
	}
	return &S3{
		Client: mc,
		Bucket: c.Bucket,
	}, nil
}

// Upload uploads localPath as remotePath
func (s *S3) Upload(ctx context.Context, remotePath string, localPath string) error {
	timeStart := time.Now()
	opts := minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}
	info, err := s.Client.FPutObject(ctx, s.Bucket, remotePath, localPath, opts)
	if err != nil {
		return fmt.Errorf("upload of '%s' as '%s' failed: %w", localPath, remotePath, err)
	}
	dur := time.Since(timeStart)
	log.Verbosef("backup: uploaded '%s' to s3 '%s/%s' (%d bytes) in %s\n", localPath, s.Bucket, remotePath, info.Size, dur)
	log.EventWithDuration("backup_s3_upload", dur, "local", localPath, "remote", remotePath, "size", info.Size)
	return nil
}

// Download downloads remotePath to localPath.
// localPath only appears once fully downloaded.
func (s *S3) Download(ctx context.Context, localPath string, remotePath string) error {
	obj, err := s.Client.GetObject(ctx, s.Bucket, remotePath, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()

	if err = os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	aw, err := newAtomicWriter(localPath)
	if err != nil {
		return err
	}
	defer aw.Cancel()
	if _, err = io.Copy(aw, obj); err != nil {
		return fmt.Errorf("download of '%s' failed: %w", remotePath, err)
	}
	return aw.Close()
}

// List returns names of objects with a given prefix
func (s *S3) List(ctx context.Context, prefix string) ([]string, error) {
	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}
	var res []string
	for obj := range s.Client.ListObjects(ctx, s.Bucket, opts) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		res = append(res, obj.Key)
	}
	return res, nil
}
