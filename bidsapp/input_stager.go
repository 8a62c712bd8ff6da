package bidsapp

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bids-apps/batch-wrapper/constants"
	"github.com/bids-apps/batch-wrapper/models/common"
	"github.com/bids-apps/batch-wrapper/network"
	"github.com/bids-apps/batch-wrapper/util/logger"
	"github.com/minio/minio-go/v7"
)

// InputStager copies a BIDS dataset snapshot from S3 to the job's
// local input directory, where the BIDS app can read it.
type InputStager struct {
	Base
	Client network.MinioClientInterface

	FileCount int
	ByteCount int64
}

func NewInputStager(context *common.Context) *InputStager {
	stager := &InputStager{
		Base: Base{Context: context},
	}
	if context.S3Client != nil {
		stager.Client = context.S3Client
	}
	return stager
}

func (s *InputStager) Name() string {
	return constants.StepStageInput
}

func (s *InputStager) Enabled() bool {
	return s.Config().StagingEnabled()
}

func (s *InputStager) Run(ctx context.Context) error {
	err := s.Stage(ctx)
	if err == nil {
		s.Context.Logger.Infof("Staged %d files (%d bytes) from %s into %s",
			s.FileCount, s.ByteCount, s.sourceURL(), s.Config().InputDir())
	}
	return err
}

// Stage downloads every object under the snapshot prefix of the
// dataset bucket. Keys keep their layout below the prefix, so
// s3://bucket/ds000001/sub-01/anat/T1w.nii.gz lands at
// <input dir>/sub-01/anat/T1w.nii.gz.
func (s *InputStager) Stage(ctx context.Context) error {
	config := s.Config()
	prefix := SnapshotPrefix(config.SnapshotID)
	inputDir := config.InputDir()
	if err := os.MkdirAll(inputDir, 0755); err != nil {
		return common.NewError(fmt.Sprintf("Cannot create input dir %s", inputDir), err, true)
	}
	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true}
	for objInfo := range s.Client.ListObjects(ctx, config.DatasetBucket, opts) {
		if objInfo.Err != nil {
			return common.NewError(fmt.Sprintf("Cannot list %s", s.sourceURL()), objInfo.Err, true)
		}
		if strings.HasSuffix(objInfo.Key, "/") {
			continue
		}
		localPath, err := LocalPathFor(inputDir, prefix, objInfo.Key)
		if err != nil {
			return common.NewError(err.Error(), err, true)
		}
		if err := s.download(ctx, objInfo, localPath); err != nil {
			return common.NewError(fmt.Sprintf("Cannot download s3://%s/%s",
				config.DatasetBucket, objInfo.Key), err, true)
		}
		s.FileCount++
		s.ByteCount += objInfo.Size
	}
	if s.FileCount == 0 {
		return common.NewError(fmt.Sprintf("No objects found under %s", s.sourceURL()), nil, true)
	}
	return nil
}

func (s *InputStager) download(ctx context.Context, objInfo minio.ObjectInfo, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return err
	}
	obj, err := s.Client.GetObject(ctx, s.Config().DatasetBucket, objInfo.Key, minio.GetObjectOptions{})
	if err != nil {
		return err
	}
	defer obj.Close()
	file, err := os.Create(localPath)
	if err != nil {
		return err
	}
	progress := logger.NewProgressLogger(s.Context.Logger, objInfo.Key, objInfo.Size)
	_, err = io.Copy(io.MultiWriter(file, progress), obj)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		// Don't leave a partial file for the BIDS app to find.
		os.Remove(localPath)
	}
	return err
}

func (s *InputStager) sourceURL() string {
	return fmt.Sprintf("s3://%s/%s", s.Config().DatasetBucket, SnapshotPrefix(s.Config().SnapshotID))
}

// SnapshotPrefix returns the S3 key prefix of a dataset snapshot.
func SnapshotPrefix(snapshotID string) string {
	return strings.Trim(snapshotID, "/") + "/"
}

// LocalPathFor returns the local path for S3 key under dir, after
// stripping prefix from the key. Returns an error for keys that would
// land outside of dir.
func LocalPathFor(dir, prefix, key string) (string, error) {
	relPath := strings.TrimPrefix(key, prefix)
	cleanPath := filepath.Clean(filepath.FromSlash(relPath))
	if relPath == "" || filepath.IsAbs(cleanPath) || cleanPath == "." ||
		cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("S3 key '%s' does not map to a file under %s", key, dir)
	}
	return filepath.Join(dir, cleanPath), nil
}
