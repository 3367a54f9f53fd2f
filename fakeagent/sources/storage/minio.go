package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fakeagent/fakeagent/config"
	"fakeagent/fakeagent/types"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOClient struct {
	client *minio.Client
	bucket string
}

// Transcript is the archived frame sequence of one run.
type Transcript struct {
	RunID     string        `json:"run_id"`
	ThreadID  string        `json:"thread_id"`
	Mode      string        `json:"mode"`
	Outcome   string        `json:"outcome"`
	Frames    []types.Frame `json:"frames"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewMinIOClient(ctx context.Context, cfg config.Config) (*MinIOClient, error) {
	bucket := cfg.MinIOBucket
	client, err := minio.New(
		cfg.MinIOEndpoint,
		&minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
			Secure: cfg.MinIOSecure,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	// Create bucket if not exists
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", bucket, err)
		}
	}
	return &MinIOClient{client: client, bucket: bucket}, nil
}

// TranscriptKey is the object key of a run transcript.
func TranscriptKey(threadID, runID string) string {
	return fmt.Sprintf("runs/%s/%s.json", url.PathEscape(threadID), runID)
}

func (m *MinIOClient) UploadTranscript(ctx context.Context, key string, transcript Transcript) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

func (m *MinIOClient) GetTranscript(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	return io.ReadAll(obj)
}
