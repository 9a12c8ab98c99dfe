package evidence

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/edupay/upiverify/lib/service"
	"github.com/google/uuid"
)

// ObjectPutter is the part of *s3.Client the store needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store keeps proof attachments in a bucket under
// <prefix><request id>/<uuid><ext> and returns the object key.
type S3Store struct {
	Client  ObjectPutter
	Bucket  string
	Prefix  string
	MaxSize int64
}

// NewS3Store loads the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, prefix string, maxSize int64) (*S3Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &S3Store{
		Client:  s3.NewFromConfig(cfg),
		Bucket:  bucket,
		Prefix:  prefix,
		MaxSize: maxSize,
	}, nil
}

func (store *S3Store) StoreEvidence(ctx context.Context, requestID string, attachment *service.Attachment) (string, error) {
	body, err := io.ReadAll(io.LimitReader(attachment.Body, store.MaxSize+1))
	if err != nil {
		return "", err
	}
	if int64(len(body)) > store.MaxSize {
		return "", fmt.Errorf("%w: more than %d bytes", service.ErrEvidenceTooLarge, store.MaxSize)
	}

	key := store.objectKey(requestID, attachment)
	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = store.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(store.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata: map[string]string{
			"payment-request-id": requestID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload evidence to S3: %w", err)
	}
	return key, nil
}

func (store *S3Store) objectKey(requestID string, attachment *service.Attachment) string {
	ext := strings.ToLower(filepath.Ext(attachment.Filename))
	if ext == "" && attachment.ContentType != "" {
		if exts, err := mime.ExtensionsByType(attachment.ContentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	return path.Join(store.Prefix, requestID, uuid.NewString()+ext)
}
