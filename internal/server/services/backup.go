package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/spendsync/internal/server/config"
	"github.com/google/uuid"
)

// Replaced in tests.
var (
	loadAWSConfig = awsconfig.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPut = func(ctx context.Context, pc *s3.PresignClient, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// BackupService hands out presigned upload links for client backups.
// Objects land under backups/<owner>/ in the configured bucket.
type BackupService struct {
	config *config.Config
	now    func() time.Time
}

func NewBackupService(cfg *config.Config) *BackupService {
	return &BackupService{config: cfg, now: time.Now}
}

func (s *BackupService) backupKey(owner string) string {
	return fmt.Sprintf("backups/%s/%s-%s.json", owner, s.now().UTC().Format("20060102T150405Z"), uuid.NewString())
}

func (s *BackupService) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser, s.config.S3RootPassword, "")))
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := newS3Client(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})
	return s3.NewPresignClient(client), nil
}

// UploadURL returns a fresh object key and a presigned PUT URL for it.
func (s *BackupService) UploadURL(ctx context.Context, owner string) (key, url string, err error) {
	pc, err := s.presignClient(ctx)
	if err != nil {
		return "", "", err
	}

	key = s.backupKey(owner)
	req, err := presignPut(ctx, pc, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3Bucket),
		Key:         aws.String(key),
		ContentType: aws.String("application/json"),
	}, s3.WithPresignExpires(s.config.PresignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("failed to presign backup upload: %w", err)
	}
	return key, req.URL, nil
}
