package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/aiclient"
	sc "github.com/avoronov/contenthub/internal/server/config"
	"github.com/avoronov/contenthub/internal/server/models"
	"github.com/avoronov/contenthub/internal/server/repositories/repomanager"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ImageService generates images through the image upstream and manages
// the object-storage keys and presigned URLs of stored images.
type ImageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	ai          aiclient.Caller
	model       string
	config      *sc.Config
	logger      logging.Logger
}

func NewImageService(db *sql.DB, m repomanager.RepositoryManager, ai aiclient.Caller, cfg *sc.Config, logger logging.Logger) *ImageService {
	return &ImageService{
		db:          db,
		repomanager: m,
		ai:          ai,
		model:       cfg.OpenAIImageModel,
		config:      cfg,
		logger:      logger.With("module", "image_service"),
	}
}

// GetRandomStorageKey returns a collision-free object key partitioned by
// date so the bucket stays browsable.
func GetRandomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("users/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Generate asks the image upstream to render prompt and records the result,
// upstream URL included, so the image stays reachable through ListImages and
// PresignDownload. The minted object key reserves a storage slot should the
// client upload the fetched bytes later.
func (s *ImageService) Generate(ctx context.Context, userID int64, prompt string) (*models.Image, string, error) {
	req := aiclient.ImageRequest{Model: s.model, Prompt: prompt, N: 1}
	var resp aiclient.ImageResponse
	if err := s.ai.Post(ctx, aiclient.ImageGenerationPath, req, &resp); err != nil {
		s.logger.Error(ctx, "image upstream call failed", "error", err.Error())
		return nil, "", fmt.Errorf("%w: %v", common.ErrAIService, err)
	}
	if len(resp.Data) == 0 {
		return nil, "", fmt.Errorf("%w: response carries no image", common.ErrAIService)
	}

	img, err := s.repomanager.Images(s.db).Create(ctx, &models.Image{
		UserID:    userID,
		ObjectKey: GetRandomStorageKey(),
		Prompt:    prompt,
		URL:       resp.Data[0].URL,
	})
	if err != nil {
		return nil, "", common.ErrInternal
	}
	return img, img.URL, nil
}

func (s *ImageService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// PresignUpload registers a new image record for the user and returns its
// object key together with a presigned PUT URL for the actual bytes.
func (s *ImageService) PresignUpload(ctx context.Context, userID int64, prompt string) (*models.Image, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return nil, "", err
	}

	bucket := s.config.S3Bucket
	key := GetRandomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return nil, "", err
	}

	img, err := s.repomanager.Images(s.db).Create(ctx, &models.Image{
		UserID:    userID,
		ObjectKey: key,
		Prompt:    prompt,
	})
	if err != nil {
		return nil, "", common.ErrInternal
	}

	return img, req.URL, nil
}

// PresignDownload returns a download URL for one of the user's stored
// images: the recorded upstream URL for generated images, a presigned GET on
// the object key otherwise. Someone else's image is reported as missing.
func (s *ImageService) PresignDownload(ctx context.Context, userID, imageID int64) (string, error) {
	img, err := s.repomanager.Images(s.db).GetByID(ctx, imageID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrNotFound
		}
		return "", common.ErrInternal
	}
	if img.UserID != userID {
		return "", common.ErrNotFound
	}

	if img.URL != "" {
		return img.URL, nil
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &img.ObjectKey,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

// ListImages returns the metadata of all images owned by the user.
func (s *ImageService) ListImages(ctx context.Context, userID int64) ([]*models.Image, error) {
	imgs, err := s.repomanager.Images(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, common.ErrInternal
	}
	return imgs, nil
}
