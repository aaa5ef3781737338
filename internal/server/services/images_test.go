package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/avoronov/contenthub/internal/common"
	"github.com/avoronov/contenthub/internal/logging"
	"github.com/avoronov/contenthub/internal/server/aiclient"
	sc "github.com/avoronov/contenthub/internal/server/config"
)

func newImageService(t *testing.T, rm *fakeRepoManager, ai *fakeCaller) *ImageService {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	return NewImageService(db, rm, ai, cfg, logging.NewNopLogger())
}

// stubPresign replaces the AWS seams so no network or credentials are
// involved, and restores them afterwards.
func stubPresign(t *testing.T, putURL, getURL string) {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origPut := presignPutObject
	origGet := presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		presignPutObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: putURL}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: getURL}, nil
	}
}

func TestGenerate_Success(t *testing.T) {
	rm := &fakeRepoManager{i: &fakeImagesRepo{}}
	ai := &fakeCaller{respond: func(path string, out any) {
		if resp, ok := out.(*aiclient.ImageResponse); ok {
			resp.Data = []aiclient.ImageData{{URL: "https://upstream/img.png"}}
		}
	}}
	s := newImageService(t, rm, ai)

	img, url, err := s.Generate(context.Background(), 1, "a red fox")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if url != "https://upstream/img.png" {
		t.Errorf("unexpected url %q", url)
	}
	if img.Prompt != "a red fox" || img.ObjectKey == "" {
		t.Errorf("unexpected image record: %+v", img)
	}
	// The upstream URL must be stored, not just returned.
	if len(rm.i.stored) != 1 || rm.i.stored[0].URL != "https://upstream/img.png" {
		t.Errorf("upstream url not persisted: %+v", rm.i.stored)
	}
	if ai.lastPath != aiclient.ImageGenerationPath {
		t.Errorf("wrong upstream path %q", ai.lastPath)
	}
	req := ai.lastIn.(aiclient.ImageRequest)
	if req.Prompt != "a red fox" || req.N != 1 {
		t.Errorf("unexpected request: %+v", req)
	}
}

func TestGenerate_EmptyResponse(t *testing.T) {
	rm := &fakeRepoManager{i: &fakeImagesRepo{}}
	s := newImageService(t, rm, &fakeCaller{respond: func(path string, out any) {}})

	_, _, err := s.Generate(context.Background(), 1, "prompt")
	if !errors.Is(err, common.ErrAIService) {
		t.Fatalf("want ErrAIService, got %v", err)
	}
	if len(rm.i.stored) != 0 {
		t.Errorf("no record may be written on failure")
	}
}

func TestPresignUpload(t *testing.T) {
	stubPresign(t, "https://s3/put", "https://s3/get")
	rm := &fakeRepoManager{i: &fakeImagesRepo{}}
	s := newImageService(t, rm, &fakeCaller{})

	img, url, err := s.PresignUpload(context.Background(), 1, "holiday photo")
	if err != nil {
		t.Fatalf("PresignUpload error: %v", err)
	}
	if url != "https://s3/put" {
		t.Errorf("unexpected url %q", url)
	}
	if img.ObjectKey == "" {
		t.Errorf("object key must be assigned")
	}
}

func TestPresignDownload_OwnershipEnforced(t *testing.T) {
	stubPresign(t, "https://s3/put", "https://s3/get")
	rm := &fakeRepoManager{i: &fakeImagesRepo{}}
	s := newImageService(t, rm, &fakeCaller{})

	img, _, err := s.PresignUpload(context.Background(), 1, "mine")
	if err != nil {
		t.Fatalf("PresignUpload error: %v", err)
	}

	if _, err := s.PresignDownload(context.Background(), 2, img.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("non-owner download: want ErrNotFound, got %v", err)
	}

	url, err := s.PresignDownload(context.Background(), 1, img.ID)
	if err != nil {
		t.Fatalf("owner download error: %v", err)
	}
	if url != "https://s3/get" {
		t.Errorf("unexpected url %q", url)
	}
}

// A generated image has no uploaded bytes, so its download URL is the
// stored upstream one, no presigning involved.
func TestPresignDownload_GeneratedImageUsesStoredURL(t *testing.T) {
	rm := &fakeRepoManager{i: &fakeImagesRepo{}}
	ai := &fakeCaller{respond: func(path string, out any) {
		if resp, ok := out.(*aiclient.ImageResponse); ok {
			resp.Data = []aiclient.ImageData{{URL: "https://upstream/img.png"}}
		}
	}}
	s := newImageService(t, rm, ai)

	img, _, err := s.Generate(context.Background(), 1, "a red fox")
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	url, err := s.PresignDownload(context.Background(), 1, img.ID)
	if err != nil {
		t.Fatalf("PresignDownload error: %v", err)
	}
	if url != "https://upstream/img.png" {
		t.Errorf("unexpected url %q", url)
	}
}

func TestGetRandomStorageKey_Format(t *testing.T) {
	k := GetRandomStorageKey()
	// users/YYYY/M/D/UUID
	re := regexp.MustCompile(`^users/\d{4}/\d{1,2}/\d{1,2}/[0-9a-fA-F-]+$`)
	if !re.MatchString(k) {
		t.Fatalf("unexpected format: %q", k)
	}
}
