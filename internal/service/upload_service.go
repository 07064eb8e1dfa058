package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jduhalde/consulting/internal/apperror"
	"github.com/jduhalde/consulting/internal/model"
	"github.com/jduhalde/consulting/internal/repository"
)

// InitiateUploadResult pairs the created upload record with the signed
// PUT URL the client pushes the file to.
type InitiateUploadResult struct {
	Upload    *model.Upload
	UploadURL string
	ExpiresAt time.Time
}

// UploadService manages the two-phase file upload handshake: initiate
// returns a presigned PUT URL, complete verifies the object landed.
type UploadService interface {
	InitiateUpload(ctx context.Context, userID, fileName, fileType, category string) (*InitiateUploadResult, error)
	CompleteUpload(ctx context.Context, userID, uploadID string) (*model.Upload, error)
	GetUpload(ctx context.Context, userID, uploadID string) (*model.Upload, string, error)
	ListUploads(ctx context.Context, userID, category string, limit int) ([]model.Upload, error)
}

type uploadService struct {
	repo           repository.UploadRepository
	s3Client       *s3.Client
	presignClient  *s3.PresignClient
	bucketName     string
	uploadURLTTL   time.Duration
	downloadURLTTL time.Duration
	logger         zerolog.Logger
}

func NewUploadService(
	repo repository.UploadRepository,
	s3Client *s3.Client,
	bucketName string,
	uploadURLTTL, downloadURLTTL time.Duration,
	logger zerolog.Logger,
) UploadService {
	return &uploadService{
		repo:           repo,
		s3Client:       s3Client,
		presignClient:  s3.NewPresignClient(s3Client),
		bucketName:     bucketName,
		uploadURLTTL:   uploadURLTTL,
		downloadURLTTL: downloadURLTTL,
		logger:         logger.With().Str("service", "UploadService").Logger(),
	}
}

// sanitizeFileName strips path separators and traversal sequences so the
// storage key stays inside the user's prefix.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "")
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" || name == "." || name == "/" {
		name = "file"
	}
	return name
}

func (s *uploadService) InitiateUpload(ctx context.Context, userID, fileName, fileType, category string) (*InitiateUploadResult, error) {
	if fileName == "" {
		return nil, apperror.New(apperror.KindValidation, "file_name is required")
	}
	if category == "" {
		category = "general"
	}

	storagePath := fmt.Sprintf("users/%s/uploads/%d_%s", userID, time.Now().Unix(), sanitizeFileName(fileName))

	upload := &model.Upload{
		ID:          uuid.NewString(),
		UserID:      userID,
		FileName:    fileName,
		FileType:    fileType,
		Category:    category,
		StoragePath: storagePath,
		Status:      model.UploadPending,
	}
	if err := s.repo.CreateUpload(ctx, upload); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to create upload record")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to create upload", err)
	}

	req, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(storagePath),
		ContentType: aws.String(fileType),
	}, s3.WithPresignExpires(s.uploadURLTTL))
	if err != nil {
		s.logger.Error().Err(err).Str("upload_id", upload.ID).Msg("Failed to generate presigned PUT URL")
		return nil, apperror.Wrap(apperror.KindInternal, "failed to generate upload URL", err)
	}

	s.logger.Info().
		Str("upload_id", upload.ID).Str("user_id", userID).Str("storage_path", storagePath).
		Msg("Upload initiated")

	return &InitiateUploadResult{
		Upload:    upload,
		UploadURL: req.URL,
		ExpiresAt: time.Now().Add(s.uploadURLTTL),
	}, nil
}

// CompleteUpload verifies the object exists in storage before marking the
// record completed. The recorded size comes from storage, not the client.
func (s *uploadService) CompleteUpload(ctx context.Context, userID, uploadID string) (*model.Upload, error) {
	upload, err := s.repo.GetUploadByID(ctx, userID, uploadID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to load upload", err)
	}
	if upload == nil {
		return nil, apperror.Newf(apperror.KindUploadNotFound, "upload %s not found", uploadID)
	}
	if upload.Status == model.UploadCompleted {
		return upload, nil
	}

	head, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(upload.StoragePath),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("storage_path", upload.StoragePath).Msg("File not found in storage at expected path")
		return nil, apperror.Wrap(apperror.KindValidation, "file not found in storage", err)
	}

	size := aws.ToInt64(head.ContentLength)
	if _, err := s.repo.MarkCompleted(ctx, userID, uploadID, size); err != nil {
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to complete upload", err)
	}

	upload.Status = model.UploadCompleted
	upload.FileSize = size
	now := time.Now()
	upload.CompletedAt = &now

	s.logger.Info().Str("upload_id", uploadID).Int64("size", size).Msg("Upload completed")
	return upload, nil
}

func (s *uploadService) GetUpload(ctx context.Context, userID, uploadID string) (*model.Upload, string, error) {
	upload, err := s.repo.GetUploadByID(ctx, userID, uploadID)
	if err != nil {
		return nil, "", apperror.Wrap(apperror.KindStoreUnavailable, "failed to load upload", err)
	}
	if upload == nil {
		return nil, "", apperror.Newf(apperror.KindUploadNotFound, "upload %s not found", uploadID)
	}

	var downloadURL string
	if upload.Status == model.UploadCompleted {
		resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(s.bucketName),
			Key:    aws.String(upload.StoragePath),
		}, s3.WithPresignExpires(s.downloadURLTTL))
		if err != nil {
			s.logger.Error().Err(err).Str("upload_id", uploadID).Msg("Failed to generate presigned GET URL")
			return nil, "", apperror.Wrap(apperror.KindInternal, "failed to generate download URL", err)
		}
		downloadURL = resp.URL
	}
	return upload, downloadURL, nil
}

func (s *uploadService) ListUploads(ctx context.Context, userID, category string, limit int) ([]model.Upload, error) {
	uploads, err := s.repo.ListUploads(ctx, userID, category, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list uploads")
		return nil, apperror.Wrap(apperror.KindStoreUnavailable, "failed to list uploads", err)
	}
	return uploads, nil
}
