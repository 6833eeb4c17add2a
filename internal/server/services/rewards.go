package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophrewards/internal/common"
	"github.com/dmitrijs2005/gophrewards/internal/logging"
	sc "github.com/dmitrijs2005/gophrewards/internal/server/config"
	"github.com/dmitrijs2005/gophrewards/internal/server/models"
	"github.com/dmitrijs2005/gophrewards/internal/server/repositories/repomanager"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
)

// RewardService manages the reward catalogue. Reward images live in S3
// and are handed out as short-lived presigned GET URLs.
type RewardService struct {
	ledger      *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	logger      logging.Logger
}

func NewRewardService(ledger *sql.DB, m repomanager.RepositoryManager, config *sc.Config, logger logging.Logger) *RewardService {
	if logger == nil {
		logger = logging.Nop{}
	}
	return &RewardService{ledger: ledger, repomanager: m, config: config, logger: logger}
}

// List returns the catalogue. Images that cannot be signed are left
// without a URL.
func (s *RewardService) List(ctx context.Context, activeOnly bool) ([]models.Reward, error) {
	list, err := s.repomanager.Rewards(s.ledger).List(ctx, activeOnly)
	if err != nil {
		s.logger.Error(ctx, "reward list failed", "error", err)
		return nil, common.ErrorInternal
	}

	var pc *s3.PresignClient
	for i := range list {
		if list[i].ImageKey == "" {
			continue
		}
		if pc == nil {
			if pc, err = s.getPresignClient(ctx); err != nil {
				s.logger.Warn(ctx, "s3 presign client unavailable", "error", err)
				break
			}
		}
		url, err := s.presignImage(ctx, pc, list[i].ImageKey)
		if err != nil {
			s.logger.Warn(ctx, "reward image presign failed", "reward_id", list[i].ID, "error", err)
			continue
		}
		list[i].ImageURL = url
	}
	return list, nil
}

// Create adds a reward to the catalogue.
func (s *RewardService) Create(ctx context.Context, r *models.Reward) (*models.Reward, error) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" || r.CostPoints <= 0 {
		return nil, common.ErrorValidation
	}
	out, err := s.repomanager.Rewards(s.ledger).Create(ctx, r)
	if err != nil {
		s.logger.Error(ctx, "reward create failed", "error", err)
		return nil, common.ErrorInternal
	}
	return out, nil
}

// SetActive retires or reinstates a reward.
func (s *RewardService) SetActive(ctx context.Context, id int64, active bool) error {
	err := s.repomanager.Rewards(s.ledger).SetActive(ctx, id, active)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrorNotFound):
		return common.ErrRewardNotFoundOrInactive
	default:
		s.logger.Error(ctx, "reward update failed", "reward_id", id, "error", err)
		return common.ErrorInternal
	}
}

func (s *RewardService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// ImageUploadURL presigns a PUT of a reward image under key. The upload
// must send the same contentType.
func (s *RewardService) ImageUploadURL(ctx context.Context, key, contentType string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" || contentType == "" {
		return "", common.ErrorValidation
	}
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		s.logger.Error(ctx, "s3 presign client unavailable", "error", err)
		return "", common.ErrorInternal
	}

	bucket := s.config.S3Bucket
	req, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		ContentType: &contentType,
	}, s3.WithPresignExpires(s.presignExpiry()))
	if err != nil {
		s.logger.Error(ctx, "image upload presign failed", "key", key, "error", err)
		return "", common.ErrorInternal
	}
	return req.URL, nil
}

func (s *RewardService) presignExpiry() time.Duration {
	if s.config.S3PresignExpiry <= 0 {
		return 15 * time.Minute
	}
	return s.config.S3PresignExpiry
}

func (s *RewardService) presignImage(ctx context.Context, pc *s3.PresignClient, key string) (string, error) {
	bucket := s.config.S3Bucket
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.presignExpiry()))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
