package service

import (
	"context"
	"fmt"
	"time"

	"prompt-storefront/internal/client"
	"prompt-storefront/internal/common"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/logging"
	"prompt-storefront/internal/repository"
)

type DownloadService interface {
	PackDownload(ctx context.Context, userID, packID string) (*dto.DownloadResponse, error)
}

type downloadServiceImpl struct {
	log           logging.Logger
	storageClient client.StorageClient
	ttl           time.Duration
	catalogRepo   repository.CatalogRepository
	userService   UserService
}

// NewDownloadService accepts a nil storageClient; downloads then fail with
// ErrUnavailable.
func NewDownloadService(
	log logging.Logger,
	storageClient client.StorageClient,
	ttl time.Duration,
	catalogRepo repository.CatalogRepository,
	userService UserService,
) DownloadService {
	return &downloadServiceImpl{
		log:           log,
		storageClient: storageClient,
		ttl:           ttl,
		catalogRepo:   catalogRepo,
		userService:   userService,
	}
}

func (s *downloadServiceImpl) PackDownload(ctx context.Context, userID, packID string) (*dto.DownloadResponse, error) {
	pack, err := s.catalogRepo.FindPack(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("get pack: %w", err)
	}

	ok, err := s.userService.CanDownloadPack(ctx, userID, pack.ID)
	if err != nil {
		return nil, fmt.Errorf("check pack access: %w", err)
	}
	if !ok {
		return nil, common.ErrNotEntitled
	}

	if pack.AssetKey == "" {
		return nil, fmt.Errorf("%w: pack has no download", common.ErrNotFound)
	}
	if s.storageClient == nil {
		return nil, fmt.Errorf("%w: downloads are not configured", common.ErrUnavailable)
	}

	expiresAt := time.Now().Add(s.ttl).UTC()
	link, err := s.storageClient.PresignGet(ctx, pack.AssetKey, s.ttl)
	if err != nil {
		s.log.Error(ctx, "presign pack download", "pack_id", pack.ID, "error", err)
		return nil, fmt.Errorf("%w: could not create download link", common.ErrUnavailable)
	}

	s.log.Info(ctx, "pack download issued", "pack_id", pack.ID, "user_id", userID)

	return &dto.DownloadResponse{URL: link, ExpiresAt: expiresAt}, nil
}
