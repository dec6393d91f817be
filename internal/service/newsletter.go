package service

import (
	"context"
	"fmt"
	"strings"

	"prompt-storefront/internal/cryptox"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/logging"
	"prompt-storefront/internal/model"
	"prompt-storefront/internal/repository"
)

type NewsletterService interface {
	Subscribe(ctx context.Context, req *dto.NewsletterRequest) (*dto.NewsletterResponse, error)
}

type newsletterServiceImpl struct {
	log            logging.Logger
	cipher         *cryptox.FieldCipher
	newsletterRepo repository.NewsletterRepository
}

func NewNewsletterService(log logging.Logger, cipher *cryptox.FieldCipher, newsletterRepo repository.NewsletterRepository) NewsletterService {
	return &newsletterServiceImpl{
		log:            log,
		cipher:         cipher,
		newsletterRepo: newsletterRepo,
	}
}

func (s *newsletterServiceImpl) Subscribe(ctx context.Context, req *dto.NewsletterRequest) (*dto.NewsletterResponse, error) {
	email := cryptox.NormalizeEmail(req.Email)

	encrypted, err := s.cipher.Encrypt(email)
	if err != nil {
		return nil, fmt.Errorf("encrypt email: %w", err)
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "website"
	}

	created, err := s.newsletterRepo.Subscribe(ctx, &model.NewsletterSignup{
		EmailHash:      s.cipher.HashEmail(email),
		EmailEncrypted: encrypted,
		Source:         source,
	})
	if err != nil {
		return nil, fmt.Errorf("store newsletter signup: %w", err)
	}

	if created {
		s.log.Info(ctx, "newsletter signup", "source", source)
	}

	return &dto.NewsletterResponse{
		Subscribed:        true,
		AlreadySubscribed: !created,
	}, nil
}
