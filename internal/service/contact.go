package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"prompt-storefront/internal/common"
	"prompt-storefront/internal/cryptox"
	"prompt-storefront/internal/dto"
	"prompt-storefront/internal/logging"
	"prompt-storefront/internal/model"
	"prompt-storefront/internal/repository"
)

const (
	contactWindow      = time.Hour
	contactMaxInWindow = 5
)

type ContactService interface {
	Submit(ctx context.Context, userID string, req *dto.ContactRequest) (*dto.ContactResponse, error)
}

type contactServiceImpl struct {
	log         logging.Logger
	cipher      *cryptox.FieldCipher
	contactRepo repository.ContactRepository
}

func NewContactService(log logging.Logger, cipher *cryptox.FieldCipher, contactRepo repository.ContactRepository) ContactService {
	return &contactServiceImpl{
		log:         log,
		cipher:      cipher,
		contactRepo: contactRepo,
	}
}

// Submit stores a contact form message. userID is empty for anonymous senders.
func (s *contactServiceImpl) Submit(ctx context.Context, userID string, req *dto.ContactRequest) (*dto.ContactResponse, error) {
	name := strings.TrimSpace(req.Name)
	message := strings.TrimSpace(req.Message)
	if name == "" || message == "" {
		return nil, fmt.Errorf("%w: name and message are required", common.ErrValidation)
	}

	emailHash := s.cipher.HashEmail(req.Email)

	recent, err := s.contactRepo.CountSince(ctx, emailHash, time.Now().Add(-contactWindow))
	if err != nil {
		return nil, fmt.Errorf("count recent messages: %w", err)
	}
	if recent >= contactMaxInWindow {
		return nil, fmt.Errorf("%w: too many messages, try again later", common.ErrRateLimited)
	}

	encrypted, err := s.cipher.Encrypt(cryptox.NormalizeEmail(req.Email))
	if err != nil {
		return nil, fmt.Errorf("encrypt email: %w", err)
	}

	msg := &model.ContactMessage{
		Name:           name,
		EmailEncrypted: encrypted,
		EmailHash:      emailHash,
		Subject:        strings.TrimSpace(req.Subject),
		Message:        message,
		UserID:         userID,
	}
	if err := s.contactRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("store contact message: %w", err)
	}

	s.log.Info(ctx, "contact message received", "message_id", msg.ID)

	return &dto.ContactResponse{Received: true}, nil
}
