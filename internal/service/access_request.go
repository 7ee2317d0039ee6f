package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sealdrop/sealdrop/internal/model"
	"github.com/sealdrop/sealdrop/internal/repository"
)

// AccessRequestService handles the ask/approve/deny flow for viewers who
// are not on a file's allow list.
type AccessRequestService struct {
	requestRepo repository.AccessRequestRepository
	fileRepo    repository.FileRepository
	userRepo    repository.UserRepository
	audit       *AuditService
	email       *EmailService
}

func NewAccessRequestService(
	requestRepo repository.AccessRequestRepository,
	fileRepo repository.FileRepository,
	userRepo repository.UserRepository,
	audit *AuditService,
	email *EmailService,
) *AccessRequestService {
	return &AccessRequestService{
		requestRepo: requestRepo,
		fileRepo:    fileRepo,
		userRepo:    userRepo,
		audit:       audit,
		email:       email,
	}
}

// Create records a pending request and notifies the owner. One request per
// (file, viewer) pair; a repeat ask returns the existing one unchanged.
func (s *AccessRequestService) Create(fileID string, viewer Viewer) (*model.AccessRequest, error) {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		return nil, err
	}
	if file.IsDestroyed {
		return nil, ErrFileDestroyed
	}
	if !file.RequireApproval {
		return nil, ErrApprovalDisabled
	}

	existing, err := s.requestRepo.ByFileAndEmail(fileID, viewer.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrRequestNotFound) {
		return nil, err
	}

	request := &model.AccessRequest{
		ID:          uuid.New().String(),
		FileID:      fileID,
		Email:       viewer.Email,
		Name:        viewer.Name,
		Status:      model.RequestPending,
		Fingerprint: viewer.Fingerprint,
		IPAddress:   viewer.IPAddress,
		Country:     viewer.Country,
		CreatedAt:   time.Now(),
	}

	err = s.requestRepo.Create(request)
	if err != nil {
		return nil, fmt.Errorf("failed to create access request: %w", err)
	}

	s.audit.Record(Entry{
		FileID:    fileID,
		RequestID: request.ID,
		Actor:     viewer.Email,
		Action:    model.ActionRequestCreated,
		IPAddress: viewer.IPAddress,
		Country:   viewer.Country,
	})

	go s.notifyOwner(file, viewer.Email)

	return request, nil
}

// Approve moves a pending request to approved, exactly once.
func (s *AccessRequestService) Approve(requestID, ownerID string) error {
	return s.decide(requestID, ownerID, model.RequestApproved, model.ActionRequestApproved)
}

// Deny moves a pending request to denied, exactly once.
func (s *AccessRequestService) Deny(requestID, ownerID string) error {
	return s.decide(requestID, ownerID, model.RequestDenied, model.ActionRequestDenied)
}

func (s *AccessRequestService) decide(requestID, ownerID, status, action string) error {
	request, err := s.requestRepo.ByID(requestID)
	if err != nil {
		return err
	}

	file, err := s.fileRepo.ByID(request.FileID)
	if err != nil {
		return err
	}
	if file.OwnerID != ownerID {
		return ErrNotOwner
	}

	err = s.requestRepo.Decide(requestID, status, time.Now())
	if err != nil {
		return err
	}

	s.audit.Record(Entry{
		FileID:    request.FileID,
		RequestID: requestID,
		Actor:     ownerID,
		Action:    action,
		Detail:    request.Email,
	})

	return nil
}

// ByFile lists a file's requests for its owner.
func (s *AccessRequestService) ByFile(fileID, ownerID string) ([]*model.AccessRequest, error) {
	file, err := s.fileRepo.ByID(fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return s.requestRepo.ByFile(fileID)
}

// Delete purges a request plus its audit rows. Record cleanup only; a
// denied viewer can simply be left denied.
func (s *AccessRequestService) Delete(requestID, ownerID string) error {
	request, err := s.requestRepo.ByID(requestID)
	if err != nil {
		return err
	}

	file, err := s.fileRepo.ByID(request.FileID)
	if err != nil {
		return err
	}
	if file.OwnerID != ownerID {
		return ErrNotOwner
	}

	s.audit.PurgeForRequest(requestID)
	return s.requestRepo.Delete(requestID)
}

func (s *AccessRequestService) notifyOwner(file *model.File, requesterEmail string) {
	owner, err := s.userRepo.ByID(file.OwnerID)
	if err != nil {
		slog.Error("request notification: owner lookup failed", "owner_id", file.OwnerID, "error", err)
		return
	}
	s.email.SendAccessRequestNotification(owner.Email, file.OriginalName, requesterEmail)
}
