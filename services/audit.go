package services

import (
	"time"

	"activation_server/domain"
	"activation_server/dtos/request"
	"activation_server/dtos/response"
	"activation_server/repository"

	"gorm.io/gorm"
)

// IAuditService records activation history and signature audit entries and
// serves the audit read side. Writes happen inside the caller's
// transaction, so an aborted state change never leaves an orphaned record.
type IAuditService interface {
	LogActivationStatusChange(tx *gorm.DB, activation *domain.Activation, now time.Time) error
	LogSignatureAudit(tx *gorm.DB, entry *domain.SignatureAudit) error
	GetSignatureAuditLog(req *request.GetSignatureAuditRequest) (*response.GetSignatureAuditResponse, error)
}

type AuditService struct {
	db    *gorm.DB
	runTx TxRunner
	repo  repository.IAuditRepository
	clock Clock
}

func NewAuditService(db *gorm.DB, runTx TxRunner, repo repository.IAuditRepository, clock Clock) IAuditService {
	return &AuditService{db: db, runTx: runTx, repo: repo, clock: clock}
}

func (s *AuditService) LogActivationStatusChange(tx *gorm.DB, activation *domain.Activation, now time.Time) error {
	entry := &domain.ActivationHistory{
		ActivationId:     activation.ActivationId,
		ActivationStatus: activation.ActivationStatus,
		BlockedReason:    activation.BlockedReason,
		TimestampCreated: &now,
	}
	return s.repo.CreateActivationHistory(tx, entry)
}

func (s *AuditService) LogSignatureAudit(tx *gorm.DB, entry *domain.SignatureAudit) error {
	if entry.TimestampCreated == nil {
		now := s.clock.Now()
		entry.TimestampCreated = &now
	}
	return s.repo.CreateSignatureAudit(tx, entry)
}

func (s *AuditService) GetSignatureAuditLog(req *request.GetSignatureAuditRequest) (*response.GetSignatureAuditResponse, error) {
	from := time.Unix(0, 0)
	to := s.clock.Now()
	if req.TimestampFrom > 0 {
		from = time.UnixMilli(req.TimestampFrom)
	}
	if req.TimestampTo > 0 {
		to = time.UnixMilli(req.TimestampTo)
	}

	records, err := s.repo.ListSignatureAudit(s.db, req.UserId, req.ApplicationId, from, to)
	if err != nil {
		return nil, err
	}

	resp := &response.GetSignatureAuditResponse{Items: make([]response.SignatureAuditItem, 0, len(records))}
	for _, record := range records {
		resp.Items = append(resp.Items, response.SignatureAuditItem{
			ActivationId:      record.ActivationId,
			UserId:            record.UserId,
			ApplicationId:     record.ApplicationId,
			ActivationCounter: record.ActivationCounter,
			SignatureType:     record.SignatureType,
			Signature:         record.Signature,
			DataHash:          record.DataHash,
			Valid:             record.Valid,
			Note:              record.Note,
			TimestampCreated:  *record.TimestampCreated,
		})
	}
	return resp, nil
}
