package service

import (
	"context"

	"investorportal/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	InvestorID string `json:"investor_id"`
	Actor      string `json:"actor"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs retrieves strictly paginated records with actors pre-loaded
func (s *auditService) GetAuditLogs(ctx context.Context, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		actor := "System"
		investorID := ""
		if l.Investor != nil {
			actor = l.Investor.Phone
			if l.Investor.FullName != "" {
				actor = l.Investor.FullName
			}
		}
		if l.InvestorID != nil {
			investorID = l.InvestorID.String()
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			InvestorID: investorID,
			Actor:      actor,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    l.Details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}
