package repository

import (
	"context"

	"investorportal/internal/model"

	"gorm.io/gorm"
)

// InvestorRepository defines the interface for data access of Investor entities
type InvestorRepository interface {
	Create(ctx context.Context, inv *model.Investor) error
	GetByID(ctx context.Context, id string) (*model.Investor, error)
	GetByPhone(ctx context.Context, phone string) (*model.Investor, error)
	Update(ctx context.Context, inv *model.Investor) error

	CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error)
	DeleteRefreshToken(ctx context.Context, token string) error
}

type investorRepository struct {
	db *gorm.DB
}

// NewInvestorRepository returns a new instance of InvestorRepository
func NewInvestorRepository(db *gorm.DB) InvestorRepository {
	return &investorRepository{db: db}
}

func (r *investorRepository) Create(ctx context.Context, inv *model.Investor) error {
	return GetDB(ctx, r.db).Create(inv).Error
}

func (r *investorRepository) GetByID(ctx context.Context, id string) (*model.Investor, error) {
	var inv model.Investor
	if err := GetDB(ctx, r.db).First(&inv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *investorRepository) GetByPhone(ctx context.Context, phone string) (*model.Investor, error) {
	var inv model.Investor
	if err := GetDB(ctx, r.db).First(&inv, "phone = ?", phone).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *investorRepository) Update(ctx context.Context, inv *model.Investor) error {
	return GetDB(ctx, r.db).Save(inv).Error
}

func (r *investorRepository) CreateRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	return GetDB(ctx, r.db).Create(token).Error
}

func (r *investorRepository) GetRefreshToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var rt model.RefreshToken
	if err := GetDB(ctx, r.db).First(&rt, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *investorRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	return GetDB(ctx, r.db).Where("token = ?", token).Delete(&model.RefreshToken{}).Error
}
