package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"
	"time"

	"investorportal/internal/model"
	"investorportal/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const (
	otpTTL             = 5 * time.Minute
	otpRequestWindow   = 10 * time.Minute
	otpRequestLimit    = 5
	otpAttemptLimit    = 5
	accessTokenTTL     = 24 * time.Hour
	refreshTokenTTL    = 7 * 24 * time.Hour
	refreshTokenLength = 32
)

// DTOs for Request validation
type RequestOtpRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type VerifyOtpRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type InvestorResponse struct {
	ID        string `json:"id"`
	Phone     string `json:"phone"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type TokenResponse struct {
	Token        string            `json:"token"`
	RefreshToken string            `json:"refresh_token"`
	Investor     *InvestorResponse `json:"investor,omitempty"`
}

// OtpSender delivers a one-time code to a phone number. The SMS gateway is an
// external collaborator; this repo ships a log-based sender for development.
type OtpSender interface {
	SendOtp(ctx context.Context, phoneE164, code string) error
}

type logOtpSender struct{}

// NewLogOtpSender returns a sender that writes codes to the process log.
func NewLogOtpSender() OtpSender {
	return logOtpSender{}
}

func (logOtpSender) SendOtp(_ context.Context, phoneE164, code string) error {
	log.Printf("OTP for %s: %s", phoneE164, code)
	return nil
}

// CodeStore is the cache surface the auth service needs (satisfied by
// cache.Client). Keys expire server-side; nothing here is long-lived.
type CodeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// AuthService implements phone-OTP authentication: request a code, verify it,
// then standard JWT access/refresh token handling as elsewhere in the stack.
type AuthService interface {
	RequestOtp(ctx context.Context, req RequestOtpRequest) error
	VerifyOtp(ctx context.Context, req VerifyOtpRequest) (*TokenResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetInvestorByID(ctx context.Context, id string) (*InvestorResponse, error)
}

type authService struct {
	repo   repository.InvestorRepository
	codes  CodeStore
	sender OtpSender
}

// NewAuthService returns a new instance of AuthService
func NewAuthService(repo repository.InvestorRepository, codes CodeStore, sender OtpSender) AuthService {
	return &authService{repo: repo, codes: codes, sender: sender}
}

func (s *authService) RequestOtp(ctx context.Context, req RequestOtpRequest) error {
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return err
	}

	count, err := s.codes.Incr(ctx, "otp:req:"+phone, otpRequestWindow)
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count > otpRequestLimit {
		return fmt.Errorf("%w: try again later", ErrTooManyRequests)
	}

	code, err := generateOtpCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.codes.Set(ctx, "otp:code:"+phone, code, otpTTL); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}
	// Fresh code resets the attempt counter.
	_ = s.codes.Del(ctx, "otp:attempts:"+phone)

	return s.sender.SendOtp(ctx, phone, code)
}

func (s *authService) VerifyOtp(ctx context.Context, req VerifyOtpRequest) (*TokenResponse, error) {
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return nil, err
	}

	attempts, err := s.codes.Incr(ctx, "otp:attempts:"+phone, otpRequestWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to check attempts: %w", err)
	}
	if attempts > otpAttemptLimit {
		// Burn the code: a fresh request is required after the limit.
		_ = s.codes.Del(ctx, "otp:code:"+phone)
		return nil, fmt.Errorf("%w: verification attempts exceeded", ErrTooManyRequests)
	}

	stored, err := s.codes.Get(ctx, "otp:code:"+phone)
	if err != nil {
		return nil, ErrInvalidOtp
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(req.Code)) != 1 {
		return nil, ErrInvalidOtp
	}

	// Code is single-use.
	_ = s.codes.Del(ctx, "otp:code:"+phone, "otp:attempts:"+phone)

	investor, err := s.repo.GetByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		investor = &model.Investor{Phone: phone, Role: model.RoleInvestor}
		if createErr := s.repo.Create(ctx, investor); createErr != nil {
			return nil, fmt.Errorf("failed to create investor: %w", createErr)
		}
	}

	return s.issueTokens(ctx, investor)
}

func (s *authService) RefreshToken(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	rt, err := s.repo.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, errors.New("invalid refresh token")
	}
	if time.Now().After(rt.ExpiresAt) {
		_ = s.repo.DeleteRefreshToken(ctx, rt.Token)
		return nil, errors.New("refresh token expired")
	}

	investor, err := s.repo.GetByID(ctx, rt.InvestorID.String())
	if err != nil {
		return nil, errors.New("investor not found")
	}

	// Rotate: the old token is spent.
	if err := s.repo.DeleteRefreshToken(ctx, rt.Token); err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return s.issueTokens(ctx, investor)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteRefreshToken(ctx, refreshToken)
}

func (s *authService) GetInvestorByID(ctx context.Context, id string) (*InvestorResponse, error) {
	investor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: investor %s", ErrNotFound, id)
	}
	return toInvestorResponse(investor), nil
}

// --- Helpers ---

func (s *authService) issueTokens(ctx context.Context, investor *model.Investor) (*TokenResponse, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  investor.ID.String(),
		"role": investor.Role,
		"exp":  now.Add(accessTokenTTL).Unix(),
		"iat":  now.Unix(),
	})

	// Use same fallback strategy as middleware for simplicity here or get from env centrally
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	raw := make([]byte, refreshTokenLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.New("failed to generate refresh token")
	}
	refresh := &model.RefreshToken{
		InvestorID: investor.ID,
		Token:      hex.EncodeToString(raw),
		ExpiresAt:  now.Add(refreshTokenTTL),
	}
	if err := s.repo.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &TokenResponse{
		Token:        tokenString,
		RefreshToken: refresh.Token,
		Investor:     toInvestorResponse(investor),
	}, nil
}

func toInvestorResponse(inv *model.Investor) *InvestorResponse {
	return &InvestorResponse{
		ID:        inv.ID.String(),
		Phone:     inv.Phone,
		FullName:  inv.FullName,
		Email:     inv.Email,
		Role:      inv.Role,
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
	}
}

// normalizePhone expects a full international number and returns it in
// E.164 form (+digits, 8..15 digits).
func normalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	n := digits.Len()
	if n < 8 || n > 15 {
		return "", errors.New("invalid phone number: expected international format, e.g. +971501234567")
	}
	return "+" + digits.String(), nil
}

func generateOtpCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
