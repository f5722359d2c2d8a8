package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"investorportal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Fakes ---

type fakeCodeStore struct {
	values   map[string]string
	counters map[string]int64
}

func newFakeCodeStore() *fakeCodeStore {
	return &fakeCodeStore{
		values:   make(map[string]string),
		counters: make(map[string]int64),
	}
}

func (s *fakeCodeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.values[key] = value.(string)
	return nil
}

func (s *fakeCodeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", errors.New("cache: key not found")
	}
	return v, nil
}

func (s *fakeCodeStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.values, k)
		delete(s.counters, k)
	}
	return nil
}

func (s *fakeCodeStore) Incr(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.counters[key]++
	return s.counters[key], nil
}

type fakeInvestorRepo struct {
	investors map[string]*model.Investor // keyed by phone
	tokens    map[string]*model.RefreshToken
}

func newFakeInvestorRepo() *fakeInvestorRepo {
	return &fakeInvestorRepo{
		investors: make(map[string]*model.Investor),
		tokens:    make(map[string]*model.RefreshToken),
	}
}

func (r *fakeInvestorRepo) Create(_ context.Context, inv *model.Investor) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()
	r.investors[inv.Phone] = inv
	return nil
}

func (r *fakeInvestorRepo) GetByID(_ context.Context, id string) (*model.Investor, error) {
	for _, inv := range r.investors {
		if inv.ID.String() == id {
			return inv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvestorRepo) GetByPhone(_ context.Context, phone string) (*model.Investor, error) {
	inv, ok := r.investors[phone]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return inv, nil
}

func (r *fakeInvestorRepo) Update(_ context.Context, inv *model.Investor) error {
	r.investors[inv.Phone] = inv
	return nil
}

func (r *fakeInvestorRepo) CreateRefreshToken(_ context.Context, token *model.RefreshToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeInvestorRepo) GetRefreshToken(_ context.Context, token string) (*model.RefreshToken, error) {
	rt, ok := r.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rt, nil
}

func (r *fakeInvestorRepo) DeleteRefreshToken(_ context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

type captureSender struct {
	phone string
	code  string
}

func (s *captureSender) SendOtp(_ context.Context, phoneE164, code string) error {
	s.phone = phoneE164
	s.code = code
	return nil
}

// --- Tests ---

func TestRequestOtpStoresAndSendsCode(t *testing.T) {
	codes := newFakeCodeStore()
	sender := &captureSender{}
	svc := NewAuthService(newFakeInvestorRepo(), codes, sender)

	err := svc.RequestOtp(context.Background(), RequestOtpRequest{Phone: "+971 50 123 4567"})
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if sender.phone != "+971501234567" {
		t.Fatalf("expected normalized phone, got %q", sender.phone)
	}
	if len(sender.code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", sender.code)
	}
	if stored := codes.values["otp:code:+971501234567"]; stored != sender.code {
		t.Fatalf("stored code %q does not match sent code %q", stored, sender.code)
	}
}

func TestRequestOtpRateLimit(t *testing.T) {
	codes := newFakeCodeStore()
	svc := NewAuthService(newFakeInvestorRepo(), codes, &captureSender{})

	req := RequestOtpRequest{Phone: "+971501234567"}
	for i := 0; i < otpRequestLimit; i++ {
		if err := svc.RequestOtp(context.Background(), req); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	err := svc.RequestOtp(context.Background(), req)
	if !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests, got %v", err)
	}
}

func TestRequestOtpRejectsBadPhone(t *testing.T) {
	svc := NewAuthService(newFakeInvestorRepo(), newFakeCodeStore(), &captureSender{})
	if err := svc.RequestOtp(context.Background(), RequestOtpRequest{Phone: "12345"}); err == nil {
		t.Fatal("expected error for short phone number")
	}
}

func TestVerifyOtpCreatesInvestorAndIssuesTokens(t *testing.T) {
	codes := newFakeCodeStore()
	sender := &captureSender{}
	repo := newFakeInvestorRepo()
	svc := NewAuthService(repo, codes, sender)

	if err := svc.RequestOtp(context.Background(), RequestOtpRequest{Phone: "+971501234567"}); err != nil {
		t.Fatalf("request otp: %v", err)
	}

	resp, err := svc.VerifyOtp(context.Background(), VerifyOtpRequest{Phone: "+971501234567", Code: sender.code})
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		t.Fatalf("expected tokens, got %+v", resp)
	}
	if resp.Investor == nil || resp.Investor.Role != model.RoleInvestor {
		t.Fatalf("expected a new investor record, got %+v", resp.Investor)
	}
	if _, ok := repo.investors["+971501234567"]; !ok {
		t.Fatal("investor was not created")
	}

	// The code is single-use.
	if _, err := svc.VerifyOtp(context.Background(), VerifyOtpRequest{Phone: "+971501234567", Code: sender.code}); !errors.Is(err, ErrInvalidOtp) {
		t.Fatalf("expected ErrInvalidOtp on reuse, got %v", err)
	}
}

func TestVerifyOtpWrongCode(t *testing.T) {
	codes := newFakeCodeStore()
	sender := &captureSender{}
	svc := NewAuthService(newFakeInvestorRepo(), codes, sender)

	_ = svc.RequestOtp(context.Background(), RequestOtpRequest{Phone: "+971501234567"})

	_, err := svc.VerifyOtp(context.Background(), VerifyOtpRequest{Phone: "+971501234567", Code: "000000"})
	if !errors.Is(err, ErrInvalidOtp) {
		t.Fatalf("expected ErrInvalidOtp, got %v", err)
	}
}

func TestVerifyOtpAttemptLimitBurnsCode(t *testing.T) {
	codes := newFakeCodeStore()
	sender := &captureSender{}
	svc := NewAuthService(newFakeInvestorRepo(), codes, sender)

	_ = svc.RequestOtp(context.Background(), RequestOtpRequest{Phone: "+971501234567"})

	req := VerifyOtpRequest{Phone: "+971501234567", Code: "000000"}
	for i := 0; i < otpAttemptLimit; i++ {
		if _, err := svc.VerifyOtp(context.Background(), req); !errors.Is(err, ErrInvalidOtp) {
			t.Fatalf("attempt %d: expected ErrInvalidOtp, got %v", i+1, err)
		}
	}

	_, err := svc.VerifyOtp(context.Background(), req)
	if !errors.Is(err, ErrTooManyRequests) {
		t.Fatalf("expected ErrTooManyRequests after limit, got %v", err)
	}

	// Even the correct code no longer works; a fresh request is required.
	req.Code = sender.code
	if _, err := svc.VerifyOtp(context.Background(), req); err == nil {
		t.Fatal("expected burned code to be rejected")
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	codes := newFakeCodeStore()
	sender := &captureSender{}
	repo := newFakeInvestorRepo()
	svc := NewAuthService(repo, codes, sender)

	_ = svc.RequestOtp(context.Background(), RequestOtpRequest{Phone: "+971501234567"})
	first, err := svc.VerifyOtp(context.Background(), VerifyOtpRequest{Phone: "+971501234567", Code: sender.code})
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	second, err := svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: first.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("expected refresh token rotation")
	}

	// The spent token is gone.
	if _, err := svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: first.RefreshToken}); err == nil {
		t.Fatal("expected spent refresh token to be rejected")
	}
}

func TestRefreshTokenExpired(t *testing.T) {
	repo := newFakeInvestorRepo()
	svc := NewAuthService(repo, newFakeCodeStore(), &captureSender{})

	inv := &model.Investor{Phone: "+971501234567", Role: model.RoleInvestor}
	_ = repo.Create(context.Background(), inv)
	_ = repo.CreateRefreshToken(context.Background(), &model.RefreshToken{
		InvestorID: inv.ID,
		Token:      "expired-token",
		ExpiresAt:  time.Now().Add(-time.Hour),
	})

	if _, err := svc.RefreshToken(context.Background(), RefreshTokenRequest{RefreshToken: "expired-token"}); err == nil {
		t.Fatal("expected expired refresh token to be rejected")
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+971501234567", "+971501234567", false},
		{" +971 50 123 4567 ", "+971501234567", false},
		{"971-50-123-4567", "+971501234567", false},
		{"12345", "", true},
		{"1234567890123456", "", true},
	}
	for _, tc := range cases {
		got, err := normalizePhone(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("normalizePhone(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("normalizePhone(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("normalizePhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
