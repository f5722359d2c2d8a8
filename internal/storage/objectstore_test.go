package storage

import (
	"context"
	"strings"
	"testing"
)

func TestPublicURLWithBaseURL(t *testing.T) {
	s, err := NewObjectStore(context.Background(), Config{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          "investor-documents",
		Prefix:          "submissions/",
		PublicBaseURL:   "https://files.example.com/",
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	got := s.PublicURL("submissions/abc_agreement.pdf")
	want := "https://files.example.com/investor-documents/submissions/abc_agreement.pdf"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestPublicURLFromEndpoint(t *testing.T) {
	s, err := NewObjectStore(context.Background(), Config{
		Endpoint:        "localhost:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          "investor-documents",
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if got := s.PublicURL("k.pdf"); got != "http://localhost:9000/investor-documents/k.pdf" {
		t.Fatalf("unexpected url %s", got)
	}

	secure, err := NewObjectStore(context.Background(), Config{
		Endpoint:        "s3.example.com",
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		Bucket:          "investor-documents",
		UseSSL:          true,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if got := secure.PublicURL("k.pdf"); !strings.HasPrefix(got, "https://") {
		t.Fatalf("expected https url, got %s", got)
	}
}
