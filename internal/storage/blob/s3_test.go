// internal/storage/blob/s3_test.go
package blob

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestS3Storage_ImplementsStorage(t *testing.T) {
	var _ Storage = (*S3Storage)(nil)
}

func TestS3Config_Key(t *testing.T) {
	tests := []struct {
		prefix string
		path   string
		want   string
	}{
		{"", "tradingSignals.json", "tradingSignals.json"},
		{"users/42", "token.json", "users/42/token.json"},
		{"users/42/", "token.json", "users/42/token.json"},
	}

	for _, tt := range tests {
		s := &S3Storage{prefix: strings.TrimSuffix(tt.prefix, "/")}
		got := s.key(tt.path)
		if got != tt.want {
			t.Errorf("key(%q) with prefix %q = %q, want %q", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestS3_IsNotFound(t *testing.T) {
	if !isNotFound(fmt.Errorf("get: %w", &types.NoSuchKey{})) {
		t.Error("NoSuchKey should be not found")
	}
	if !isNotFound(&types.NotFound{}) {
		t.Error("NotFound should be not found")
	}
	if !isNotFound(errors.New("operation error S3: HeadObject, StatusCode: 404")) {
		t.Error("404 status should be not found")
	}
	if isNotFound(errors.New("access denied")) {
		t.Error("access denied is not a missing object")
	}
}

func TestNewS3(t *testing.T) {
	s, err := NewS3(S3Config{Bucket: "signaldesk", Region: "us-east-1", Endpoint: "http://localhost:9000", Prefix: "cache/"})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	if s.bucket != "signaldesk" || s.prefix != "cache" {
		t.Errorf("unexpected storage %+v", s)
	}
}
