package api

import (
	"net/http/httptest"
	"testing"
)

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name      string
		provided  string
		configKey string
		want      bool
	}{
		{"matching keys", "secret123", "secret123", true},
		{"mismatched keys", "wrong", "secret123", false},
		{"empty config key never matches", "anything", "", false},
		{"empty provided key", "", "secret123", false},
		{"both empty", "", "", false},
		{"length mismatch", "secret", "secret123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAPIKey(tt.provided, tt.configKey); got != tt.want {
				t.Errorf("ValidateAPIKey(%q, %q) = %v, want %v", tt.provided, tt.configKey, got, tt.want)
			}
		})
	}
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"valid bearer", "Bearer secret123", "secret123", false},
		{"missing header", "", "", true},
		{"wrong scheme", "Basic secret123", "", true},
		{"bearer with whitespace key", "Bearer   ", "", true},
		{"bearer trims surrounding space", "Bearer  secret123 ", "secret123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/v1/status", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractAPIKey(r)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractAPIKey: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
