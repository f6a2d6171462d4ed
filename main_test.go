package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-cognito/pkce-cli/secrets"
)

func TestGetConfig(t *testing.T) {
	tests := []struct {
		name         string
		flagValue    string
		envValue     string
		defaultValue string
		want         string
	}{
		{
			name:         "flag wins over env and default",
			flagValue:    "from-flag",
			envValue:     "from-env",
			defaultValue: "from-default",
			want:         "from-flag",
		},
		{
			name:         "env wins over default",
			flagValue:    "",
			envValue:     "from-env",
			defaultValue: "from-default",
			want:         "from-env",
		},
		{
			name:         "default when flag and env are empty",
			flagValue:    "",
			envValue:     "",
			defaultValue: "from-default",
			want:         "from-default",
		},
		{
			name:         "empty when nothing is set",
			flagValue:    "",
			envValue:     "",
			defaultValue: "",
			want:         "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const envKey = "PKCE_CLI_TEST_CONFIG"
			if tt.envValue != "" {
				t.Setenv(envKey, tt.envValue)
			} else {
				os.Unsetenv(envKey)
			}

			if got := getConfig(tt.flagValue, envKey, tt.defaultValue); got != tt.want {
				t.Errorf("getConfig() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name:    "valid https URL",
			url:     "https://example.auth.eu-west-1.amazoncognito.com",
			wantErr: false,
		},
		{
			name:    "valid http URL",
			url:     "http://localhost:8080",
			wantErr: false,
		},
		{
			name:    "empty URL",
			url:     "",
			wantErr: true,
		},
		{
			name:    "missing scheme",
			url:     "example.com",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			url:     "ftp://example.com",
			wantErr: true,
		},
		{
			name:    "missing host",
			url:     "https://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBaseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateBaseURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestNewSecretStore(t *testing.T) {
	// TOKEN_FILE set: file backend
	tokenFile = filepath.Join(t.TempDir(), "secrets.json")
	if _, ok := newSecretStore().(*secrets.FileStore); !ok {
		t.Errorf("Expected FileStore when token file is configured")
	}

	// Unset: OS keyring backend
	tokenFile = ""
	if _, ok := newSecretStore().(*secrets.KeyringStore); !ok {
		t.Errorf("Expected KeyringStore by default")
	}
}
