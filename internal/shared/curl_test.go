package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseCurlCommand(t *testing.T) {
	t.Run("token from a header", func(t *testing.T) {
		cmd := `curl 'http://localhost:32400/library/sections' \
  -H 'Accept: application/json' \
  -H 'X-Plex-Token: abc123'`

		parsed, err := ParseCurlCommand([]byte(cmd))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if parsed.Token != "abc123" {
			t.Errorf("expected token abc123, got %q", parsed.Token)
		}
		if parsed.Headers["Accept"] != "application/json" {
			t.Errorf("expected headers captured, got %v", parsed.Headers)
		}
	})

	t.Run("header lookup is case-insensitive", func(t *testing.T) {
		cmd := `curl 'http://localhost:32400/' -H 'x-plex-token: abc123'`
		parsed, err := ParseCurlCommand([]byte(cmd))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if parsed.Token != "abc123" {
			t.Errorf("expected token abc123, got %q", parsed.Token)
		}
	})

	t.Run("token from the url query", func(t *testing.T) {
		cmd := `curl 'http://localhost:32400/library/sections?X-Plex-Token=xyz789' -H 'Accept: application/json'`
		parsed, err := ParseCurlCommand([]byte(cmd))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if parsed.Token != "xyz789" {
			t.Errorf("expected token xyz789, got %q", parsed.Token)
		}
	})

	t.Run("no token anywhere", func(t *testing.T) {
		cmd := `curl 'http://localhost:32400/' -H 'Accept: application/json'`
		if _, err := ParseCurlCommand([]byte(cmd)); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestParseCurlFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.curl")
	cmd := `curl 'http://localhost:32400/' -H 'X-Plex-Token: file-token'`
	if err := os.WriteFile(path, []byte(cmd), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	parsed, err := ParseCurlFile(path)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if parsed.Token != "file-token" {
		t.Errorf("expected file-token, got %q", parsed.Token)
	}

	if _, err := ParseCurlFile(filepath.Join(t.TempDir(), "missing.curl")); err == nil {
		t.Error("expected error for a missing file")
	}
}
