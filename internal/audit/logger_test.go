package audit

import (
	"context"
	"errors"
	"testing"

	"github.com/meisaku0/backend/internal/audit/domain"
)

// mockAuditRepo implements audit repository interface for tests.
type mockAuditRepo struct {
	entries   []*domain.AuditLog
	createErr error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func TestLogger_LogEvent_Success(t *testing.T) {
	repo := &mockAuditRepo{}
	logger := NewLogger(repo, func(ctx context.Context) string { return "192.168.1.1" })

	logger.LogEvent(context.Background(), "user-1", domain.ActionSignIn, domain.ResourceSession, "session-1")

	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.UserID != "user-1" {
		t.Errorf("user_id = %q, want %q", entry.UserID, "user-1")
	}
	if entry.Action != domain.ActionSignIn {
		t.Errorf("action = %q, want %q", entry.Action, domain.ActionSignIn)
	}
	if entry.Resource != domain.ResourceSession {
		t.Errorf("resource = %q, want %q", entry.Resource, domain.ResourceSession)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != "session-1" {
		t.Errorf("metadata = %q, want %q", entry.Metadata, "session-1")
	}
	if entry.ID == "" {
		t.Error("entry ID should be set")
	}
	if entry.CreatedAt.IsZero() {
		t.Error("entry CreatedAt should be set")
	}
}

func TestLogger_LogEvent_UnknownIP(t *testing.T) {
	for name, extractor := range map[string]IPExtractor{
		"nil extractor":   nil,
		"empty extractor": func(context.Context) string { return "" },
	} {
		t.Run(name, func(t *testing.T) {
			repo := &mockAuditRepo{}
			NewLogger(repo, extractor).LogEvent(context.Background(), "", "action", "resource", "")
			if len(repo.entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(repo.entries))
			}
			if repo.entries[0].IP != "unknown" {
				t.Errorf("ip = %q, want %q", repo.entries[0].IP, "unknown")
			}
		})
	}
}

func TestLogger_LogEvent_RepositoryError(t *testing.T) {
	repo := &mockAuditRepo{createErr: errors.New("database error")}
	// Should not panic or return error - best-effort logging
	NewLogger(repo, nil).LogEvent(context.Background(), "user-1", "action", "resource", "")
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	// Should not panic - no-op when repo is nil
	NewLogger(nil, nil).LogEvent(context.Background(), "user-1", "action", "resource", "")

	var l *Logger
	l.LogEvent(context.Background(), "user-1", "action", "resource", "")
}
