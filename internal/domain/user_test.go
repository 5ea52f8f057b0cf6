package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewIdentity(t *testing.T) {
	long := strings.Repeat("x", 65)
	tests := []struct {
		name    string
		id      string
		user    string
		wantErr error
	}{
		{"ok", "u1", "alice", nil},
		{"anonymous", "", "", nil},
		{"long id", long, "alice", ErrUserIDTooLong},
		{"long name", "u1", long, ErrUsernameTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewIdentity(tt.id, tt.user)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if err == nil && (string(id.UserID) != tt.id || id.Name != tt.user) {
				t.Errorf("identity = %+v", id)
			}
		})
	}
}
