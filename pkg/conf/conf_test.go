package conf

import (
	"path/filepath"
	"testing"
)

func TestDefaultIdentity(t *testing.T) {
	t.Setenv("HOME", "/home/alice")

	got := DefaultIdentity()
	want := filepath.Join("/home/alice", ".ssh", "id_rsa")
	if got != want {
		t.Errorf("Expected identity %q, got %q", want, got)
	}
}

func TestCurrentUserNotEmpty(t *testing.T) {
	if CurrentUser() == "" {
		t.Error("Expected a non empty account name")
	}
}
