package passphrase

import (
	"errors"
	"strings"
	"testing"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("RENT_TEST_PASS", "hunter2")
	src := NewSource("RENT_TEST_PASS", "tenant")
	src.isTerminal = func(int) bool { t.Fatal("terminal consulted"); return false }
	got, err := src.Get()
	if err != nil || got != "hunter2" {
		t.Fatalf("unexpected passphrase %q err %v", got, err)
	}
}

func TestSourceRejectsEmptyEnvironment(t *testing.T) {
	t.Setenv("RENT_TEST_PASS", "  ")
	if _, err := NewSource("RENT_TEST_PASS", "").Get(); err == nil {
		t.Fatalf("expected error for blank env passphrase")
	}
}

func TestSourcePromptsOnce(t *testing.T) {
	src := NewSource("", "landlord")
	calls := 0
	src.isTerminal = func(int) bool { return true }
	src.readPassword = func(int) ([]byte, error) {
		calls++
		return []byte("s3cret"), nil
	}
	for i := 0; i < 2; i++ {
		got, err := src.Get()
		if err != nil || got != "s3cret" {
			t.Fatalf("unexpected passphrase %q err %v", got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one prompt, got %d", calls)
	}
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("", "landlord")
	src.isTerminal = func(int) bool { return false }
	_, err := src.Get()
	if err == nil || !strings.Contains(err.Error(), "landlord passphrase required") {
		t.Fatalf("unexpected error %v", err)
	}

	failing := NewSource("", "")
	failing.isTerminal = func(int) bool { return true }
	failing.readPassword = func(int) ([]byte, error) { return nil, errors.New("eof") }
	if _, err := failing.Get(); err == nil {
		t.Fatalf("expected read failure")
	}
}
