package persistence

import (
	"os"
	"testing"

	"seedrio/pkg/logger"
)

func TestStateManager(t *testing.T) {
	logger.Init("DEBUG")
	tempDir, err := os.MkdirTemp("", "state_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	mgr, err := GetManager(tempDir)
	if err != nil {
		t.Fatalf("failed to get manager: %v", err)
	}

	// Test Set and Get
	key := "test_key"
	value := map[string]string{"foo": "bar"}
	if err := mgr.Set(key, value); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}

	var retrieved map[string]string
	found, err := mgr.Get(key, &retrieved)
	if err != nil {
		t.Fatalf("failed to get value: %v", err)
	}
	if !found {
		t.Fatal("value not found")
	}
	if retrieved["foo"] != "bar" {
		t.Errorf("expected bar, got %s", retrieved["foo"])
	}

	// Test Persistence
	globalManager = nil // Reset global for reload
	mgr2, err := GetManager(tempDir)
	if err != nil {
		t.Fatalf("failed to reload manager: %v", err)
	}

	var retrieved2 map[string]string
	found2, err := mgr2.Get(key, &retrieved2)
	if err != nil {
		t.Fatalf("failed to get value after reload: %v", err)
	}
	if !found2 {
		t.Fatal("value not found after reload")
	}
	if retrieved2["foo"] != "bar" {
		t.Errorf("expected bar after reload, got %s", retrieved2["foo"])
	}
}

func TestStateManagerDelete(t *testing.T) {
	logger.Init("DEBUG")
	tempDir, err := os.MkdirTemp("", "state_delete_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	globalManager = nil
	mgr, err := GetManager(tempDir)
	if err != nil {
		t.Fatalf("failed to get manager: %v", err)
	}

	if err := mgr.Set("credential", "tok-123"); err != nil {
		t.Fatalf("failed to set value: %v", err)
	}
	if err := mgr.Delete("credential"); err != nil {
		t.Fatalf("failed to delete value: %v", err)
	}

	var tok string
	found, err := mgr.Get("credential", &tok)
	if err != nil {
		t.Fatalf("failed to get value: %v", err)
	}
	if found {
		t.Error("deleted key should not be found")
	}
}
