package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go-vr-vision/internal/repository"
	"go-vr-vision/pkg/models"
)

func TestRootCmd_List(t *testing.T) {
	dir := t.TempDir()
	repo, err := repository.NewFileRequestRepository(dir)
	if err != nil {
		t.Fatal(err)
	}
	rec := &models.RequestRecord{
		RequestID:   "20251201_100000_000001",
		Source:      "base64",
		TopK:        1,
		Success:     true,
		Predictions: []models.Prediction{models.NewPrediction("cat", 0.9)},
	}
	if err := repo.Save(context.Background(), rec); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--log-dir", dir, "list", "5"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(out.String(), "20251201_100000_000001") {
		t.Errorf("Expected request ID in output, got:\n%s", out.String())
	}
}

func TestRootCmd_ListRejectsBadLimit(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--log-dir", t.TempDir(), "list", "zero"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error for non-numeric limit")
	}
}

func TestRootCmd_MissingLogDir(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--log-dir", "/nonexistent/logs", "stats"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Error("Expected error for missing log dir")
	}
}
