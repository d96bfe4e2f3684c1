package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/sheets/memory"
)

func TestBackendTypeIsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sqlite").IsValid() {
		t.Error("sqlite is not a mirror backend")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	cfg, err := FromAppConfig(&config.Config{MirrorBackend: "sheets", GoogleSpreadsheetID: "abc", GoogleSheetName: "Transactions"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.GoogleSpreadsheetID != "abc" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	if _, err := FromAppConfig(&config.Config{MirrorBackend: "excel"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestValidateSheetsRequiresSpreadsheet(t *testing.T) {
	if err := (Config{Type: SheetsBackend, GoogleSheetName: "Transactions"}).Validate(); err == nil {
		t.Fatal("expected missing spreadsheet id to fail")
	}
	if err := (Config{Type: MemoryBackend}).Validate(); err != nil {
		t.Fatalf("memory needs no settings: %v", err)
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	if _, err := f.CreateBackend(ctx, Config{Type: NoneBackend}); !errors.Is(err, ErrMirrorDisabled) {
		t.Fatalf("expected ErrMirrorDisabled, got %v", err)
	}

	res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := res.Mirror.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", res.Mirror)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := f.CreateBackend(ctx, Config{Type: SheetsBackend, GoogleSpreadsheetID: "abc", GoogleSheetName: "Transactions"}); err == nil {
		t.Fatal("expected sheets client to fail without environment")
	}
}
