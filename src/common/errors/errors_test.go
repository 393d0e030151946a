package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bkdbm/dbmeta/src/common/errors"
)

// =============================================================================
// Error Creation Tests
// =============================================================================

func TestError_New(t *testing.T) {
	err := errors.New(errors.DomainCatalog, "test_code", http.StatusConflict, "test message")

	if err.Domain != errors.DomainCatalog {
		t.Fatalf("expected domain %s, got %s", errors.DomainCatalog, err.Domain)
	}
	if err.Code != "test_code" || err.HTTPStatus != http.StatusConflict {
		t.Fatalf("unexpected error: %+v", err)
	}
	if err.Error() != "catalog.test_code: test message" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestError_Wrap(t *testing.T) {
	cause := stderrors.New("underlying error")
	err := errors.Wrap(cause, errors.DomainDatabase, "query_failed", http.StatusInternalServerError, "query failed")

	if err.Unwrap() != cause {
		t.Fatal("expected wrapped error to be returned by Unwrap")
	}
	if err.Error() != "database.query_failed: query failed: underlying error" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

// =============================================================================
// Error Methods Tests
// =============================================================================

func TestError_CopyOnWrite(t *testing.T) {
	original := errors.ErrDtsInfoExists
	cause := stderrors.New("UNIQUE constraint failed")

	derived := original.WithMessagef("ticket %d taken", 7).WithCause(cause)

	if original.Unwrap() != nil || original.Message == derived.Message {
		t.Fatal("sentinel must not be modified by derived errors")
	}
	if derived.Message != "ticket 7 taken" || derived.Unwrap() != cause {
		t.Fatalf("unexpected derived error: %v", derived)
	}
}

func TestError_IsMatchesByDomainAndCode(t *testing.T) {
	derived := errors.ErrMigrationFailed.WithMessage("applying x failed")
	wrapped := fmt.Errorf("migrate: %w", derived)

	if !errors.Is(wrapped, errors.ErrMigrationFailed) {
		t.Fatal("derived error should match its sentinel through fmt wrapping")
	}
	if errors.Is(wrapped, errors.ErrMigrationNotFound) {
		t.Fatal("different codes in the same domain must not match")
	}
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.ErrDtsInfoExists, http.StatusConflict},
		{errors.ErrInstanceNotFound, http.StatusNotFound},
		{errors.ErrDatabaseConnection, http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", errors.ErrInvalidJSON), http.StatusBadRequest},
		{stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := errors.GetHTTPStatus(tt.err); got != tt.want {
			t.Errorf("GetHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	if errors.GetDomain(errors.ErrInconsistentHistory) != errors.DomainMigration {
		t.Error("expected migration domain")
	}
	if errors.GetCode(stderrors.New("plain")) != "" {
		t.Error("plain errors have no code")
	}
}

// =============================================================================
// HTTP Response Tests
// =============================================================================

func TestNewResponse(t *testing.T) {
	resp := errors.NewResponse(errors.ErrDtsInfoNotFound.WithMessage("DTS info 9 not found"))
	if resp.Error != "catalog.dts_info_not_found" || resp.Message != "DTS info 9 not found" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	resp = errors.NewResponse(stderrors.New("dial tcp 10.0.0.1:3306: connection refused"))
	if resp.Error != "internal.internal_error" || resp.Message != "Internal server error" {
		t.Fatalf("driver errors must not leak, got %+v", resp)
	}
}

func TestNewValidationResponse(t *testing.T) {
	resp := errors.NewValidationResponse("ticket_id", "is required")
	if resp.Error != "validation.validation_failed" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}
	if resp.Details["field"] != "ticket_id" || resp.Details["reason"] != "is required" {
		t.Fatalf("unexpected details: %v", resp.Details)
	}
}
