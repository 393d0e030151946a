package errors

import "net/http"

// Common error codes used across domains
const (
	CodeNotFound       Code = "not_found"
	CodeAlreadyExists  Code = "already_exists"
	CodeInvalidRequest Code = "invalid_request"
	CodeConflict       Code = "conflict"
	CodeInternal       Code = "internal_error"
	CodeUnavailable    Code = "unavailable"
)

// ============================================================================
// Migration Errors
// ============================================================================

var (
	// ErrMigrationNotFound is returned when a migration key is not registered
	ErrMigrationNotFound = New(DomainMigration, CodeNotFound, http.StatusNotFound,
		"Migration not found")

	// ErrDuplicateMigration is returned when two migrations share a key
	ErrDuplicateMigration = New(DomainMigration, "duplicate", http.StatusInternalServerError,
		"Duplicate migration")

	// ErrMissingDependency is returned when a migration depends on an unknown key
	ErrMissingDependency = New(DomainMigration, "missing_dependency", http.StatusInternalServerError,
		"Migration depends on an unknown migration")

	// ErrCircularDependency is returned when the dependency graph has a cycle
	ErrCircularDependency = New(DomainMigration, "circular_dependency", http.StatusInternalServerError,
		"Circular migration dependency")

	// ErrInconsistentHistory is returned when an applied migration has an
	// unapplied dependency
	ErrInconsistentHistory = New(DomainMigration, "inconsistent_history", http.StatusConflict,
		"Inconsistent migration history")

	// ErrMigrationFailed is returned when applying or reverting a migration fails
	ErrMigrationFailed = New(DomainMigration, "failed", http.StatusInternalServerError,
		"Migration failed")

	// ErrNothingToRollback is returned when no run has been recorded
	ErrNothingToRollback = New(DomainMigration, "nothing_to_rollback", http.StatusConflict,
		"No applied migrations to roll back")
)

// ============================================================================
// Schema Errors
// ============================================================================

var (
	// ErrModelNotFound is returned when an operation names an unknown model
	ErrModelNotFound = New(DomainSchema, "model_not_found", http.StatusInternalServerError,
		"Model not found in schema state")

	// ErrModelExists is returned when creating a model that already exists
	ErrModelExists = New(DomainSchema, "model_exists", http.StatusInternalServerError,
		"Model already exists in schema state")

	// ErrFieldNotFound is returned when an operation names an unknown field
	ErrFieldNotFound = New(DomainSchema, "field_not_found", http.StatusInternalServerError,
		"Field not found on model")

	// ErrFieldExists is returned when adding a field that already exists
	ErrFieldExists = New(DomainSchema, "field_exists", http.StatusInternalServerError,
		"Field already exists on model")

	// ErrInvalidField is returned for field definitions that cannot be rendered
	ErrInvalidField = New(DomainSchema, "invalid_field", http.StatusInternalServerError,
		"Invalid field definition")

	// ErrInvalidUniqueTogether is returned for malformed unique_together sets
	ErrInvalidUniqueTogether = New(DomainSchema, "invalid_unique_together", http.StatusInternalServerError,
		"Invalid unique_together definition")

	// ErrUnknownDialect is returned for unsupported database dialects
	ErrUnknownDialect = New(DomainSchema, "unknown_dialect", http.StatusInternalServerError,
		"Unknown database dialect")
)

// ============================================================================
// Catalog Errors
// ============================================================================

var (
	// ErrInstanceNotFound is returned when an extra process instance is missing
	ErrInstanceNotFound = New(DomainCatalog, "instance_not_found", http.StatusNotFound,
		"Extra process instance not found")

	// ErrDtsInfoNotFound is returned when a SQL Server DTS record is missing
	ErrDtsInfoNotFound = New(DomainCatalog, "dts_info_not_found", http.StatusNotFound,
		"SQL Server DTS info not found")

	// ErrDtsInfoExists is returned when a DTS record duplicates an existing
	// (ticket_id, source_cluster_id, target_cluster_id) triple
	ErrDtsInfoExists = New(DomainCatalog, CodeAlreadyExists, http.StatusConflict,
		"SQL Server DTS info already exists for this ticket and cluster pair")
)

// ============================================================================
// Database Errors
// ============================================================================

var (
	// ErrDatabaseConnection is returned when database connection fails
	ErrDatabaseConnection = New(DomainDatabase, "connection_failed", http.StatusServiceUnavailable,
		"Database connection failed")

	// ErrDatabaseQuery is returned when a database query fails
	ErrDatabaseQuery = New(DomainDatabase, "query_failed", http.StatusInternalServerError,
		"Database query failed")

	// ErrDatabaseTransaction is returned when a database transaction fails
	ErrDatabaseTransaction = New(DomainDatabase, "transaction_failed", http.StatusInternalServerError,
		"Database transaction failed")

	// ErrInvalidDatabaseURL is returned when a database URL cannot be parsed
	ErrInvalidDatabaseURL = New(DomainDatabase, "invalid_url", http.StatusBadRequest,
		"Invalid database URL")
)

// ============================================================================
// Validation Errors
// ============================================================================

var (
	// ErrValidationFailed is returned when request validation fails
	ErrValidationFailed = New(DomainValidation, "validation_failed", http.StatusBadRequest,
		"Validation failed")

	// ErrMissingRequiredField is returned when a required field is missing
	ErrMissingRequiredField = New(DomainValidation, "missing_field", http.StatusBadRequest,
		"Required field is missing")

	// ErrInvalidFieldValue is returned when a field has an invalid value
	ErrInvalidFieldValue = New(DomainValidation, "invalid_value", http.StatusBadRequest,
		"Invalid field value")

	// ErrInvalidJSON is returned when request body is not valid JSON
	ErrInvalidJSON = New(DomainValidation, "invalid_json", http.StatusBadRequest,
		"Invalid JSON in request body")
)

// ============================================================================
// Internal Errors
// ============================================================================

var (
	// ErrInternal is a generic internal server error
	ErrInternal = New(DomainInternal, CodeInternal, http.StatusInternalServerError,
		"Internal server error")

	// ErrRateLimited is returned when a client exceeds its request budget
	ErrRateLimited = New(DomainInternal, "rate_limited", http.StatusTooManyRequests,
		"Too many requests, retry later")
)
