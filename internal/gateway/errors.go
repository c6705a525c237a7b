package gateway

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Error codes surfaced by the gateway. The first is the row-API "no rows"
// code; the rest are Postgres SQLSTATEs.
const (
	CodeNoRows                = "PGRST116"
	CodeUniqueViolation       = "23505"
	CodeInsufficientPrivilege = "42501"
	CodeUndefinedTable        = "42P01"
	CodeUndefinedColumn       = "42703"
	CodeCheckViolation        = "23514"
	CodeForeignKeyViolation   = "23503"
	CodeInvalidText           = "22P02"
)

var (
	// ErrNotFound is wrapped by QueryError when a single-row call matched nothing.
	ErrNotFound = errors.New("gateway: no data found")
	// ErrUnknownTable is returned for tables outside the row API allowlist.
	ErrUnknownTable = errors.New("gateway: unknown table")
	// ErrUnknownColumn is returned for columns outside the row API allowlist.
	ErrUnknownColumn = errors.New("gateway: unknown column")
	// ErrRealtimeDisabled is returned by SubscribeChanges when no hub is wired.
	ErrRealtimeDisabled = errors.New("gateway: realtime disabled")
	// ErrBlobDisabled is returned by UploadBlob when no blob store is configured.
	ErrBlobDisabled = errors.New("gateway: blob storage disabled")

	ErrInvalidCredentials = &AuthError{Message: "Invalid login credentials"}
	ErrInvalidToken       = &AuthError{Message: "Invalid or expired session"}
	ErrWeakPassword       = &AuthError{Message: "Password should be at least 6 characters"}
	ErrInvalidEmail       = &AuthError{Message: "Unable to validate email address: invalid format"}
	ErrResetTokenInvalid  = &AuthError{Message: "Password reset link is invalid or has expired"}
)

// QueryError is a failed row-API call carrying a machine code and a message.
type QueryError struct {
	Code    string
	Message string
	Table   string
	Op      string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("gateway: %s %s: %s (%s)", e.Op, e.Table, e.Message, e.Code)
	}
	return fmt.Sprintf("gateway: %s (%s)", e.Message, e.Code)
}

func (e *QueryError) Unwrap() error { return e.Err }

// AuthError is a failed authentication call.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return "gateway: auth: " + e.Message }

// wrapError converts driver errors into QueryError values.
func wrapError(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &QueryError{Code: CodeNoRows, Message: "JSON object requested, multiple (or no) rows returned", Table: table, Op: op, Err: ErrNotFound}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// A malformed key can never match a row.
		if pgErr.Code == CodeInvalidText && op != "insert" {
			return &QueryError{Code: CodeNoRows, Message: pgErr.Message, Table: table, Op: op, Err: ErrNotFound}
		}
		return &QueryError{Code: pgErr.Code, Message: pgErr.Message, Table: table, Op: op, Err: err}
	}
	return &QueryError{Message: err.Error(), Table: table, Op: op, Err: err}
}

// Translate converts any gateway error into a user-readable sentence.
func Translate(err error) string {
	if err == nil {
		return ""
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		switch qe.Code {
		case CodeNoRows:
			return "No data found"
		case CodeUniqueViolation:
			return "This record already exists"
		case CodeInsufficientPrivilege:
			return "Permission denied"
		}
		if qe.Message != "" {
			return qe.Message
		}
		return "An unexpected error occurred"
	}
	var ae *AuthError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "An unexpected error occurred"
}

// IsCode reports whether err is a QueryError with the given code.
func IsCode(err error, code string) bool {
	var qe *QueryError
	return errors.As(err, &qe) && qe.Code == code
}
