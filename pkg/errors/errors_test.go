package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := map[Code]Metadata{
		CodeValidation:    {http.StatusBadRequest, false, "validation failed", true},
		CodeUnauthorized:  {http.StatusUnauthorized, false, "authentication required", false},
		CodeForbidden:     {http.StatusForbidden, false, "access denied", false},
		CodeNotFound:      {http.StatusNotFound, false, "resource not found", false},
		CodeConflict:      {http.StatusConflict, true, "conflict detected", true},
		CodeStateConflict: {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
		CodeIdempotency:   {http.StatusConflict, false, "idempotency key reused", true},
		CodeRateLimit:     {http.StatusTooManyRequests, false, "rate limit exceeded", false},
		CodeInternal:      {http.StatusInternalServerError, true, "internal server error", false},
		CodeDependency:    {http.StatusServiceUnavailable, true, "dependency unavailable", true},
	}
	for code, want := range tests {
		assert.Equal(t, want, MetadataFor(code), code)
	}
	assert.Equal(t, http.StatusInternalServerError, MetadataFor("SOMETHING_UNKNOWN").HTTPStatus)
}

func TestCodeForStatus(t *testing.T) {
	for _, code := range []Code{CodeValidation, CodeUnauthorized, CodeForbidden, CodeNotFound, CodeConflict, CodeStateConflict, CodeRateLimit, CodeInternal, CodeDependency} {
		assert.Equal(t, code, CodeForStatus(MetadataFor(code).HTTPStatus))
	}
	assert.Equal(t, CodeDependency, CodeForStatus(http.StatusBadGateway))
	assert.Equal(t, CodeInternal, CodeForStatus(http.StatusTeapot))
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	assert.Equal(t, CodeValidation, base.Code())
	assert.Equal(t, "missing foo", base.Message())
	assert.Nil(t, base.Details())
	assert.Equal(t, "VALIDATION_ERROR: missing foo", base.Error())

	withDetails := Newf(CodeNotFound, "order %s not found", "ORD-1").WithDetails(map[string]any{"id": 1})
	assert.Equal(t, "order ORD-1 not found", withDetails.Message())
	assert.NotNil(t, withDetails.Details())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("db down")
	wrapped := Wrap(CodeDependency, cause, "load cart")

	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "db down")
	assert.True(t, wrapped.Retryable())
	assert.Nil(t, Wrap(CodeInternal, nil, "noop").Unwrap())
}

func TestAsAndCodeOf(t *testing.T) {
	typed := New(CodeStateConflict, "illegal move")
	outer := fmt.Errorf("transition: %w", typed)

	assert.Same(t, typed, As(outer))
	assert.Equal(t, CodeStateConflict, CodeOf(outer))
	assert.Equal(t, CodeInternal, CodeOf(stdErrors.New("plain")))
	assert.True(t, IsCode(outer, CodeStateConflict))
	assert.False(t, IsCode(nil, CodeStateConflict))
}

func TestDump(t *testing.T) {
	d := Dump(Wrap(CodeConflict, stdErrors.New("duplicate"), "insert"))
	assert.Equal(t, CodeConflict, d.Code)
	assert.Len(t, d.Chain, 2)

	empty := Dump(nil)
	assert.Empty(t, empty.TopMessage)
	assert.Nil(t, empty.Chain)

	pg := &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_order_number", TableName: "orders"}
	fields := Dump(fmt.Errorf("insert order: %w", pg)).Fields()
	require.Equal(t, "23505", fields["db_code"])
	assert.Equal(t, "ux_orders_order_number", fields["db_constraint"])
	assert.NotContains(t, fields, "db_column")
	assert.Empty(t, fields["error_code"])
}
