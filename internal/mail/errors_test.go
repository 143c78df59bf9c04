package mail

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same kind", &Error{Kind: KindNotFound, Op: "fetch", Msg: "x"}, ErrNotFound, true},
		{"different kind", &Error{Kind: KindNotFound}, ErrBackend, false},
		{"wrapped", fmt.Errorf("outer: %w", &Error{Kind: KindValidation}), ErrValidation, true},
		{"folder not found through unwrap", &Error{Kind: KindBackend, Err: fmt.Errorf("%w: junk", ErrFolderNotFound)}, ErrFolderNotFound, true},
		{"plain error", errors.New("boom"), ErrBackend, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnauthorized, KindOf(&Error{Kind: KindUnauthorized}))
	assert.Equal(t, KindMissingBackendCredential, KindOf(fmt.Errorf("x: %w", ErrMissingBackendCredential)))
	assert.Equal(t, KindBackend, KindOf(errors.New("network down")))
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{&Error{Kind: KindNotFound, Op: "fetch", Msg: "no email"}, "fetch: no email"},
		{&Error{Kind: KindBackend, Op: "query", Err: errors.New("timeout")}, "query: timeout"},
		{&Error{Kind: KindBackend, Msg: "bad", Err: errors.New("timeout")}, "bad: timeout"},
		{&Error{Kind: KindUnauthorized}, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "unauthorized", KindUnauthorized.String())
	assert.Equal(t, "missing_backend_credential", KindMissingBackendCredential.String())
	assert.Equal(t, "validation_error", KindValidation.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "backend_error", KindBackend.String())
}

func TestBackendErrorKeepsKind(t *testing.T) {
	inner := &Error{Kind: KindNotFound, Msg: "gone"}
	assert.Same(t, error(inner), backendError("query", inner))

	wrapped := backendError("query", errors.New("eof"))
	assert.Equal(t, KindBackend, KindOf(wrapped))
}
