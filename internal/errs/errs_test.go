package errs

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaxonomy(t *testing.T) {
	cases := map[string]struct {
		err    error
		target error
		msg    string
	}{
		"not found": {
			err:    NotFound("tool", "search_papers"),
			target: ErrNotFound,
			msg:    `tool "search_papers": not found`,
		},
		"connection": {
			err:    Connection("research", io.EOF),
			target: ErrConnection,
			msg:    "provider connection failed: research: EOF",
		},
		"invocation": {
			err:    Invocation("call search_papers", io.ErrUnexpectedEOF),
			target: ErrInvocation,
			msg:    "provider invocation failed: call search_papers: unexpected EOF",
		},
		"malformed": {
			err:    Malformed("got %d blocks", 0),
			target: ErrMalformedResponse,
			msg:    "malformed response: got 0 blocks",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, tc.err, tc.target)
			require.EqualError(t, tc.err, tc.msg)
		})
	}

	t.Run("wrapped cause stays reachable", func(t *testing.T) {
		require.ErrorIs(t, Connection("research", io.EOF), io.EOF)
	})
}

func TestErrorWrap(t *testing.T) {
	err := Wrap(NotFound("prompt", "missing"), "Prompt failed.")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, "Prompt failed.", err.ReasonText())

	var target Error
	require.True(t, errors.As(error(err), &target))

	require.Equal(t, "only reason", Error{Reason: "only reason"}.Error())
}

func TestDescribe(t *testing.T) {
	require.Equal(t, "Not found.", Describe(NotFound("tool", "x"), "fallback"))
	require.Equal(t, "fallback", Describe(io.EOF, "fallback"))
}
