package ups

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseErrorEnvelope(t *testing.T) {
	env, ok := ParseErrorEnvelope([]byte(`{"errors":[{"code":"151118","message":"Invalid tracking number"}]}`))
	require.True(t, ok)
	require.Equal(t, []ErrorDetail{{Code: "151118", Message: "Invalid tracking number"}}, env.Errors)

	env, ok = ParseErrorEnvelope([]byte(`{"response":{"errors":[{"code":"250002","message":"Invalid Authentication Information."},{"code":"1","message":"two"}]}}`))
	require.True(t, ok)
	require.Len(t, env.Errors, 2)
	require.Equal(t, "Invalid Authentication Information.; two", env.Message())
}

func TestParseErrorEnvelope_Rejects(t *testing.T) {
	for _, body := range []string{
		``,
		`<html>bad gateway</html>`,
		`[]`,
		`{}`,
		`{"errors":[]}`,
		`{"errors":"boom"}`,
		`{"errors":[{"code":"1"}]}`,
		`{"errors":[{"message":"x"}]}`,
		`{"errors":[{"code":1,"message":"x"}]}`,
		`{"response":{"errors":[]}}`,
	} {
		_, ok := ParseErrorEnvelope([]byte(body))
		require.False(t, ok, body)
	}
}

func TestErrorTypes_As(t *testing.T) {
	var err error = errors.WithStack(&TrackingError{StatusCode: 400, Status: "400 Bad Request", Details: []ErrorDetail{{Code: "151118", Message: "Invalid tracking number"}}})

	var te *TrackingError
	require.True(t, errors.As(err, &te))
	require.Equal(t, 400, te.StatusCode)
	require.Contains(t, err.Error(), "Invalid tracking number")

	cause := errors.New("eof")
	pe := &ProtocolError{StatusCode: 502, Status: "502 Bad Gateway", Err: cause}
	require.ErrorIs(t, pe, cause)
	require.Contains(t, pe.Error(), "invalid response from server")
	require.Contains(t, pe.Error(), "502 Bad Gateway")

	ae := &AuthenticationError{StatusCode: 500, Status: "500 Internal Server Error"}
	require.Contains(t, ae.Error(), "500 Internal Server Error")
}
