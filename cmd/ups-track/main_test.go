package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/upstrack/internal/integrations/carrier/ups"
)

const tokenBody = `{"token_type":"Bearer","issued_at":"1690000000000","client_id":"cid","access_token":"tok-1","expires_in":"14399","status":"approved"}`

const trackBody = `{
  "trackResponse": {
    "shipment": [{
      "inquiryNumber": "1Z023E2X0214323462",
      "warnings": [{"code": "TW0001", "message": "Tracking Information Not Found"}],
      "package": [{
        "trackingNumber": "1Z023E2X0214323462",
        "packageCount": 1,
        "deliveryDate": [],
        "activity": [
          {"location": {"address": {"city": "Atlanta", "stateProvince": "GA", "countryCode": "US"}},
           "status": {"type": "D", "description": "DELIVERED", "code": "KB", "statusCode": "011"},
           "date": "20230104", "time": "161203"},
          {"location": {"address": {"city": "Atlanta", "stateProvince": "GA", "countryCode": "US"}},
           "status": {"type": "I", "description": "Out For Delivery Today", "code": "OT", "statusCode": "021"},
           "date": "20230104", "time": "081500"}
        ]
      }]
    }]
  }
}`

type upsStub struct {
	mu          sync.Mutex
	tokenCalls  int
	trackCalls  int
	auth        string
	merchant    string
	cie         string
	trackStatus int
	track       string
}

func (s *upsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/security/v1/oauth/token" {
		s.tokenCalls++
		s.merchant = r.Header.Get("x-merchant-id")
		_, _ = w.Write([]byte(tokenBody))
		return
	}
	s.trackCalls++
	s.auth = r.Header.Get("Authorization")
	s.cie = r.Header.Get("isCIE")
	if s.trackStatus != 0 {
		w.WriteHeader(s.trackStatus)
	}
	_, _ = w.Write([]byte(s.track))
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"configPath", "UPS_CLIENT_ID", "UPS_CLIENT_SECRET", "UPS_ACCOUNT_NUMBER", "UPS_ENVIRONMENT"} {
		t.Setenv(k, "")
	}
	color.NoColor = true
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestTokenCmd(t *testing.T) {
	clearEnv(t)
	stub := &upsStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	out, _, err := run(t, "token", "--base-url", srv.URL, "--client-id", "cid", "--client-secret", "s", "--merchant-id", "A1B2C3", "--sandbox")
	require.NoError(t, err)
	require.Contains(t, out, "tok-1")
	require.Contains(t, out, "3h59m59s")
	require.Equal(t, "A1B2C3", stub.merchant)

	out, _, err = run(t, "token", "--json", "--base-url", srv.URL, "--client-id", "cid", "--client-secret", "s", "--merchant-id", "A1B2C3")
	require.NoError(t, err)
	var cred ups.Credential
	require.NoError(t, json.Unmarshal([]byte(out), &cred))
	require.Equal(t, "approved", cred.Status)
}

func TestTokenCmd_ConfigErrorWithoutNetwork(t *testing.T) {
	clearEnv(t)
	stub := &upsStub{}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	_, _, err := run(t, "token", "--base-url", srv.URL, "--client-id", "cid", "--client-secret", "s")
	var cfgErr *ups.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Zero(t, stub.tokenCalls)
	require.Contains(t, errorText(err), "configuration:")
}

func TestTrackCmd_Table(t *testing.T) {
	clearEnv(t)
	stub := &upsStub{track: trackBody}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	out, errOut, err := run(t, "track", "1Z023E2X0214323462", "--sandbox", "--base-url", srv.URL,
		"--client-id", "cid", "--client-secret", "s", "--merchant-id", "A1B2C3")
	require.NoError(t, err)
	require.Contains(t, out, "Delivered. (delivered)")
	require.Contains(t, out, "flags: delivered")
	require.Contains(t, out, "Out For Delivery Today")
	require.Contains(t, out, "Atlanta, GA, US")
	require.Contains(t, errOut, "TW0001")
	require.Equal(t, 1, stub.tokenCalls)
	require.Equal(t, "Bearer tok-1", stub.auth)
	require.Equal(t, "true", stub.cie)
}

func TestTrackCmd_TokenFlagSkipsAuthAndJSON(t *testing.T) {
	clearEnv(t)
	stub := &upsStub{track: trackBody}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	out, _, err := run(t, "track", "1Z023E2X0214323462", "--token", "given", "--json", "--base-url", srv.URL)
	require.NoError(t, err)
	require.Zero(t, stub.tokenCalls)
	require.Equal(t, "Bearer given", stub.auth)
	require.Equal(t, "false", stub.cie)

	var res ups.TrackingQueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.JSONEq(t, trackBody, string(res.RawResponse))
	require.Equal(t, "Delivered.", res.LastStatus.Description)
	require.Len(t, res.TransactionID, 32)
}

func TestTrackCmd_TrackingError(t *testing.T) {
	clearEnv(t)
	stub := &upsStub{
		trackStatus: http.StatusNotFound,
		track:       `{"response":{"errors":[{"code":"151018","message":"Invalid tracking number"}]}}`,
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	_, _, err := run(t, "track", "1Z023E2X0214323462", "--token", "given", "--base-url", srv.URL)
	var trErr *ups.TrackingError
	require.True(t, errors.As(err, &trErr))
	require.Contains(t, errorText(err), "Invalid tracking number")
}

func TestTrackCmd_ConfigFileAndEnv(t *testing.T) {
	clearEnv(t)
	stub := &upsStub{track: trackBody}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
ups:
  client_id: "file-id"
  client_secret: "file-secret"
  environment: "sandbox"
  sandbox_base_url: "`+srv.URL+`"
`), 0o600))
	t.Setenv("UPS_ACCOUNT_NUMBER", "ENV123")

	_, _, err := run(t, "track", "1Z023E2X0214323462", "--config", p)
	require.NoError(t, err)
	require.Equal(t, "ENV123", stub.merchant)
	require.Equal(t, "true", stub.cie)
}

func TestClassifyCmd(t *testing.T) {
	clearEnv(t)

	out, _, err := run(t, "classify", "005", "011", "X")
	require.NoError(t, err)
	require.Contains(t, out, "in_transit")
	require.Contains(t, out, "delivered")
	require.Contains(t, out, "recipient should check carrier")

	out, _, err = run(t, "classify", "--json")
	require.NoError(t, err)
	var all []classified
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	require.Len(t, all, len(ups.KnownStatusCodes()))
}

func TestResolve_BadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("UPS_ENVIRONMENT", "staging")
	_, _, err := run(t, "token")
	var cfgErr *ups.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}
