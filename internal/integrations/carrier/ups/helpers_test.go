package ups

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/pkg/errors"
)

const deliveredFixture = `{
  "trackResponse": {
    "shipment": [
      {
        "inquiryNumber": "1Z023E2X0214323462",
        "package": [
          {
            "trackingNumber": "1Z023E2X0214323462",
            "packageCount": 1,
            "deliveryDate": [{"type": "DEL", "date": "20230104"}],
            "activity": [
              {
                "location": {"address": {"city": "Alpharetta", "stateProvince": "GA", "countryCode": "US", "country": "US"}, "slic": "3088"},
                "status": {"type": "D", "description": "DELIVERED", "code": "FS", "statusCode": "011"},
                "date": "20230104", "time": "140000",
                "gmtDate": "20230104", "gmtOffset": "-05:00", "gmtTime": "19:00:00"
              },
              {
                "location": {"address": {"city": "Atlanta", "stateProvince": "GA", "countryCode": "US", "country": "US"}, "slic": "3000"},
                "status": {"type": "I", "description": "Departed from Facility", "code": "DP", "statusCode": "005"},
                "date": "20230103", "time": "230000"
              }
            ]
          }
        ]
      }
    ]
  }
}`

const tokenFixture = `{
  "token_type": "Bearer",
  "issued_at": "1690000000000",
  "client_id": "cid",
  "access_token": "tok-123",
  "expires_in": "14399",
  "status": "approved",
  "refresh_count": "0"
}`

// countingTransport fails every request and counts how many were attempted.
type countingTransport struct {
	calls atomic.Int32
}

func (t *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return nil, errors.New("unexpected network call")
}

// seqRand returns 0, 1, 2, ... modulo n.
type seqRand struct{ i int }

func (r *seqRand) Intn(n int) int {
	v := r.i % n
	r.i++
	return v
}

func newTestClient(srv *httptest.Server) *Client {
	return New(srv.Client()).
		WithBaseURL(EnvironmentProduction, srv.URL).
		WithBaseURL(EnvironmentSandbox, srv.URL)
}
