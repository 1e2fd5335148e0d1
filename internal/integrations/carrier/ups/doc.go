// Package ups is a client for the UPS OAuth and Tracking APIs.
//
// It exchanges client credentials for a bearer token, fetches tracking details for an
// inquiry number and normalizes UPS activity status codes into models.TrackingStatus
// values with a StatusAdvisory. Classify is usable on its own, without network access.
//
// The package keeps no state between calls: tokens are returned to the caller and are
// never cached, and requests are never retried.
package ups
