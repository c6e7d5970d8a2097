// Package webhook receives new-email notifications over HTTP.
//
// Parse accepts ids under several field names, optionally nested, and Gmail
// Pub/Sub push envelopes that carry only a history id. Payloads it cannot
// use are acknowledged with status "ignored" and HTTP 200.
package webhook
