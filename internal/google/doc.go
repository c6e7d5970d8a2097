// Package google stores OAuth tokens for the Google accounts the agent works
// on and builds authenticated HTTP clients for the Gmail and Tasks APIs.
//
// Tokens live as JSON files, one per account, under the user cache directory.
// Client credentials come from GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET.
package google
