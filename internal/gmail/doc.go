// Package gmail is the mail provider of the agent. It lists and fetches
// messages through the Gmail API and manages the TodoAgent labels that record
// processing state.
//
// Label names are resolved to Gmail label IDs through a cache that is loaded
// on first use; labels that do not exist yet are created on demand. All API
// calls go through a circuit breaker and are traced and measured. A 404 from
// the API is reported as email.ErrNotFound and does not count against the
// breaker.
package gmail
