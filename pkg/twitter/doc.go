// Package twitter provides a client for X's private Bookmarks GraphQL API.
//
// The Bookmarks endpoint is undocumented: its route id changes between
// frontend deployments and must be discovered from live browser traffic,
// and requests only succeed with the Cookie, X-Csrf-Token and
// Authorization headers the web client itself sends. This package covers:
//   - URL construction for the paginated Bookmarks timeline, including
//     the feature-flag map the frontend passes on every call
//   - the route-id matcher used by the credential interceptor
//   - typed models and a single validation step for the nested timeline
//     response shape
//   - normalization of raw timeline entries into export records
package twitter
