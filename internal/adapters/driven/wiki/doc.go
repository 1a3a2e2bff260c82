// Package wiki implements driven.Platform against the MediaWiki Action API.
//
// Requests are throttled client-side with golang.org/x/time/rate and, when an
// access token is configured, authenticated with an OAuth 2 bearer token via
// golang.org/x/oauth2. API errors whose code is in the configured transient set
// unwrap to domain.ErrPlatformConflict so callers can retry them.
package wiki
