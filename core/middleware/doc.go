// Package middleware groups the Fiber middleware of the admin API.
//
//   - auth: API key validation, with path prefixes (metrics, swagger) that stay public.
//   - rayid: assigns or propagates an X-Ray-ID per request for log correlation.
package middleware
