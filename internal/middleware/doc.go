// Package middleware provides the HTTP middleware wrapped around the API:
// request logging in W3C Extended Log Format and Prometheus request metrics.
package middleware
