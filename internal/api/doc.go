// Package api provides the Oportunia REST API: admin provider management,
// the OAuth callback, and the user-facing niche, history, campaign and
// subscription endpoints.
package api
