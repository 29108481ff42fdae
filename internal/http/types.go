// Package http provides the HTTP API for leaselogicd.
package http

// StatusResponse is the response body for GET /api/v1/status.
type StatusResponse struct {
	Status        string       `json:"status"`
	Version       string       `json:"version,omitempty"`
	Counts        StatusCounts `json:"counts"`
	Jurisdictions []string     `json:"jurisdictions"`
}

// StatusCounts contains point counts for stored knowledge sources. A count
// of -1 means the store could not report it.
type StatusCounts struct {
	LeaseChunks int `json:"lease_chunks"`
	Statutes    int `json:"statutes"`
}
