// Package http provides the HTTP API for leaselogicd.
package http

import (
	"context"
	"strings"

	"github.com/fyrsmithlabs/leaselogic/internal/vectorstore"
)

// CountFromCollections counts stored lease chunks and statutes from vector
// store collections.
//
// Collection names follow ingestion naming conventions:
//   - lease_{id} for ingested leases
//   - {jurisdiction}_laws for statute collections
//
// Returns (-1, -1) if:
//   - store is nil
//   - listing collections fails
//   - collections list is empty (chromem lazy loading case)
//
// Otherwise returns the sum of point counts for matching collections.
func CountFromCollections(ctx context.Context, store vectorstore.Store) (leaseChunks int, statutes int) {
	if store == nil {
		return -1, -1
	}

	collections, err := store.ListCollections(ctx)
	if err != nil {
		return -1, -1
	}

	// chromem loads collections lazily - on fresh open, collections map is
	// empty until they are accessed. Return -1 to indicate we can't
	// determine counts.
	if len(collections) == 0 {
		return -1, -1
	}

	for _, coll := range collections {
		info, err := store.GetCollectionInfo(ctx, coll)
		if err != nil || info == nil {
			continue
		}
		if strings.HasPrefix(coll, "lease_") {
			leaseChunks += info.PointCount
		}
		if strings.HasSuffix(coll, "_laws") {
			statutes += info.PointCount
		}
	}

	return leaseChunks, statutes
}
