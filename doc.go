// Package stacsync synchronizes STAC items with a remote catalog through the
// STAC transaction API.
//
// Each call is one transaction on one item: create (POST), replace (PUT) or
// delete (DELETE) under {catalog}/collections/{collection}/items/. Transport
// failures are retried with capped, jittered exponential backoff; HTTP status
// codes are classified exactly once and never retried.
//
// Basic usage:
//
//	c, _ := stacsync.New(stacsync.WithCatalogURL("https://stac.internal"))
//	defer c.Close()
//
//	item, _ := stacsync.ParseFeature(data)
//	req := stacsync.TransactionRequest{Bearer: token, CollectionID: "sentinel2", Feature: item}
//
//	err := c.Create(ctx, req)
//	switch {
//	case errors.Is(err, stacsync.ErrAlreadyExists):
//	    err = c.Replace(ctx, req)
//	case errors.Is(err, stacsync.ErrCollectionNotFound):
//	    // the collection must be created first
//	}
//
//	// Deleting needs only the identifier and is idempotent.
//	_ = c.Delete(ctx, stacsync.TransactionRequest{Bearer: token, CollectionID: "sentinel2", Feature: stacsync.FeatureID("scene-001")})
//
// Outcomes:
//
//	         2xx   400           404                     409                other
//	create   nil   logged, nil   ErrCollectionNotFound   ErrAlreadyExists   ErrCatalogHTTP
//	replace  nil   logged, nil   ErrItemNotFound         ErrCatalogHTTP     ErrCatalogHTTP
//	delete   nil   logged, nil   logged, nil             ErrCatalogHTTP     ErrCatalogHTTP
//
// A 400 is never returned as an error. It is logged at error level and the
// call returns nil. Callers that must detect rejected payloads have to watch
// the logs.
//
// When the retry budget is spent without any response the call returns
// ErrTransport. Use errors.As with *Error to read the status code and body.
//
// TLS verification is disabled by default because catalogs often sit behind
// self-signed internal endpoints. Use WithInsecureSkipVerify(false) when the
// catalog has a trusted certificate.
package stacsync
