// Package extract turns FIPE lookup responses into catalog entities. Each
// extractor is a pure transformation over a fipe.Client; extraction proceeds
// strictly top-down: periods, brands, models, year-models, values.
package extract

import "context"

// Extractor is the shared capability implemented per entity kind: one query
// in, zero or more entities out. No behavior depends on runtime type
// inspection.
type Extractor[Q any, E any] interface {
	Extract(ctx context.Context, q Q) ([]E, error)
}
