// Package idgen generates transfer record IDs. ULIDs are random enough to
// make collisions negligible while staying lexically sortable by creation
// time.
package idgen

import "github.com/oklog/ulid/v2"

// ULIDGenerator implements usecase.IDGenerator.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate returns a new ULID string.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
