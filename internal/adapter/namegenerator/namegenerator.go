// Package namegenerator contains the default [domain.NameGenerator]
// implementation.
package namegenerator

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// NameGenerator implements [domain.NameGenerator] with random UUIDs.
type NameGenerator struct {
	reader io.Reader
}

// NewNameGenerator returns a new implementation of [domain.NameGenerator]
// reading randomness from r, or crypto/rand when r is nil.
func NewNameGenerator(r io.Reader) domain.NameGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &NameGenerator{reader: r}
}

// GenerateName implements [domain.NameGenerator].
func (g *NameGenerator) GenerateName() (string, error) {
	id, err := uuid.NewRandomFromReader(g.reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
