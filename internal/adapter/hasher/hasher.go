// Package hasher contains the default [domain.Hasher] implementation.
package hasher

import (
	"hash/fnv"

	"gopkg.in/yaml.v3"

	"github.com/vinicius-lino-figueiredo/treedb/domain"
)

// Hasher implements domain.Hasher. Values are serialized as YAML, which sorts
// map keys, so equal maps hash alike regardless of insertion order.
type Hasher struct{}

// NewHasher returns a new implementation of domain.Hasher.
func NewHasher() domain.Hasher {
	return &Hasher{}
}

// Hash implements domain.Hasher.
func (h *Hasher) Hash(a any) (uint64, error) {
	b, err := yaml.Marshal(a)
	if err != nil {
		return 0, err
	}
	hasher := fnv.New64a()
	if _, err = hasher.Write(b); err != nil {
		return 0, err
	}
	return hasher.Sum64(), nil
}
