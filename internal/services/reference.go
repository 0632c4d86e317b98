package services

import (
	"fmt"
	"github.com/google/uuid"
	"strings"
)

// ReferenceGenerator mints payment references.
type ReferenceGenerator interface {
	NewReference() (string, error)
}

type uuidReferenceGenerator struct {
	prefix string
}

// NewReferenceGenerator returns a generator producing PREFIX-<32 hex chars>.
// The suffix is a random v4 UUID (122 random bits). Uniqueness is enforced
// again by the unique index on payments.reference.
func NewReferenceGenerator(prefix string) ReferenceGenerator {
	if prefix == "" {
		prefix = "PAY"
	}
	return &uuidReferenceGenerator{prefix: strings.ToUpper(prefix)}
}

func (g *uuidReferenceGenerator) NewReference() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate payment reference: %w", err)
	}
	return g.prefix + "-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")), nil
}
