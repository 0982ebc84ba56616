package canvas

import "github.com/google/uuid"

// IDProvider issues identifiers for newly created cards.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues random UUID identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	return uuid.NewString(), nil
}
