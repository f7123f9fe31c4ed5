package parser

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const productGIDPrefix = "gid://shopify/Product/"

// ProductGID accepts a numeric Shopify product ID or a full GID and returns
// the GID. Blank input yields "".
func ProductGID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "gid://") {
		return id
	}
	return productGIDPrefix + id
}

func RunID(id string) (uuid.UUID, error) {
	if strings.TrimSpace(id) == "" {
		return uuid.Nil, errors.New("id inválido")
	}
	return uuid.Parse(id)
}
