package soapclient

import (
	"strings"

	"github.com/google/uuid"
)

func generateID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
