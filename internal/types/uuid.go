package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_TENANT        = "tenant"
	UUID_PREFIX_PLAN          = "plan"
	UUID_PREFIX_SUBSCRIPTION  = "subs"
	UUID_PREFIX_USAGE_RECORD  = "usage"
	UUID_PREFIX_WEBHOOK_EVENT = "evt"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a given prefix ex inv_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
