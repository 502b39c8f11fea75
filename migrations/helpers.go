package migrations

import (
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Server codes 85 (IndexOptionsConflict) and 86 (IndexKeySpecsConflict) mean
// the index already exists; reruns treat both as applied.
func isIndexExistsError(err error) bool {
	if err == nil {
		return false
	}
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) && (srvErr.HasErrorCode(85) || srvErr.HasErrorCode(86)) {
		return true
	}
	return mongo.IsDuplicateKeyError(err) || strings.Contains(err.Error(), "already exists")
}
