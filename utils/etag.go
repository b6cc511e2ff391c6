package utils

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GenerateETag identifies one version of a versioned document.
func GenerateETag(id primitive.ObjectID, version int64) string {
	return fmt.Sprintf(`"%s-%d"`, id.Hex(), version)
}
