package expansion

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash derives the cache key for one compilation from the immutable
// inputs that determine its output. Fields are length-framed by a NUL
// separator so no two input combinations collide by concatenation.
func ContentHash(dictionaryID, missionModelID, activityType, logic string) string {
	h := sha256.New()
	for _, part := range []string{dictionaryID, missionModelID, activityType, logic} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
