package chunking

import (
	"crypto/sha256"
	"encoding/hex"
)

const childIDSeparator = "|"

// ParentID is the hex SHA-256 of the parent text.
func ParentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// ChildID is the hex SHA-256 of parentID, a separator and the child text, so the
// same text under two parents yields two ids.
func ChildID(parentID, text string) string {
	sum := sha256.Sum256([]byte(parentID + childIDSeparator + text))
	return hex.EncodeToString(sum[:])
}
