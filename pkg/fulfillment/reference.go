package fulfillment

import (
	"strings"

	"github.com/google/uuid"
)

// External references are the only link between a vendor order and the user
// who asked for it; there is no local database of record. The encoding is
// tee_<userID>_<nonce>: the prefix makes history lookups a string match and
// the nonce defeats accidental duplicate-order collisions between calls.

const referenceTag = "tee"

// NewReference builds a fresh reference for one submission.
func NewReference(userID string) string {
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return referenceTag + "_" + userID + "_" + nonce
}

// ReferencePrefix is the match key for all of one user's orders.
func ReferencePrefix(userID string) string {
	return referenceTag + "_" + userID + "_"
}

// UserFromReference recovers the user id from a reference, reporting false
// for references this system did not create.
func UserFromReference(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, referenceTag+"_")
	if !ok {
		return "", false
	}
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 || idx == len(rest)-1 {
		return "", false
	}
	return rest[:idx], true
}
