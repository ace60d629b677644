package kind

import (
	"encoding/hex"
	"encoding/json"

	"lukechampine.com/blake3"
)

// Fingerprint returns a BLAKE3 digest over the registry contents in
// registration order. Two registries built from the same definitions in the
// same order share a fingerprint.
func (r *Registry) Fingerprint() (string, error) {
	// encoding/json sorts map keys, which keeps field order stable.
	data, err := json.Marshal(r.List())
	if err != nil {
		return "", err
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
