package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Key namespaces for the two cache uses
const (
	resultPrefix = "verify:result:"
	searchPrefix = "verify:search:"
)

// ResultKey derives the result-cache key from a claim key
func ResultKey(claimKey string) string {
	return resultPrefix + claimKey
}

// SearchKey derives the search-cache key from a claim vector by hashing
// its little-endian float32 bytes
func SearchKey(vector []float32) string {
	h := sha256.New()
	buf := make([]byte, 4)
	for _, v := range vector {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		h.Write(buf)
	}
	return searchPrefix + hex.EncodeToString(h.Sum(nil))[:16]
}
