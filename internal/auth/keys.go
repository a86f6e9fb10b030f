package auth

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const (
	SecretPrefix = "sk_prod_"
	// PrefixLength is how many leading characters of a raw key are stored
	// and shown so users can tell keys apart.
	PrefixLength = 20
)

// GenerateSecret returns a new raw API key and its display prefix. The raw
// key must be handed to the caller once and never stored.
func GenerateSecret() (raw, prefix string, err error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", "", err
	}
	raw = SecretPrefix + id.String()
	return raw, raw[:PrefixLength], nil
}

// Hasher produces the stored digest of a raw key. With a pepper the digest
// is a keyed BLAKE2b-256 MAC, otherwise a plain BLAKE2b-256 hash.
type Hasher struct {
	key []byte
}

func NewHasher(pepper string) Hasher {
	if pepper == "" {
		return Hasher{}
	}
	key := []byte(pepper)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return Hasher{key: key}
}

func (h Hasher) Digest(raw string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// only returned for keys longer than 64 bytes, which NewHasher prevents
		panic(err)
	}
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
