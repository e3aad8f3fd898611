package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/meisaku0/backend/internal/autherr"
)

// Argon2Params are the argon2id work factors.
type Argon2Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the interactive-login profile (19 MiB, 2 passes, 1 lane).
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryKiB:   19 * 1024,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

const (
	minMemoryKiB = 8
	maxMemoryKiB = 1024 * 1024
	maxIter      = 20
)

var errMalformedHash = errors.New("malformed argon2id hash")

// Hasher hashes and verifies passwords with argon2id. Hashes are PHC strings:
// $argon2id$v=19$m=<kib>,t=<iter>,p=<lanes>$<salt>$<key> (unpadded base64).
type Hasher struct {
	params Argon2Params
	rand   io.Reader
}

// NewHasher returns a Hasher for p. Zero or out-of-range fields fall back to defaults.
func NewHasher(p Argon2Params) *Hasher {
	def := DefaultArgon2Params()
	if p.MemoryKiB < minMemoryKiB || p.MemoryKiB > maxMemoryKiB {
		p.MemoryKiB = def.MemoryKiB
	}
	if p.Iterations == 0 || p.Iterations > maxIter {
		p.Iterations = def.Iterations
	}
	if p.Parallelism == 0 {
		p.Parallelism = def.Parallelism
	}
	if p.SaltLength < 8 {
		p.SaltLength = def.SaltLength
	}
	if p.KeyLength < 16 {
		p.KeyLength = def.KeyLength
	}
	return &Hasher{params: p, rand: rand.Reader}
}

// Params returns the work factors new hashes are created with.
func (h *Hasher) Params() Argon2Params { return h.params }

// Hash derives a key from password with a fresh random salt. It returns the PHC
// string and the encoded salt separately.
func (h *Hasher) Hash(password string) (hash, salt string, err error) {
	rawSalt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(h.rand, rawSalt); err != nil {
		return "", "", autherr.Wrap(autherr.PasswordHashingFailure, err)
	}
	key := argon2.IDKey([]byte(password), rawSalt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)
	salt = base64.RawStdEncoding.EncodeToString(rawSalt)
	hash = fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.MemoryKiB, h.params.Iterations, h.params.Parallelism,
		salt, base64.RawStdEncoding.EncodeToString(key))
	return hash, salt, nil
}

// Verify reports whether password matches encoded. A malformed hash and a mismatch
// are indistinguishable to the caller.
func (h *Hasher) Verify(password, encoded string) bool {
	p, salt, key, err := decodeHash(encoded)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(got, key) == 1
}

func decodeHash(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Parallelism); err != nil {
		return p, nil, nil, errMalformedHash
	}
	if p.MemoryKiB < minMemoryKiB || p.MemoryKiB > maxMemoryKiB || p.Iterations == 0 || p.Iterations > maxIter || p.Parallelism == 0 {
		return p, nil, nil, errMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < 8 {
		return p, nil, nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < 16 {
		return p, nil, nil, errMalformedHash
	}
	return p, salt, key, nil
}
