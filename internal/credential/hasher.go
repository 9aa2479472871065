// Package credential hashes and verifies user passwords.
//
// Encoded hashes carry their own cost: "scrypt:<N>:<r>:<p>:<saltHex>:<keyHex>".
// Raising the parameters therefore never invalidates stored hashes; they keep
// verifying under the cost they were written with and NeedsRehash flags them
// for upgrade on the next login. The short "scrypt:<saltHex>:<keyHex>" form
// (current parameters implied) and the PBKDF2 "<salt>$<keyHex>" form are
// accepted the same way.
package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"
)

const (
	algScrypt = "scrypt"

	legacyIterations = 100000
	legacyKeyLen     = 64

	// bounds on parameters read back from stored hashes
	maxN      = 1 << 20
	maxRP     = 64
	maxMemory = 1 << 28
	maxKeyLen = 128
)

// Params are the scrypt cost parameters.
type Params struct {
	N       int
	R       int
	P       int
	SaltLen int
	KeyLen  int
}

// DefaultParams are used in production.
var DefaultParams = Params{N: 32768, R: 8, P: 1, SaltLen: 16, KeyLen: 64}

// Hasher derives and verifies password hashes. Derivations are CPU and
// memory heavy, so at most `concurrency` run at the same time.
type Hasher struct {
	params Params
	sem    *semaphore.Weighted

	dummyOnce sync.Once
	dummy     string
}

// Option configures a Hasher.
type Option func(*Hasher)

// WithParams overrides the scrypt parameters. Tests use a low N.
func WithParams(p Params) Option {
	return func(h *Hasher) { h.params = p }
}

// NewHasher creates a Hasher allowing concurrency parallel derivations.
func NewHasher(concurrency int, opts ...Option) *Hasher {
	if concurrency < 1 {
		concurrency = 1
	}
	h := &Hasher{
		params: DefaultParams,
		sem:    semaphore.NewWeighted(int64(concurrency)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Hash validates password against the policy and returns its encoded hash.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	return h.hash(ctx, password)
}

func (h *Hasher) hash(ctx context.Context, password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key, err := h.derive(ctx, h.params, []byte(password), salt)
	if err != nil {
		return "", err
	}

	return strings.Join([]string{
		algScrypt,
		strconv.Itoa(h.params.N),
		strconv.Itoa(h.params.R),
		strconv.Itoa(h.params.P),
		hex.EncodeToString(salt),
		hex.EncodeToString(key),
	}, ":"), nil
}

// scryptHash is a decoded scrypt hash.
type scryptHash struct {
	params Params
	salt   []byte
	key    []byte
	short  bool
}

// parseScrypt decodes both scrypt forms. The short form takes the
// hasher's current cost.
func (h *Hasher) parseScrypt(encoded string) (scryptHash, bool) {
	parts := strings.Split(encoded, ":")
	if parts[0] != algScrypt {
		return scryptHash{}, false
	}

	var out scryptHash
	switch len(parts) {
	case 3:
		out.params = h.params
		out.short = true
		parts = parts[1:]
	case 6:
		var nums [3]int
		for i, raw := range parts[1:4] {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				return scryptHash{}, false
			}
			nums[i] = n
		}
		out.params = Params{N: nums[0], R: nums[1], P: nums[2]}
		if out.params.N < 2 || out.params.N > maxN || out.params.N&(out.params.N-1) != 0 ||
			out.params.R > maxRP || out.params.P > maxRP || 128*out.params.N*out.params.R > maxMemory {
			return scryptHash{}, false
		}
		parts = parts[4:]
	default:
		return scryptHash{}, false
	}

	salt, err := hex.DecodeString(parts[0])
	if err != nil || len(salt) == 0 {
		return scryptHash{}, false
	}
	key, err := hex.DecodeString(parts[1])
	if err != nil || len(key) == 0 || len(key) > maxKeyLen {
		return scryptHash{}, false
	}
	if out.short && len(key) != h.params.KeyLen {
		return scryptHash{}, false
	}
	out.salt = salt
	out.key = key
	out.params.SaltLen = len(salt)
	out.params.KeyLen = len(key)
	return out, true
}

// Verify reports whether password matches encoded. Any malformed input,
// unknown algorithm or derivation failure yields false.
func (h *Hasher) Verify(ctx context.Context, password, encoded string) bool {
	if strings.HasPrefix(encoded, algScrypt+":") {
		return h.verifyScrypt(ctx, password, encoded)
	}
	if strings.Contains(encoded, "$") {
		return h.verifyLegacy(ctx, password, encoded)
	}
	return false
}

// DummyVerify spends the same work as a real verification. Login calls it
// when the user does not exist so response timing does not reveal that.
func (h *Hasher) DummyVerify(ctx context.Context, password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = h.hash(context.Background(), "dummy-Passw0rd")
	})
	_ = h.Verify(ctx, password, h.dummy)
}

// NeedsRehash reports whether encoded was produced by another algorithm,
// in the short scrypt form, or with parameters other than the current ones.
func (h *Hasher) NeedsRehash(encoded string) bool {
	parsed, ok := h.parseScrypt(encoded)
	if !ok || parsed.short {
		return true
	}
	return parsed.params != h.params
}

func (h *Hasher) verifyScrypt(ctx context.Context, password, encoded string) bool {
	parsed, ok := h.parseScrypt(encoded)
	if !ok {
		return false
	}

	got, err := h.derive(ctx, parsed.params, []byte(password), parsed.salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, parsed.key) == 1
}

// verifyLegacy checks "<salt>$<keyHex>" where the salt string itself is the
// PBKDF2 salt input.
func (h *Hasher) verifyLegacy(ctx context.Context, password, encoded string) bool {
	salt, keyHex, ok := strings.Cut(encoded, "$")
	if !ok || salt == "" {
		return false
	}
	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != legacyKeyLen {
		return false
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), legacyIterations, legacyKeyLen, sha256.New)
	h.sem.Release(1)

	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *Hasher) derive(ctx context.Context, p Params, password, salt []byte) ([]byte, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for hash slot: %w", err)
	}
	defer h.sem.Release(1)

	key, err := scrypt.Key(password, salt, p.N, p.R, p.P, p.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	return key, nil
}
