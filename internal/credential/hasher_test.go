package credential_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"

	"github.com/daap14/tenantauth/internal/apperr"
	"github.com/daap14/tenantauth/internal/credential"
)

// low cost for fast tests
var testParams = credential.Params{N: 1024, R: 8, P: 1, SaltLen: 16, KeyLen: 64}

func newTestHasher() *credential.Hasher {
	return credential.NewHasher(2, credential.WithParams(testParams))
}

func TestHash_Format(t *testing.T) {
	h := newTestHasher()

	encoded, err := h.Hash(context.Background(), "Passw0rd!")
	require.NoError(t, err)

	parts := strings.Split(encoded, ":")
	require.Len(t, parts, 6)
	assert.Equal(t, "scrypt", parts[0])
	assert.Equal(t, []string{"1024", "8", "1"}, parts[1:4])
	assert.Len(t, parts[4], 32, "16-byte salt hex encoded")
	assert.Len(t, parts[5], 128, "64-byte key hex encoded")
}

func TestHash_SaltIsRandom(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	a, err := h.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHash_WeakPassword(t *testing.T) {
	h := newTestHasher()

	_, err := h.Hash(context.Background(), "short")
	require.Error(t, err)
	assert.ErrorIs(t, err, credential.ErrWeakPassword)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestVerify_RoundTrip(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	encoded, err := h.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)

	assert.True(t, h.Verify(ctx, "Passw0rd!", encoded))
	assert.False(t, h.Verify(ctx, "Passw0rd?", encoded))
	assert.False(t, h.Verify(ctx, "", encoded))
}

func TestVerify_FailsClosedOnMalformedInput(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	cases := []string{
		"",
		"garbage",
		"scrypt:",
		"scrypt:zz:zz",
		"scrypt:00112233:abcd",
		"scrypt:1000:8:1:00112233:" + strings.Repeat("ab", 64),
		"scrypt:x:8:1:00112233:" + strings.Repeat("ab", 64),
		"scrypt:1024:0:1:00112233:" + strings.Repeat("ab", 64),
		"scrypt:4194304:8:1:00112233:" + strings.Repeat("ab", 64),
		"scrypt:1024:8:1::" + strings.Repeat("ab", 64),
		"scrypt:1024:8:1:00112233:",
		"bcrypt:0011:2233",
		"salt$not-hex",
		"$" + strings.Repeat("ab", 64),
	}
	for _, encoded := range cases {
		t.Run(encoded, func(t *testing.T) {
			assert.False(t, h.Verify(ctx, "Passw0rd!", encoded))
		})
	}
}

func TestVerify_LegacyPBKDF2(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	salt := "9f86d081884c7d659a2feaa0c55ad015"
	key := pbkdf2.Key([]byte("Passw0rd!"), []byte(salt), 100000, 64, sha256.New)
	legacy := salt + "$" + hex.EncodeToString(key)

	assert.True(t, h.Verify(ctx, "Passw0rd!", legacy))
	assert.False(t, h.Verify(ctx, "wrong", legacy))
	assert.True(t, h.NeedsRehash(legacy))
}

func TestNeedsRehash_CurrentAlgorithm(t *testing.T) {
	h := newTestHasher()

	encoded, err := h.Hash(context.Background(), "Passw0rd!")
	require.NoError(t, err)

	assert.False(t, h.NeedsRehash(encoded))
}

func TestVerify_HashWrittenUnderOlderParams(t *testing.T) {
	ctx := context.Background()
	old := newTestHasher()

	encoded, err := old.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)

	stronger := testParams
	stronger.N = 2048
	current := credential.NewHasher(2, credential.WithParams(stronger))

	assert.True(t, current.Verify(ctx, "Passw0rd!", encoded), "cost is read from the hash")
	assert.False(t, current.Verify(ctx, "Passw0rd?", encoded))
	assert.True(t, current.NeedsRehash(encoded))
	assert.False(t, old.NeedsRehash(encoded))

	upgraded, err := current.Hash(ctx, "Passw0rd!")
	require.NoError(t, err)
	assert.False(t, current.NeedsRehash(upgraded))
	assert.True(t, old.Verify(ctx, "Passw0rd!", upgraded))
}

func TestVerify_ShortScryptForm(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	salt := []byte("0123456789abcdef")
	key, err := scrypt.Key([]byte("Passw0rd!"), salt, testParams.N, testParams.R, testParams.P, testParams.KeyLen)
	require.NoError(t, err)
	short := "scrypt:" + hex.EncodeToString(salt) + ":" + hex.EncodeToString(key)

	assert.True(t, h.Verify(ctx, "Passw0rd!", short))
	assert.True(t, h.NeedsRehash(short))
}

func TestVerify_CancelledContext(t *testing.T) {
	h := credential.NewHasher(1, credential.WithParams(testParams))

	encoded, err := h.Hash(context.Background(), "Passw0rd!")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, h.Verify(ctx, "Passw0rd!", encoded))
}

func TestHash_Concurrent(t *testing.T) {
	h := newTestHasher()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			encoded, err := h.Hash(ctx, "Passw0rd!")
			if err != nil {
				return
			}
			results[i] = h.Verify(ctx, "Passw0rd!", encoded)
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "goroutine %d", i)
	}
}

func TestDummyVerify_DoesNotPanic(t *testing.T) {
	h := newTestHasher()
	assert.NotPanics(t, func() {
		h.DummyVerify(context.Background(), "anything")
	})
}
