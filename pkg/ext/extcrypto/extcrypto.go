// Package extcrypto provides hashing and identifier functions.
//
// MD5 and SHA-1 are available for fingerprinting legacy data only.
package extcrypto

import (
	"context"
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // fingerprinting only
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // fingerprinting only
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

// Category is the catalog category of the functions in this pack.
const Category = "Crypto"

var hashes = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// All returns the definitions of the pack.
func All() []functions.Def {
	return []functions.Def{UUID(), Hash(), HMAC()}
}

// Extension registers every function of the pack.
func Extension() functions.Extension {
	return functions.Defs(All()...)
}

// UUID defines uuid(), which returns a random version 4 UUID.
func UUID() functions.Def {
	return functions.Def{
		Name:        "uuid",
		Category:    Category,
		Description: "Generates a random version 4 UUID",
		Example:     `uuid()`,
		Impl: func(_ context.Context, _ functions.Caller, _ []udm.Value) (udm.Value, error) {
			var b [16]byte
			if _, err := rand.Read(b[:]); err != nil {
				return nil, fmt.Errorf("generate random bytes: %w", err)
			}
			b[6] = (b[6] & 0x0f) | 0x40
			b[8] = (b[8] & 0x3f) | 0x80
			return udm.String(fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])), nil
		},
	}
}

// Hash defines hash(s, algorithm?), a lowercase hex digest. The algorithm
// defaults to sha256.
func Hash() functions.Def {
	return functions.Def{
		Name:        "hash",
		MinArgs:     1,
		MaxArgs:     2,
		Category:    Category,
		Description: "Hex digest of a string (md5, sha1, sha256, sha384, sha512)",
		Example:     `hash("abc", "sha1")`,
		Impl: func(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
			s, err := functions.StringArg(args, 0)
			if err != nil {
				return nil, err
			}
			newHash, err := algorithm(args, 1)
			if err != nil {
				return nil, err
			}
			h := newHash()
			h.Write([]byte(s))
			return udm.String(hex.EncodeToString(h.Sum(nil))), nil
		},
	}
}

// HMAC defines hmac(s, key, algorithm?), a lowercase hex MAC.
func HMAC() functions.Def {
	return functions.Def{
		Name:        "hmac",
		MinArgs:     2,
		MaxArgs:     3,
		Category:    Category,
		Description: "Hex HMAC of a string with a key",
		Example:     `hmac("message", "secret", "sha256")`,
		Impl: func(_ context.Context, _ functions.Caller, args []udm.Value) (udm.Value, error) {
			s, err := functions.StringArg(args, 0)
			if err != nil {
				return nil, err
			}
			key, err := functions.StringArg(args, 1)
			if err != nil {
				return nil, err
			}
			newHash, err := algorithm(args, 2)
			if err != nil {
				return nil, err
			}
			mac := hmac.New(newHash, []byte(key))
			mac.Write([]byte(s))
			return udm.String(hex.EncodeToString(mac.Sum(nil))), nil
		},
	}
}

func algorithm(args []udm.Value, i int) (func() hash.Hash, error) {
	name, err := functions.OptionalString(args, i, "sha256")
	if err != nil {
		return nil, err
	}
	h, ok := hashes[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported algorithm %q; use md5, sha1, sha256, sha384 or sha512", name)
	}
	return h, nil
}
