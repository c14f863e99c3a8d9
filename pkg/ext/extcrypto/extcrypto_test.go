package extcrypto_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/grauwen/utl-x-sub015/pkg/ext/extcrypto"
	"github.com/grauwen/utl-x-sub015/pkg/functions"
	"github.com/grauwen/utl-x-sub015/pkg/udm"
)

func registry(t *testing.T) *functions.Registry {
	t.Helper()
	b := functions.NewBuilder()
	if err := extcrypto.Extension()(b); err != nil {
		t.Fatal(err)
	}
	return b.Build()
}

func call(t *testing.T, reg *functions.Registry, name string, args ...udm.Value) (udm.Value, error) {
	t.Helper()
	return reg.Call(context.Background(), nil, name, args)
}

func TestHash(t *testing.T) {
	reg := registry(t)
	tests := []struct {
		algorithm string
		want      string
	}{
		{"md5", "900150983cd24fb0d6963f7d28e17f72"},
		{"sha1", "a9993e364706816aba3e25717850c26c9cd0d89d"},
		{"SHA256", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
	}
	for _, tt := range tests {
		t.Run(tt.algorithm, func(t *testing.T) {
			got, err := call(t, reg, "hash", udm.String("abc"), udm.String(tt.algorithm))
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("hash(abc, %s) = %s", tt.algorithm, got)
			}
		})
	}

	def, err := call(t, reg, "hash", udm.String("abc"))
	if err != nil {
		t.Fatal(err)
	}
	if def.String() != tests[2].want {
		t.Errorf("default algorithm digest = %s", def)
	}
	if _, err := call(t, reg, "hash", udm.String("abc"), udm.String("crc32")); err == nil {
		t.Error("unsupported algorithm accepted")
	}
}

func TestHMAC(t *testing.T) {
	reg := registry(t)
	got, err := call(t, reg, "hmac",
		udm.String("The quick brown fox jumps over the lazy dog"), udm.String("key"), udm.String("sha256"))
	if err != nil {
		t.Fatal(err)
	}
	if want := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"; got.String() != want {
		t.Fatalf("hmac = %s, want %s", got, want)
	}
}

func TestUUID(t *testing.T) {
	reg := registry(t)
	pattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	a, err := call(t, reg, "uuid")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := call(t, reg, "uuid")
	if !pattern.MatchString(a.String()) {
		t.Errorf("uuid %s is not a v4 UUID", a)
	}
	if a.String() == b.String() {
		t.Error("uuid returned the same value twice")
	}
}
