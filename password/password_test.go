package password

import (
	"errors"
	"strings"
	"testing"
)

func testArgon2(t *testing.T) *Argon2 {
	t.Helper()
	a, err := NewArgon2(Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return a
}

func TestBcryptHashVerify(t *testing.T) {
	b, err := NewBcrypt(4)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	digest, err := b.Hash("Secret@123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(digest, "$2a$04$") {
		t.Fatalf("unexpected digest prefix: %q", digest)
	}

	ok, err := b.Verify("Secret@123", digest)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = b.Verify("Secret@124", digest)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, ok=%v err=%v", ok, err)
	}
	if _, err := b.Verify("Secret@123", "not-a-digest"); err == nil {
		t.Fatal("expected error for malformed digest")
	}
}

func TestBcryptCostBounds(t *testing.T) {
	if _, err := NewBcrypt(3); err == nil {
		t.Fatal("expected error for cost 3")
	}
	if _, err := NewBcrypt(32); err == nil {
		t.Fatal("expected error for cost 32")
	}
}

func TestBcryptNeedsUpgrade(t *testing.T) {
	low, _ := NewBcrypt(4)
	high, _ := NewBcrypt(5)
	digest, err := low.Hash("Secret@123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	up, err := high.NeedsUpgrade(digest)
	if err != nil || !up {
		t.Fatalf("expected upgrade, up=%v err=%v", up, err)
	}
	up, err = low.NeedsUpgrade(digest)
	if err != nil || up {
		t.Fatalf("expected no upgrade, up=%v err=%v", up, err)
	}
}

func TestArgon2HashVerify(t *testing.T) {
	a := testArgon2(t)
	digest, err := a.Hash("Secret@123")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC string: %q", digest)
	}

	ok, err := a.Verify("Secret@123", digest)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = a.Verify("secret@123", digest)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
}

func TestArgon2SaltsDiffer(t *testing.T) {
	a := testArgon2(t)
	first, _ := a.Hash("Secret@123")
	second, _ := a.Hash("Secret@123")
	if first == second {
		t.Fatal("expected distinct digests for the same password")
	}
}

func TestArgon2RejectsWeakConfig(t *testing.T) {
	cases := []Config{
		{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 0, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 0, SaltLength: 16, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 8, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 8},
	}
	for i, cfg := range cases {
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestArgon2MalformedDigests(t *testing.T) {
	a := testArgon2(t)
	digests := []string{
		"",
		"$argon2i$v=19$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA==$AAAA",
		"$argon2id$v=18$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA==$AAAA",
		"$argon2id$v=19$m=8192,t=1$AAAAAAAAAAAAAAAAAAAAAA==$AAAA",
		"$argon2id$v=19$m=8192,t=1,p=1,x=2$AAAAAAAAAAAAAAAAAAAAAA==$AAAA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$AAAA",
		"$argon2id$v=19$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA==$",
	}
	for _, d := range digests {
		if _, err := a.Verify("Secret@123", d); err == nil {
			t.Fatalf("expected error for %q", d)
		}
	}
}

func TestMigratingVerifiesBothSchemes(t *testing.T) {
	b, _ := NewBcrypt(4)
	a := testArgon2(t)
	m := Migrating{Primary: b, Bcrypt: b, Argon2: a}

	bDigest, _ := b.Hash("Secret@123")
	aDigest, _ := a.Hash("Secret@123")

	for _, d := range []string{bDigest, aDigest} {
		ok, err := m.Verify("Secret@123", d)
		if err != nil || !ok {
			t.Fatalf("expected match for %q, ok=%v err=%v", d[:8], ok, err)
		}
	}

	if _, err := m.Verify("Secret@123", "plain"); !errors.Is(err, ErrUnknownDigest) {
		t.Fatalf("expected ErrUnknownDigest, got %v", err)
	}

	digest, err := m.Hash("Secret@123")
	if err != nil || !isBcryptDigest(digest) {
		t.Fatalf("expected primary bcrypt digest, got %q err=%v", digest, err)
	}
}
