package smb2engine

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestNTHash(t *testing.T) {
	// Known vectors from the MS-NLMP examples.
	tests := []struct {
		password string
		want     string
	}{
		{"password", "8846f7eaee8fb117ad06bdd830b7586c"},
		{"Password", "a4b9b02e6f09a9bd760f388b67351e2b"},
		{"", "31d6cfe0d16ae931b73c59d7e0c089c0"},
	}
	for _, tt := range tests {
		got := hex.EncodeToString(NTHash(tt.password))
		if got != tt.want {
			t.Errorf("NTHash(%q) = %s, want %s", tt.password, got, tt.want)
		}
	}
}

func TestDecodeNTHash(t *testing.T) {
	const valid = "8846f7eaee8fb117ad06bdd830b7586c"

	hash, err := decodeNTHash(valid)
	if err != nil {
		t.Fatalf("decodeNTHash() error = %v", err)
	}
	if !bytes.Equal(hash, NTHash("password")) {
		t.Error("decoded hash does not match computed hash")
	}

	if _, err := decodeNTHash("8846f7"); err == nil {
		t.Error("short hash accepted")
	}
	if _, err := decodeNTHash("zz46f7eaee8fb117ad06bdd830b7586c"); err == nil {
		t.Error("non-hex hash accepted")
	}
}

func TestEncodeUTF16LE(t *testing.T) {
	got := encodeUTF16LE("ab")
	want := []byte{'a', 0, 'b', 0}
	if !bytes.Equal(got, want) {
		t.Errorf("encodeUTF16LE(ab) = %v, want %v", got, want)
	}
	// Characters outside the BMP encode as surrogate pairs.
	if n := len(encodeUTF16LE("\U0001F600")); n != 4 {
		t.Errorf("surrogate pair length = %d, want 4", n)
	}
}
