package smb2engine

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"unicode/utf16"

	"golang.org/x/crypto/md4"
)

// NTHash computes the NT one-way function of a password: MD4 over its
// UTF-16LE encoding.
func NTHash(password string) []byte {
	h := md4.New()
	h.Write(encodeUTF16LE(password))
	return h.Sum(nil)
}

// decodeNTHash parses a 32-digit hex NT hash.
func decodeNTHash(s string) ([]byte, error) {
	hash, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid NT hash: %w", err)
	}
	if len(hash) != 16 {
		return nil, fmt.Errorf("invalid NT hash length: %d", len(hash))
	}
	return hash, nil
}

func encodeUTF16LE(s string) []byte {
	runes := utf16.Encode([]rune(s))
	buf := make([]byte, len(runes)*2)
	for i, r := range runes {
		binary.LittleEndian.PutUint16(buf[i*2:], r)
	}
	return buf
}
