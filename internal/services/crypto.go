package services

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// encryptionSalt must stay stable or stored secrets become unreadable
var encryptionSalt = []byte("pantry-settings-v1")

// DeriveEncryptionKey derives the 32-byte AES key for encrypted settings
func DeriveEncryptionKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), encryptionSalt, 100000, 32, sha256.New)
}
