package main

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Identity is what a successful AuthProvider.verify call resolves to.
type Identity struct {
	Name string
}

// AuthError is returned by AuthProvider.Verify on a failed check. It's a
// distinct type (rather than a bare error) so callers can tell "credential
// rejected" apart from "provider malfunctioned" if they ever need to.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return e.Reason
}

// AuthProvider verifies a user/credential pair and returns an Identity or
// an error. Implementations may suspend (network SASL backends, etc.);
// this one is local and synchronous.
type AuthProvider interface {
	Verify(user, credential string) (*Identity, error)
}

// OperAuthProvider checks a user/credential pair against the bcrypt-hashed
// operator password list loaded from StateConfig.Opers, and optionally
// against a single server-wide password.
type OperAuthProvider struct {
	Opers          map[string]string
	ServerPassword string
}

// Verify implements AuthProvider.
func (a *OperAuthProvider) Verify(user, credential string) (*Identity, error) {
	hash, ok := a.Opers[user]
	if !ok {
		return nil, &AuthError{Reason: "no such oper"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)); err != nil {
		return nil, &AuthError{Reason: "password mismatch"}
	}
	return &Identity{Name: user}, nil
}

// CheckServerPassword reports whether credential matches the server-wide
// password, if one is configured. No password configured always passes.
func (a *OperAuthProvider) CheckServerPassword(credential string) bool {
	if a.ServerPassword == "" {
		return true
	}
	return credential == a.ServerPassword
}

// HashOperPassword bcrypt-hashes a plaintext operator password for storage
// in the opers config file. Exposed for the CLI's hash-password subcommand
// (args.go).
func HashOperPassword(plaintext string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// decodeSASLPlain decodes a base64 SASL PLAIN response into its three
// NUL-separated fields (authzid, authcid, password), per RFC 4616.
func decodeSASLPlain(b64 string) (authzid, authcid, password string, err error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid base64: %s", err)
	}

	parts := strings.SplitN(string(raw), "\x00", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed PLAIN response")
	}

	return parts[0], parts[1], parts[2], nil
}
