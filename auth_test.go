package main

import (
	"encoding/base64"
	"testing"
)

func TestDecodeSASLPlain(t *testing.T) {
	raw := "authzid\x00alice\x00hunter2"
	b64 := base64.StdEncoding.EncodeToString([]byte(raw))

	authzid, authcid, password, err := decodeSASLPlain(b64)
	if err != nil {
		t.Fatalf("decodeSASLPlain returned error: %s", err)
	}
	if authzid != "authzid" || authcid != "alice" || password != "hunter2" {
		t.Errorf("got (%q, %q, %q)", authzid, authcid, password)
	}
}

func TestDecodeSASLPlainMalformed(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString([]byte("not-enough-fields"))
	if _, _, _, err := decodeSASLPlain(b64); err == nil {
		t.Errorf("expected an error for a malformed PLAIN response")
	}

	if _, _, _, err := decodeSASLPlain("not base64!!"); err == nil {
		t.Errorf("expected an error for invalid base64")
	}
}

func TestOperAuthProviderVerify(t *testing.T) {
	hash, err := HashOperPassword("hunter2")
	if err != nil {
		t.Fatalf("HashOperPassword returned error: %s", err)
	}

	auth := &OperAuthProvider{Opers: map[string]string{"alice": hash}}

	if _, err := auth.Verify("alice", "hunter2"); err != nil {
		t.Errorf("expected correct password to verify, got error: %s", err)
	}
	if _, err := auth.Verify("alice", "wrong"); err == nil {
		t.Errorf("expected wrong password to fail verification")
	}
	if _, err := auth.Verify("bob", "hunter2"); err == nil {
		t.Errorf("expected unknown oper to fail verification")
	}
}

func TestOperAuthProviderCheckServerPassword(t *testing.T) {
	noPassword := &OperAuthProvider{}
	if !noPassword.CheckServerPassword("anything") {
		t.Errorf("expected no configured password to always pass")
	}

	withPassword := &OperAuthProvider{ServerPassword: "letmein"}
	if !withPassword.CheckServerPassword("letmein") {
		t.Errorf("expected matching password to pass")
	}
	if withPassword.CheckServerPassword("wrong") {
		t.Errorf("expected mismatched password to fail")
	}
}
