package main

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "chatterbox-config-*.conf")
	require.NoError(t, err)
	_, err = f.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	t.Cleanup(func() { _ = os.Remove(f.Name()) })
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	opersPath := writeTempFile(t, "alice = somehash\n")
	configPath := writeTempFile(t, `listen-host = 0.0.0.0
listen-port = 6667
domain = irc.example.org
default-chan-mode = +nt
motd-file =
opers-config = `+opersPath+`
away-len = 200
channel-len = 50
key-len = 23
kick-len = 200
name-len = 50
nick-len = 30
topic-len = 300
user-len = 10
login-timeout-ms = 60000
org-name = Example
org-location = Earth
org-mail = irc@example.org
`)

	cfg, err := loadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "irc.example.org", cfg.Domain)
	assert.Equal(t, 30, cfg.NickLen)
	assert.Equal(t, "+nt", cfg.DefaultChanMode)
	assert.Equal(t, "somehash", cfg.Opers["alice"])
	assert.Equal(t, 16, cfg.RateLimitBurst)
}

func TestLoadConfigMissingKey(t *testing.T) {
	configPath := writeTempFile(t, "listen-host = 0.0.0.0\n")
	_, err := loadConfig(configPath)
	require.Error(t, err)
}

func TestParseModeStringSanity(t *testing.T) {
	if ok, err := parseModeStringSanity(""); !ok || err != nil {
		t.Errorf("expected empty string to be valid, got ok=%v err=%s", ok, err)
	}
	if ok, err := parseModeStringSanity("+nt"); !ok || err != nil {
		t.Errorf("expected +nt to be valid, got ok=%v err=%s", ok, err)
	}
	if _, err := parseModeStringSanity("nt"); err == nil {
		t.Errorf("expected a string with no leading +/- to be rejected")
	}
	if _, err := parseModeStringSanity("+k"); err == nil {
		t.Errorf("expected +k (a parameterized mode) to be rejected from a default string")
	}
}
