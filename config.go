package main

import (
	"fmt"
	"io/ioutil"
	"strconv"
	"time"

	"github.com/horgh/config"
	"github.com/pkg/errors"
)

// StateConfig holds the shared state's configuration. It is the external
// input the core receives; loading it from disk is a flat key=value file
// read with config.ReadStringMap, with each value converted to its target
// type by hand, plus a second key=value file specifically for opers.
type StateConfig struct {
	ListenHost string
	ListenPort string
	Domain     string

	// DefaultChanMode must parse as a channel mode string (e.g. "+nt").
	DefaultChanMode string

	MOTDFile string

	// Opers maps oper name to bcrypt-hashed password.
	Opers map[string]string

	// Password is an optional server-wide connection password. Blank means
	// no password required.
	Password string

	AwayLen    int
	ChannelLen int
	KeyLen     int
	KickLen    int
	NameLen    int
	NickLen    int
	TopicLen   int
	UserLen    int

	LoginTimeoutMS int

	OrgName     string
	OrgLocation string
	OrgMail     string

	// Rate limiting. Not presently exposed as required keys in the config
	// file; these are the hard-coded defaults used unless overridden here.
	RateLimitBurst int
	RateLimitMS    int
}

var requiredConfigKeys = []string{
	"listen-host",
	"listen-port",
	"domain",
	"default-chan-mode",
	"motd-file",
	"opers-config",
	"away-len",
	"channel-len",
	"key-len",
	"kick-len",
	"name-len",
	"nick-len",
	"topic-len",
	"user-len",
	"login-timeout-ms",
	"org-name",
	"org-location",
	"org-mail",
}

// loadConfig reads and validates the configuration file at path, along with
// the separate opers file it references. Parse failures carry
// human-readable context: the returned error names the file and, when a
// value is at fault, the offending key.
func loadConfig(path string) (*StateConfig, error) {
	raw, err := config.ReadStringMap(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read configuration file %s", path)
	}

	for _, key := range requiredConfigKeys {
		v, exists := raw[key]
		if !exists {
			return nil, fmt.Errorf("configuration file %s: missing required key: %s", path, key)
		}
		// motd-file may be blank: readMOTD treats "" as no MOTD.
		if len(v) == 0 && key != "motd-file" {
			return nil, fmt.Errorf("configuration file %s: value is blank: %s", path, key)
		}
	}

	cfg := &StateConfig{
		ListenHost:      raw["listen-host"],
		ListenPort:      raw["listen-port"],
		Domain:          raw["domain"],
		DefaultChanMode: raw["default-chan-mode"],
		MOTDFile:        raw["motd-file"],
		Password:        raw["password"],
		OrgName:         raw["org-name"],
		OrgLocation:     raw["org-location"],
		OrgMail:         raw["org-mail"],
		RateLimitBurst:  16,
		RateLimitMS:     1024,
	}

	intFields := map[string]*int{
		"away-len":    &cfg.AwayLen,
		"channel-len": &cfg.ChannelLen,
		"key-len":     &cfg.KeyLen,
		"kick-len":    &cfg.KickLen,
		"name-len":    &cfg.NameLen,
		"nick-len":    &cfg.NickLen,
		"topic-len":   &cfg.TopicLen,
		"user-len":    &cfg.UserLen,
	}
	for key, dst := range intFields {
		n, err := strconv.Atoi(raw[key])
		if err != nil {
			return nil, errors.Wrapf(err, "configuration file %s: %s is not a valid integer", path, key)
		}
		*dst = n
	}

	timeoutMS, err := strconv.Atoi(raw["login-timeout-ms"])
	if err != nil {
		return nil, errors.Wrapf(err, "configuration file %s: login-timeout-ms is not a valid integer", path)
	}
	cfg.LoginTimeoutMS = timeoutMS

	if v, ok := raw["rate-limit-burst"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrapf(err, "configuration file %s: rate-limit-burst is not a valid integer", path)
		}
		cfg.RateLimitBurst = n
	}
	if v, ok := raw["rate-limit-ms"]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrapf(err, "configuration file %s: rate-limit-ms is not a valid integer", path)
		}
		cfg.RateLimitMS = n
	}

	opers, err := config.ReadStringMap(raw["opers-config"])
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load opers config %s", raw["opers-config"])
	}
	cfg.Opers = opers

	if _, err := parseModeStringSanity(cfg.DefaultChanMode); err != nil {
		return nil, errors.Wrapf(err, "configuration file %s: default-chan-mode is invalid", path)
	}

	return cfg, nil
}

// parseModeStringSanity validates that a default-chan-mode value at least
// looks like a mode string (starts with + or -, contains only letters we
// recognize for the flag subset a default can carry).
func parseModeStringSanity(s string) (bool, error) {
	if s == "" {
		return true, nil
	}
	if s[0] != '+' && s[0] != '-' {
		return false, fmt.Errorf("must begin with '+' or '-': %q", s)
	}
	for _, ch := range s {
		switch ch {
		case '+', '-', 'i', 'm', 'n', 's', 't':
			continue
		default:
			return false, fmt.Errorf("unsupported character in default channel mode: %q", string(ch))
		}
	}
	return true, nil
}

// readMOTD reads the MOTD file, returning its lines. A missing file is not
// fatal: ERR_NOMOTD is sent instead.
func readMOTD(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := []string{}
	start := 0
	for i, c := range b {
		if c == '\n' {
			lines = append(lines, string(b[start:i]))
			start = i + 1
		}
	}
	if start < len(b) {
		lines = append(lines, string(b[start:]))
	}
	return lines, nil
}

// loginTimeout returns the login timeout as a time.Duration.
func (c *StateConfig) loginTimeout() time.Duration {
	return time.Duration(c.LoginTimeoutMS) * time.Millisecond
}

// rateLimitPeriod returns the rate-limit refill period as a time.Duration.
func (c *StateConfig) rateLimitPeriod() time.Duration {
	return time.Duration(c.RateLimitMS) * time.Millisecond
}
