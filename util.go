package main

import "strings"

// canonicalizeNick converts the given nick to its canonical representation
// (which must be unique).
//
// Note: We don't check validity or strip whitespace.
func canonicalizeNick(n string) string {
	return strings.ToLower(n)
}

// canonicalizeChannel converts the given channel to its canonical
// representation (which must be unique).
//
// Note: We don't check validity or strip whitespace.
func canonicalizeChannel(c string) string {
	return strings.ToLower(c)
}

// isValidNick checks if a nickname is valid against maxLen (StateConfig's
// NickLen).
func isValidNick(maxLen int, n string) bool {
	if len(n) == 0 || len(n) > maxLen {
		return false
	}

	for i, char := range n {
		if char >= 'a' && char <= 'z' || char >= 'A' && char <= 'Z' {
			continue
		}

		if char >= '0' && char <= '9' {
			// No digits in first position.
			if i == 0 {
				return false
			}
			continue
		}

		switch char {
		case '_', '-', '[', ']', '\\', '`', '^', '{', '}', '|':
			continue
		}

		return false
	}

	return true
}

// isValidUser checks if a user (USER command) is valid against maxLen
// (StateConfig's UserLen).
func isValidUser(maxLen int, u string) bool {
	if len(u) == 0 || len(u) > maxLen {
		return false
	}

	for _, char := range u {
		if char >= 'a' && char <= 'z' || char >= 'A' && char <= 'Z' {
			continue
		}

		if char >= '0' && char <= '9' {
			continue
		}

		switch char {
		case '_', '-', '.':
			continue
		}

		return false
	}

	return true
}

// isValidChannel checks a channel name for validity against maxLen
// (StateConfig's ChannelLen). You should canonicalize it before using this
// function.
func isValidChannel(maxLen int, c string) bool {
	if len(c) == 0 || len(c) > maxLen {
		return false
	}

	if c[0] != '#' && c[0] != '&' {
		return false
	}

	for _, char := range c[1:] {
		if char == ' ' || char == ',' || char == '\x07' || char == ':' {
			return false
		}
	}

	return true
}

// truncateRunes returns the first n code points of s (fewer if s is
// shorter). A non-positive n returns "".
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
