package main

import "strings"

// matchMask reports whether s matches the glob-style pattern mask, where
// '*' matches any run of characters (including none) and '?' matches
// exactly one character. Matching is byte-wise and case-sensitive; callers
// that want case-insensitive matching must canonicalize both sides first.
//
// This is the textbook greedy-with-backtracking glob algorithm used by
// path.Match: split the pattern into chunks at each '*', then find each
// chunk in order within the remaining suffix of the input, advancing past
// the match each time.
func matchMask(mask, s string) bool {
	for len(mask) > 0 {
		star, chunk, rest := scanChunk(mask)
		if star && chunk == "" {
			// Trailing '*' (or leading) matches anything left.
			mask = rest
			if mask == "" {
				return true
			}
			continue
		}

		if star {
			// Find chunk anywhere in s, backtracking through each candidate
			// start position until the rest of the pattern also matches, or we
			// run out of input.
			for i := 0; i <= len(s); i++ {
				if matchChunk(chunk, s[i:]) && len(s[i:]) >= len(chunk) {
					if matchMask(rest, s[i+len(chunk):]) {
						return true
					}
				}
			}
			return false
		}

		// No leading '*': chunk must match at the very start of s.
		if !matchChunk(chunk, s) {
			return false
		}
		s = s[len(chunk):]
		mask = rest
	}

	return s == ""
}

// scanChunk splits mask into: whether it begins with a '*', the literal/'?'
// chunk up to (not including) the next '*', and the remainder of the
// pattern starting at that next '*' (or "" if there is none).
func scanChunk(mask string) (star bool, chunk string, rest string) {
	if len(mask) > 0 && mask[0] == '*' {
		star = true
		mask = mask[1:]
		for len(mask) > 0 && mask[0] == '*' {
			mask = mask[1:]
		}
	}

	idx := strings.IndexByte(mask, '*')
	if idx == -1 {
		return star, mask, ""
	}
	return star, mask[:idx], mask[idx:]
}

// matchChunk reports whether the literal/'?' chunk matches a prefix of s of
// exactly len(chunk) characters, honoring '?' as a single-character
// wildcard. It returns false when s is shorter than chunk.
func matchChunk(chunk, s string) bool {
	if len(s) < len(chunk) {
		return false
	}
	for i := 0; i < len(chunk); i++ {
		if chunk[i] == '?' {
			continue
		}
		if chunk[i] != s[i] {
			return false
		}
	}
	return true
}

// MaskSet is an ordered collection of IRC masks (nick!user@host patterns,
// possibly with '*'/'?' wildcards) with no duplicates. Insertion order is
// preserved so wire-facing enumeration (RPL_BANLIST and friends) is
// deterministic.
type MaskSet struct {
	masks []string
}

// insert adds mask to the set. Returns false if it was already present.
func (s *MaskSet) insert(mask string) bool {
	for _, m := range s.masks {
		if m == mask {
			return false
		}
	}
	s.masks = append(s.masks, mask)
	return true
}

// remove deletes mask from the set. Returns false if it was not present.
func (s *MaskSet) remove(mask string) bool {
	for i, m := range s.masks {
		if m == mask {
			s.masks = append(s.masks[:i], s.masks[i+1:]...)
			return true
		}
	}
	return false
}

// isMatch reports whether any mask in the set matches s.
func (s *MaskSet) isMatch(target string) bool {
	for _, m := range s.masks {
		if matchMask(m, target) {
			return true
		}
	}
	return false
}

// list returns the masks in insertion order. The caller must not mutate it.
func (s *MaskSet) list() []string {
	return s.masks
}
