package main

import "testing"

func TestMatchMask(t *testing.T) {
	tests := []struct {
		mask string
		s    string
		want bool
	}{
		{"*!*@*", "nick!user@host", true},
		{"nick!*@*", "nick!user@host", true},
		{"nick!*@*", "other!user@host", false},
		{"*!user@host.example.org", "nick!user@host.example.org", true},
		{"n?ck!*@*", "nick!user@host", true},
		{"n?ck!*@*", "nck!user@host", false},
		{"*.example.org", "irc.example.org", true},
		{"*.example.org", "irc.example.com", false},
		{"", "", true},
		{"", "x", false},
		{"***", "anything", true},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "aXbYd", false},
	}

	for _, test := range tests {
		got := matchMask(test.mask, test.s)
		if got != test.want {
			t.Errorf("matchMask(%q, %q) = %v, wanted %v", test.mask, test.s, got, test.want)
		}
	}
}

func TestMaskSet(t *testing.T) {
	var s MaskSet

	if !s.insert("*!*@host1") {
		t.Fatalf("insert of new mask reported false")
	}
	if s.insert("*!*@host1") {
		t.Fatalf("insert of duplicate mask reported true")
	}
	if !s.insert("*!*@host2") {
		t.Fatalf("insert of second mask reported false")
	}

	if !s.isMatch("nick!user@host1") {
		t.Errorf("expected host1 to match")
	}
	if s.isMatch("nick!user@host3") {
		t.Errorf("did not expect host3 to match")
	}

	got := s.list()
	want := []string{"*!*@host1", "*!*@host2"}
	if len(got) != len(want) {
		t.Fatalf("list() = %v, wanted %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("list()[%d] = %s, wanted %s", i, got[i], want[i])
		}
	}

	if !s.remove("*!*@host1") {
		t.Fatalf("remove of present mask reported false")
	}
	if s.remove("*!*@host1") {
		t.Fatalf("remove of absent mask reported true")
	}
	if s.isMatch("nick!user@host1") {
		t.Errorf("did not expect host1 to match after removal")
	}
}
