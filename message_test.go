package main

import (
	"strings"
	"testing"
)

func TestParseMessage(t *testing.T) {
	tests := []struct {
		line        string
		wantOK      bool
		wantCommand string
		wantParams  []string
		wantPrefix  string
	}{
		{"PING :irc.example.org", true, "PING", []string{"irc.example.org"}, ""},
		{":nick!user@host PRIVMSG #chan :hello there", true, "PRIVMSG",
			[]string{"#chan", "hello there"}, "nick!user@host"},
		{"JOIN #chan", true, "JOIN", []string{"#chan"}, ""},
		{"nick", true, "NICK", nil, ""},
		{"", false, "", nil, ""},
		{"   ", false, "", nil, ""},
	}

	for _, test := range tests {
		msg, ok := ParseMessage(test.line)
		if ok != test.wantOK {
			t.Errorf("ParseMessage(%q) ok = %v, wanted %v", test.line, ok, test.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if msg.Command != test.wantCommand {
			t.Errorf("ParseMessage(%q) command = %q, wanted %q", test.line, msg.Command, test.wantCommand)
		}
		if msg.Prefix != test.wantPrefix {
			t.Errorf("ParseMessage(%q) prefix = %q, wanted %q", test.line, msg.Prefix, test.wantPrefix)
		}
		if len(msg.Params) != len(test.wantParams) {
			t.Errorf("ParseMessage(%q) params = %v, wanted %v", test.line, msg.Params, test.wantParams)
			continue
		}
		for i := range test.wantParams {
			if msg.Params[i] != test.wantParams[i] {
				t.Errorf("ParseMessage(%q) params[%d] = %q, wanted %q", test.line, i, msg.Params[i], test.wantParams[i])
			}
		}
	}
}

func TestParseMessageTags(t *testing.T) {
	msg, ok := ParseMessage("@label=abc;+draft/reply=123 PRIVMSG #chan :hi")
	if !ok {
		t.Fatalf("ParseMessage returned ok=false")
	}
	if msg.Tags["label"] != "abc" {
		t.Errorf("label tag = %q, wanted abc", msg.Tags["label"])
	}
	if msg.Tags["+draft/reply"] != "123" {
		t.Errorf("+draft/reply tag = %q, wanted 123", msg.Tags["+draft/reply"])
	}
	if !IsClientTag("+draft/reply") {
		t.Errorf("expected +draft/reply to be a client tag")
	}
	if IsClientTag("label") {
		t.Errorf("did not expect label to be a client tag")
	}
}

func TestTagValueEscapeRoundTrip(t *testing.T) {
	values := []string{
		"plain",
		"has space",
		"semi;colon",
		"back\\slash",
		"cr\rlf\n",
		"",
	}

	var scratch strings.Builder
	for _, v := range values {
		escaped := escapeTagValue(&scratch, v)
		got := unescapeTagValue(escaped)
		if got != v {
			t.Errorf("round trip of %q produced %q", v, got)
		}
	}
}
