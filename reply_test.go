package main

import (
	"strings"
	"testing"
)

func TestReplyBuilderNoLabelPassesThrough(t *testing.T) {
	buf := NewBuffer()
	rb := NewReplyBuilder(buf, "nick", "irc.example.org", Message{})

	rb.Numeric(RplWelcome, "Welcome")
	rb.LrEnd()

	got := buf.String()
	if strings.Contains(got, "BATCH") {
		t.Errorf("did not expect a BATCH wrapper without a label: %q", got)
	}
	if strings.Count(got, "\r\n") != 1 {
		t.Errorf("expected exactly one message, got %q", got)
	}
}

func TestReplyBuilderSingleMessageOptimization(t *testing.T) {
	inbound := Message{Tags: Tags{"label": "abc"}}
	buf := NewBuffer()
	rb := NewReplyBuilder(buf, "nick", "irc.example.org", inbound)

	rb.Numeric(RplEndOfNames, "#chan", "End of NAMES list")
	rb.LrEnd()

	got := buf.String()
	if strings.Contains(got, "BATCH") {
		t.Errorf("single deferred message should not open a BATCH wrapper: %q", got)
	}
	if !strings.Contains(got, "label=abc") {
		t.Errorf("expected the label tag on the lone message: %q", got)
	}
	if strings.Count(got, "\r\n") != 1 {
		t.Errorf("expected exactly one message, got %q", got)
	}
}

func TestReplyBuilderMultiMessageOpensBatch(t *testing.T) {
	inbound := Message{Tags: Tags{"label": "abc"}}
	buf := NewBuffer()
	rb := NewReplyBuilder(buf, "nick", "irc.example.org", inbound)

	rb.Numeric(RplNamReply, "=", "#chan", "nick1")
	rb.Numeric(RplNamReply, "=", "#chan", "nick2")
	rb.Numeric(RplEndOfNames, "#chan", "End of NAMES list")
	rb.LrEnd()

	got := buf.String()
	lines := strings.Split(strings.TrimRight(got, "\r\n"), "\r\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines (BATCH start, 3 messages, BATCH end), got %d: %q", len(lines), got)
	}
	if !strings.Contains(lines[0], "BATCH +0 labeled-response") {
		t.Errorf("expected first line to open the batch, got %q", lines[0])
	}
	if !strings.Contains(lines[0], "label=abc") {
		t.Errorf("expected the batch-open line tagged with the label, got %q", lines[0])
	}
	for _, line := range lines[1:4] {
		if !strings.Contains(line, "batch=0") {
			t.Errorf("expected every wrapped message tagged batch=0, got %q", line)
		}
	}
	if !strings.Contains(lines[4], "BATCH -0") {
		t.Errorf("expected last line to close the batch, got %q", lines[4])
	}
}

func TestReplyBuilderAcksWhenNothingProduced(t *testing.T) {
	inbound := Message{Tags: Tags{"label": "xyz"}}
	buf := NewBuffer()
	rb := NewReplyBuilder(buf, "nick", "irc.example.org", inbound)

	rb.LrEnd()

	got := buf.String()
	if !strings.Contains(got, "ACK") || !strings.Contains(got, "label=xyz") {
		t.Errorf("expected a labeled ACK, got %q", got)
	}
}

func TestReplyBuilderExplicitBatchNesting(t *testing.T) {
	buf := NewBuffer()
	rb := NewReplyBuilder(buf, "nick", "irc.example.org", Message{})

	id := rb.BatchBegin("netsplit")
	rb.Build(nil, "irc.example.org", "QUIT", func(m *MessageBuilder) {
		m.TrailingParam("split")
	})
	rb.BatchEnd()
	rb.LrEnd()

	got := buf.String()
	if !strings.Contains(got, "BATCH +0 netsplit") {
		t.Errorf("expected explicit batch open, got %q", got)
	}
	if !strings.Contains(got, "BATCH -0") {
		t.Errorf("expected explicit batch close, got %q", got)
	}
	if id != 0 {
		t.Errorf("expected first batch id to be 0, got %d", id)
	}
}

func TestBatchEndWithoutBeginPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected BatchEnd with no open batch to panic")
		}
	}()

	buf := NewBuffer()
	rb := NewReplyBuilder(buf, "nick", "irc.example.org", Message{})
	rb.BatchEnd()
}
