package main

import "strings"

// Buffer is a growable string accumulating any number of complete wire
// messages. It is the outermost layer of the build side of the wire codec:
// MessageBuilder is internal bookkeeping used while building a single
// message into it.
type Buffer struct {
	sb      strings.Builder
	scratch strings.Builder
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// String returns everything built so far.
func (b *Buffer) String() string {
	return b.sb.String()
}

// Len reports the number of bytes built so far.
func (b *Buffer) Len() int {
	return b.sb.Len()
}

// MessageBuilder accumulates the prefix/command/params of a single message.
// It is only ever reached through Buffer.BuildMessage, which guarantees the
// terminating CRLF is appended on every path out of build (including a
// panic unwinding through it), so there is no API surface on which a caller
// can forget to terminate a message.
type MessageBuilder struct {
	buf      *Buffer
	trailing bool
}

// BuildMessage writes one complete message (tags, optional prefix, command,
// then whatever params/trailing param the callback adds) and terminates it
// with CRLF. tags may be nil or empty, in which case the '@...' tag prefix
// is elided entirely, matching the single-message label optimization in
// reply.go. prefix may be "" to omit the leading ':source'.
func (b *Buffer) BuildMessage(tags Tags, prefix, command string, build func(m *MessageBuilder)) {
	defer b.sb.WriteString("\r\n")

	if len(tags) > 0 {
		b.writeTags(tags)
	}

	if prefix != "" {
		b.sb.WriteByte(':')
		b.sb.WriteString(prefix)
		b.sb.WriteByte(' ')
	}

	b.sb.WriteString(command)

	m := &MessageBuilder{buf: b}
	build(m)
}

// writeTags renders the '@key=value;key2=value2 ' tag prefix, in map
// iteration order (callers that need deterministic ordering, e.g. tests,
// should assert on the parsed tag set rather than exact wire bytes).
func (b *Buffer) writeTags(tags Tags) {
	b.sb.WriteByte('@')
	first := true
	for k, v := range tags {
		if !first {
			b.sb.WriteByte(';')
		}
		first = false
		b.sb.WriteString(k)
		if v != "" {
			b.sb.WriteByte('=')
			b.sb.WriteString(escapeTagValue(&b.scratch, v))
		}
	}
	b.sb.WriteByte(' ')
}

// Param appends a space-separated parameter. It trims surrounding
// whitespace and silently drops the parameter if the result is empty
// (param("") and param("   ") both produce no output). Must not be called
// after TrailingParam.
func (m *MessageBuilder) Param(s string) *MessageBuilder {
	if m.trailing {
		return m
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return m
	}
	m.buf.sb.WriteByte(' ')
	m.buf.sb.WriteString(s)
	return m
}

// FmtParam appends a space-separated parameter verbatim: no trimming, no
// dropping on empty. Used for parameters already known well-formed (e.g. a
// pre-validated nickname or numeric-reply target) where a caller does not
// want surprising whitespace-trim or silent-drop behavior.
func (m *MessageBuilder) FmtParam(s string) *MessageBuilder {
	if m.trailing {
		return m
	}
	m.buf.sb.WriteByte(' ')
	m.buf.sb.WriteString(s)
	return m
}

// TrailingParam appends the final ' :text' parameter and closes the
// message to further params. It always emits the leading ':', even for
// empty input, so a receiver can tell an intentionally-blank trailing
// parameter (e.g. an unset TOPIC) from a missing one.
func (m *MessageBuilder) TrailingParam(s string) *MessageBuilder {
	if m.trailing {
		return m
	}
	m.buf.sb.WriteString(" :")
	m.buf.sb.WriteString(s)
	m.trailing = true
	return m
}
