package main

import "strconv"

// ReplyBuilder is the per-interaction reply-building state machine. One is
// created at the start of processing a single inbound command and
// discarded once that command's output has been built and enqueued.
//
// It owns: the peer's current nickname and the server domain (used as the
// default prefix for server-originated messages), any label forwarded from
// the inbound command for labeled-response correlation, the client-only
// tags forwarded verbatim from the inbound message, and the open-batch
// stack (both explicit nested batches and the implicit labeled-response
// batch live on the same stack, since a message only ever belongs to its
// single innermost open batch).
type ReplyBuilder struct {
	Nick   string
	Domain string

	out *Buffer

	label      string
	clientTags Tags

	batchStack  []int
	nextBatchID int

	lrEligible bool // label != "" on the inbound message
	lrOpened   bool
	lrBatchID  int
	lrPending  *pendingMessage
	lrCount    int
}

type pendingMessage struct {
	tags    Tags
	prefix  string
	command string
	build   func(m *MessageBuilder)
}

// NewReplyBuilder creates a ReplyBuilder writing into out. inbound is the
// message that triggered this interaction (used to pull the label and any
// client-only tags to forward); it may be the zero Message if there is no
// inbound trigger (e.g. a server-initiated PING).
func NewReplyBuilder(out *Buffer, nick, domain string, inbound Message) *ReplyBuilder {
	rb := &ReplyBuilder{
		Nick:       nick,
		Domain:     domain,
		out:        out,
		lrBatchID:  -1,
		clientTags: make(Tags),
	}

	if inbound.Tags != nil {
		if label, ok := inbound.Tags["label"]; ok {
			rb.label = label
		}
		for k, v := range inbound.Tags {
			if IsClientTag(k) {
				rb.clientTags[k] = v
			}
		}
	}

	rb.lrEligible = rb.label != ""

	return rb
}

// Build constructs and enqueues one outbound message. extraTags may be nil;
// it is merged with the forwarded client tags and any label/batch tags this
// builder is responsible for attaching.
func (rb *ReplyBuilder) Build(extraTags Tags, prefix, command string, build func(m *MessageBuilder)) {
	tags := rb.mergeTags(extraTags)

	if !rb.lrEligible {
		if n := len(rb.batchStack); n > 0 {
			if tags == nil {
				tags = make(Tags, 1)
			}
			tags["batch"] = strconv.Itoa(rb.batchStack[n-1])
		}
		rb.emit(tags, prefix, command, build)
		return
	}

	rb.lrCount++

	if rb.lrCount == 1 {
		rb.lrPending = &pendingMessage{tags: tags, prefix: prefix, command: command, build: build}
		return
	}

	if !rb.lrOpened {
		rb.openLRBatch()
		pending := rb.lrPending
		rb.lrPending = nil
		rb.emit(rb.withBatchTag(pending.tags), pending.prefix, pending.command, pending.build)
	}

	rb.emit(rb.withBatchTag(tags), prefix, command, build)
}

// mergeTags combines the forwarded client tags with extra, which wins on
// key collision.
func (rb *ReplyBuilder) mergeTags(extra Tags) Tags {
	if len(rb.clientTags) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(Tags, len(rb.clientTags)+len(extra))
	for k, v := range rb.clientTags {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// withBatchTag adds label= and batch= tags (label is attached to every
// message once the batch has been opened) to a copy of tags.
func (rb *ReplyBuilder) withBatchTag(tags Tags) Tags {
	out := make(Tags, len(tags)+2)
	for k, v := range tags {
		out[k] = v
	}
	out["label"] = rb.label
	out["batch"] = strconv.Itoa(rb.batchStack[len(rb.batchStack)-1])
	return out
}

// openLRBatch pushes the implicit labeled-response batch and emits its
// BATCH start line, tagged with the label.
func (rb *ReplyBuilder) openLRBatch() {
	id := rb.pushBatch()
	rb.lrBatchID = id
	rb.lrOpened = true

	tags := Tags{"label": rb.label}
	rb.emit(tags, rb.Domain, "BATCH", func(m *MessageBuilder) {
		m.Param("+" + strconv.Itoa(id)).Param("labeled-response")
	})
}

// BatchBegin opens an explicit nested batch of the given IRCv3 batch type
// (e.g. "netsplit", "chathistory") and emits its BATCH start line. Returns
// the assigned id.
func (rb *ReplyBuilder) BatchBegin(batchType string, extraParams ...string) int {
	id := rb.pushBatch()
	rb.emit(nil, rb.Domain, "BATCH", func(m *MessageBuilder) {
		m.Param("+" + strconv.Itoa(id)).Param(batchType)
		for _, p := range extraParams {
			m.Param(p)
		}
	})
	return id
}

// BatchEnd closes the most recently opened explicit batch. Closing more
// batches than were opened is a programming error and panics: treated as a
// non-recoverable invariant violation, not a user-facing error.
func (rb *ReplyBuilder) BatchEnd() {
	id := rb.popBatch()
	rb.emit(nil, rb.Domain, "BATCH", func(m *MessageBuilder) {
		m.Param("-" + strconv.Itoa(id))
	})
}

func (rb *ReplyBuilder) pushBatch() int {
	id := rb.nextBatchID
	rb.nextBatchID++
	rb.batchStack = append(rb.batchStack, id)
	return id
}

func (rb *ReplyBuilder) popBatch() int {
	if len(rb.batchStack) == 0 {
		panic("reply builder: BatchEnd with no open batch")
	}
	id := rb.batchStack[len(rb.batchStack)-1]
	rb.batchStack = rb.batchStack[:len(rb.batchStack)-1]
	return id
}

// LrEnd finalizes the labeled-response lifecycle for this group: if a label
// was supplied but nothing was produced, emit an ACK so the client can
// complete the labeled exchange; if the single deferred message was never
// promoted into a batch, flush it now (with the label tag alone, no BATCH
// wrapper — the single-message optimization); if a batch is still open,
// close it. Any nested batch still open after that point is a programming
// error.
func (rb *ReplyBuilder) LrEnd() {
	if !rb.lrEligible {
		if len(rb.batchStack) != 0 {
			panic("reply builder: batch left open at end of group")
		}
		return
	}

	if rb.lrPending != nil {
		pending := rb.lrPending
		rb.lrPending = nil
		tags := pending.tags
		if tags == nil {
			tags = make(Tags, 1)
		}
		tags["label"] = rb.label
		rb.emit(tags, pending.prefix, pending.command, pending.build)
	} else if rb.lrCount == 0 {
		rb.emit(Tags{"label": rb.label}, rb.Domain, "ACK", func(m *MessageBuilder) {})
	}

	if rb.lrOpened {
		rb.BatchEnd()
		rb.lrOpened = false
	}

	if len(rb.batchStack) != 0 {
		panic("reply builder: nested batch left open at end of group")
	}
}

func (rb *ReplyBuilder) emit(tags Tags, prefix, command string, build func(m *MessageBuilder)) {
	rb.out.BuildMessage(tags, prefix, command, build)
}

// Numeric builds a standard "<code> <nick> <params...> :<trailing>" server
// numeric reply, where the last element of params is sent as the trailing
// parameter and everything before it as plain params. Passing no params at
// all is valid (some numerics carry only the nick).
func (rb *ReplyBuilder) Numeric(code string, params ...string) {
	rb.Build(nil, rb.Domain, code, func(m *MessageBuilder) {
		m.Param(rb.Nick)
		for i := 0; i < len(params)-1; i++ {
			m.Param(params[i])
		}
		if len(params) > 0 {
			m.TrailingParam(params[len(params)-1])
		}
	})
}
