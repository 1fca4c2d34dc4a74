package main

import (
	"fmt"
	"strings"
	"time"
)

// RegistrationStatus is a peer's position in the connection lifecycle.
type RegistrationStatus int

// Registration states.
const (
	StatusUnregistered RegistrationStatus = iota
	StatusRegistering
	StatusRegistered
	StatusQuitting
)

// Capability names this server negotiates via CAP LS/REQ/END.
const (
	CapMessageTags    = "message-tags"
	CapBatch          = "batch"
	CapLabeledResp    = "draft/labeled-response"
	CapSASL           = "sasl"
	CapEchoMessage    = "echo-message"
)

// supportedCaps is the full set this server will ACK on REQ.
var supportedCaps = map[string]bool{
	CapMessageTags: true,
	CapBatch:       true,
	CapLabeledResp: true,
	CapSASL:        true,
	CapEchoMessage: true,
}

// Peer is a connected client. One exists from accept to disconnect; it is
// never directly reachable by other peers, which instead go through the
// shared State's peer table / nick index, avoiding an owning reference
// cycle.
type Peer struct {
	ID   int
	Conn Conn

	RemoteAddr string

	Nick     string
	User     string
	RealName string

	Caps   map[string]bool
	Status RegistrationStatus
	IsOper bool
	Away   string

	// WriteChan is the outbound send queue. Buffered rather than literally
	// unbounded: once full, further sends flag SendQueueExceeded instead of
	// blocking, and the peer is quit on the next opportunity.
	WriteChan         chan string
	SendQueueExceeded bool

	ConnectionStartTime time.Time

	// Registration staging. Only PendingPass is filled in (by PASS); none of
	// these is cleared when Status becomes StatusRegistered.
	CapNegotiating bool
	PendingNick    string
	PendingUser    string
	PendingReal    string
	PendingPass    string

	// SASL AUTHENTICATE state.
	SASLInProgress bool
	SASLBuffer     strings.Builder

	// Channels this peer currently belongs to, by canonical name. Kept here
	// (rather than scanning every channel on quit) purely as an index; the
	// Channel.Members map remains the authoritative membership record.
	Channels map[string]struct{}

	// RateTokensUsed is not read or updated anywhere: the rate limiter
	// (ratelimit.go) keeps its own token bucket.
	RateTokensUsed int
}

// NewPeer creates a Peer in the Unregistered state with an empty send
// queue.
func NewPeer(id int, conn Conn) *Peer {
	return &Peer{
		ID:                  id,
		Conn:                conn,
		RemoteAddr:          conn.RemoteAddr().String(),
		Caps:                make(map[string]bool),
		Status:              StatusUnregistered,
		ConnectionStartTime: time.Now(),
		Channels:            make(map[string]struct{}),
	}
}

func (p *Peer) String() string {
	return fmt.Sprintf("%d %s!%s (%s)", p.ID, p.Nick, p.User, p.RemoteAddr)
}

// Identity returns the peer's current nick!user@host mask, used for mask
// matching (bans, exceptions, invitations) and as a message prefix.
func (p *Peer) Identity() string {
	return fmt.Sprintf("%s!%s@%s", p.Nick, p.User, p.RemoteAddr)
}

// HasCap reports whether the peer has negotiated name.
func (p *Peer) HasCap(name string) bool {
	return p.Caps[name]
}

// Enqueue queues a pre-built, CRLF-terminated blob for the writer goroutine
// to send. It never blocks: a full queue just flags SendQueueExceeded.
func (p *Peer) Enqueue(blob string) {
	if p.SendQueueExceeded || blob == "" {
		return
	}
	select {
	case p.WriteChan <- blob:
	default:
		p.SendQueueExceeded = true
	}
}
