package main

import (
	"log"
	"sync"
	"time"
)

// State is the process-wide shared state: the peer table, the secondary
// nickname index, the channel table, server settings, and the auth
// provider port. It is guarded by a single mutex, never reached via ambient
// module state — every goroutine that touches it is handed the *State
// explicitly.
type State struct {
	mu sync.Mutex

	Peers    map[int]*Peer
	Nicks    map[string]int // canonical nick -> peer id
	Channels map[string]*Channel

	Config *StateConfig
	Auth   AuthProvider
	MOTD   []string

	nextPeerID int

	// Failures is created by NewState, but nothing sends on or receives from
	// it: acceptLoop (main.go) just returns on an accept error, and runServer
	// stops only on SIGINT/SIGTERM.
	Failures chan struct{}

	started time.Time
}

// NewState constructs an empty shared state.
func NewState(cfg *StateConfig, auth AuthProvider, motd []string) *State {
	return &State{
		Peers:    make(map[int]*Peer),
		Nicks:    make(map[string]int),
		Channels: make(map[string]*Channel),
		Config:   cfg,
		Auth:     auth,
		MOTD:     motd,
		Failures: make(chan struct{}),
		started:  time.Now(),
	}
}

// NewPeerID allocates the next process-unique peer id.
func (s *State) NewPeerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPeerID++
	return s.nextPeerID
}

// PeerJoined registers a newly-accepted connection and arms its login
// timeout: if the peer is still Unregistered when the timer fires, it is
// removed.
func (s *State) PeerJoined(p *Peer) {
	s.mu.Lock()
	s.Peers[p.ID] = p
	s.mu.Unlock()

	time.AfterFunc(s.Config.loginTimeout(), func() {
		s.mu.Lock()
		cur, exists := s.Peers[p.ID]
		stillUnregistered := exists && cur == p && cur.Status != StatusRegistered && cur.Status != StatusQuitting
		s.mu.Unlock()

		if stillUnregistered {
			s.PeerQuit(p.ID, "Login timed out")
		}
	})
}

// PeerQuit removes peer id from every channel it was in (destroying any
// channel that becomes empty), removes it from the nick index and peer
// table, tells its remaining channel-mates via QUIT, and closes its send
// queue so the writer goroutine exits. Safe to call more than once for the
// same id; the second call is a no-op.
func (s *State) PeerQuit(peerID int, reason string) {
	s.mu.Lock()

	p, exists := s.Peers[peerID]
	if !exists {
		s.mu.Unlock()
		return
	}

	p.Status = StatusQuitting
	identity := p.Identity()

	notify := make(map[int]*Peer)
	for name := range p.Channels {
		ch, ok := s.Channels[name]
		if !ok {
			continue
		}
		for memberID := range ch.Members {
			if memberID != peerID {
				if peer, ok := s.Peers[memberID]; ok {
					notify[memberID] = peer
				}
			}
		}
		if empty := ch.RemoveMember(peerID); empty {
			delete(s.Channels, name)
		}
	}

	if p.Nick != "" && s.Nicks[canonicalizeNick(p.Nick)] == peerID {
		delete(s.Nicks, canonicalizeNick(p.Nick))
	}
	delete(s.Peers, peerID)

	buf := NewBuffer()
	buf.BuildMessage(nil, identity, "QUIT", func(m *MessageBuilder) {
		m.TrailingParam(reason)
	})
	blob := buf.String()
	for _, peer := range notify {
		peer.Enqueue(blob)
	}

	s.mu.Unlock()

	p.Enqueue(blob)
	close(p.WriteChan)
	if err := p.Conn.Close(); err != nil {
		log.Printf("peer %d: error closing connection: %s", peerID, err)
	}
}

// findPeerByNickLocked resolves nick to a Peer via the nickname index. The
// caller must hold s.mu.
func (s *State) findPeerByNickLocked(nick string) (*Peer, bool) {
	id, ok := s.Nicks[canonicalizeNick(nick)]
	if !ok {
		return nil, false
	}
	p, ok := s.Peers[id]
	return p, ok
}

// getOrCreateChannelLocked returns the channel by canonical name, creating it
// (with the default mode string) if it doesn't exist. The caller must hold
// s.mu. Channel creation is lazy and always implies the caller is about to
// add at least one member, preserving the "never empty" invariant.
func (s *State) getOrCreateChannelLocked(name string) (*Channel, bool) {
	ch, existed := s.Channels[name]
	if !existed {
		ch = NewChannel(name, s.Config.DefaultChanMode)
		s.Channels[name] = ch
	}
	return ch, existed
}
