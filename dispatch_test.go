package main

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// testPeer wires a net.Pipe half into a Peer with a buffered reader on the
// other half, so a test can drive State.HandleLine and read back whatever
// the server enqueues without a real TCP listener.
type testPeer struct {
	peer   *Peer
	client *bufio.Reader
	conn   net.Conn
}

func newTestState(t *testing.T) *State {
	t.Helper()
	cfg := &StateConfig{
		Domain:          "irc.example.org",
		DefaultChanMode: "",
		OrgName:         "Example",
		NickLen:         30,
		UserLen:         10,
		NameLen:         50,
		ChannelLen:      50,
		TopicLen:        300,
		KickLen:         200,
		KeyLen:          23,
		LoginTimeoutMS:  60000,
	}
	auth := &OperAuthProvider{Opers: map[string]string{}}
	return NewState(cfg, auth, nil)
}

func newTestPeer(t *testing.T, s *State) *testPeer {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	p := NewPeer(s.NewPeerID(), NewConn(serverSide, time.Minute))
	p.WriteChan = make(chan string, 64)
	s.PeerJoined(p)

	go func() {
		for blob := range p.WriteChan {
			_ = p.Conn.WriteRaw(blob)
		}
	}()

	return &testPeer{peer: p, client: bufio.NewReader(clientSide), conn: clientSide}
}

func (tp *testPeer) readLine(t *testing.T) string {
	t.Helper()
	line, err := tp.client.ReadString('\n')
	require.NoError(t, err)
	return line
}

func registerPeer(t *testing.T, s *State, tp *testPeer, nick, user string) {
	t.Helper()
	s.HandleLine(tp.peer, "NICK "+nick)
	s.HandleLine(tp.peer, "USER "+user+" 0 * :"+user+" Real Name")
	// Drain welcome numerics (001-004, ERR_NOMOTD).
	for i := 0; i < 5; i++ {
		tp.readLine(t)
	}
}

func TestDispatchRegistrationAndJoin(t *testing.T) {
	s := newTestState(t)
	alice := newTestPeer(t, s)

	registerPeer(t, s, alice, "alice", "alice")
	require.Equal(t, StatusRegistered, alice.peer.Status)

	s.HandleLine(alice.peer, "JOIN #chan")
	joinLine := alice.readLine(t)
	require.Contains(t, joinLine, "JOIN #chan")

	topicLine := alice.readLine(t)
	require.Contains(t, topicLine, RplNoTopic)

	namesLine := alice.readLine(t)
	require.Contains(t, namesLine, "@alice")

	endNamesLine := alice.readLine(t)
	require.Contains(t, endNamesLine, RplEndOfNames)
}

func TestDispatchPrivmsgBetweenPeers(t *testing.T) {
	s := newTestState(t)
	alice := newTestPeer(t, s)
	bob := newTestPeer(t, s)

	registerPeer(t, s, alice, "alice", "alice")
	registerPeer(t, s, bob, "bob", "bob")

	s.HandleLine(alice.peer, "PRIVMSG bob :hello there")

	line := bob.readLine(t)
	require.Contains(t, line, "PRIVMSG bob :hello there")
	require.Contains(t, line, "alice!")
}

func TestDispatchNickInUse(t *testing.T) {
	s := newTestState(t)
	alice := newTestPeer(t, s)
	bob := newTestPeer(t, s)

	registerPeer(t, s, alice, "alice", "alice")

	s.HandleLine(bob.peer, "NICK alice")
	line := bob.readLine(t)
	require.Contains(t, line, ErrNicknameInUse)
}

func TestDispatchModeRequiresOp(t *testing.T) {
	s := newTestState(t)
	alice := newTestPeer(t, s)
	bob := newTestPeer(t, s)

	registerPeer(t, s, alice, "alice", "alice")
	registerPeer(t, s, bob, "bob", "bob")

	s.HandleLine(alice.peer, "JOIN #chan")
	alice.readLine(t)
	alice.readLine(t)
	alice.readLine(t)
	alice.readLine(t)

	s.HandleLine(bob.peer, "JOIN #chan")
	// bob's own JOIN/topic/names lines, plus alice hearing bob's JOIN.
	bob.readLine(t)
	bob.readLine(t)
	bob.readLine(t)
	bob.readLine(t)
	aliceJoinNotice := alice.readLine(t)
	require.Contains(t, aliceJoinNotice, "JOIN")

	s.HandleLine(bob.peer, "MODE #chan +i")
	line := bob.readLine(t)
	require.Contains(t, line, ErrChanOPrivsNeeded)
}
