// Package main implements chatterbox, a single-process IRC server.
package main

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

const ioWait = 5 * time.Minute

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	args := getArgs()
	if args == nil {
		os.Exit(1)
	}

	switch args.Command {
	case "gen-config":
		if err := runGenConfig(); err != nil {
			log.Fatal(err)
		}
	case "hash-password":
		hash, err := HashOperPassword(args.HashPassword)
		if err != nil {
			log.Fatalf("unable to hash password: %s", err)
		}
		fmt.Println(hash)
	case "start":
		if err := runServer(args.ConfigFile); err != nil {
			log.Fatal(err)
		}
	}

	log.Printf("Server shutdown cleanly.")
}

// runGenConfig writes a commented template configuration file to stdout,
// the way ellidri's gen-config subcommand bootstraps a new deployment.
func runGenConfig() error {
	template := `# chatterbox configuration. All keys are required unless noted.
listen-host = 0.0.0.0
listen-port = 6667
domain = irc.example.org
default-chan-mode = +nt
motd-file = /etc/chatterbox/motd.txt
opers-config = /etc/chatterbox/opers.conf
away-len = 200
channel-len = 50
key-len = 23
kick-len = 200
name-len = 50
nick-len = 30
topic-len = 300
user-len = 10
login-timeout-ms = 60000
org-name = Example Org
org-location = Example, Earth
org-mail = irc@example.org
# password =
# rate-limit-burst = 16
# rate-limit-ms = 1024
`
	_, err := fmt.Fprint(os.Stdout, template)
	return err
}

// runServer loads configuration, binds the listener, and serves connections
// until a termination signal arrives.
func runServer(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return errors.Wrap(err, "unable to load configuration")
	}

	motd, err := readMOTD(cfg.MOTDFile)
	if err != nil {
		log.Printf("unable to read MOTD file %s: %s", cfg.MOTDFile, err)
	}

	auth := &OperAuthProvider{Opers: cfg.Opers, ServerPassword: cfg.Password}

	state := NewState(cfg, auth, motd)
	limiter := NewRateLimiter(cfg.rateLimitPeriod(), cfg.RateLimitBurst)

	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%s", cfg.ListenHost, cfg.ListenPort))
	if err != nil {
		return errors.Wrap(err, "unable to listen")
	}

	go acceptLoop(ln, state, limiter)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("Received shutdown signal, closing listener.")
	return ln.Close()
}

// acceptLoop accepts connections and spawns a reader goroutine per
// connection, one goroutine per peer per direction (accept / read / write).
func acceptLoop(ln net.Listener, state *State, limiter *RateLimiter) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Printf("Failed to accept connection: %s", err)
			return
		}

		go handleConn(conn, state, limiter)
	}
}

// handleConn wires up one accepted connection: registers the peer, starts
// its writer goroutine, and runs the blocking read loop that feeds
// State.HandleLine until the connection dies.
func handleConn(conn net.Conn, state *State, limiter *RateLimiter) {
	c := NewConn(conn, ioWait)
	p := NewPeer(state.NewPeerID(), c)
	p.WriteChan = make(chan string, 1024)

	state.PeerJoined(p)

	go writeLoop(p)

	for {
		line, err := c.ReadLine()
		if err != nil {
			state.PeerQuit(p.ID, quitReasonForReadError(err))
			return
		}

		cost := state.HandleLine(p, line)
		if p.Status == StatusQuitting {
			return
		}

		if delay := limiter.Charge(cost); delay > 0 {
			time.Sleep(delay)
		}

		if p.SendQueueExceeded {
			state.PeerQuit(p.ID, "SendQ exceeded")
			return
		}
	}
}

// quitReasonForReadError turns a read failure into a client-facing QUIT
// reason. bufio/net errors don't need to be exposed verbatim.
func quitReasonForReadError(err error) string {
	if err == ErrInvalidUTF8 {
		return "Invalid UTF-8"
	}
	if err == bufio.ErrBufferFull {
		return "Line too long"
	}
	return "Connection reset"
}

// writeLoop drains a peer's send queue to its connection until the queue is
// closed by State.PeerQuit, which also closes the underlying connection.
func writeLoop(p *Peer) {
	for blob := range p.WriteChan {
		if err := p.Conn.WriteRaw(blob); err != nil {
			return
		}
	}
}
