package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DisplayNick returns the peer's current nick, or "*" before registration,
// matching the placeholder RFC clients expect in pre-registration numerics.
func (p *Peer) DisplayNick() string {
	if p.Nick == "" {
		return "*"
	}
	return p.Nick
}

// HandleLine is the per-inbound-command procedure: frame/parse is already
// done by the caller's line reader (net.go); an empty line quits the
// connection. Returns the rate-limit cost of whatever was handled, for the
// caller to charge against the peer's token bucket.
func (s *State) HandleLine(p *Peer, line string) int {
	if line == "" {
		s.PeerQuit(p.ID, "Connection reset")
		return 0
	}

	msg, ok := ParseMessage(line)
	if !ok {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	buf := NewBuffer()
	rb := NewReplyBuilder(buf, p.DisplayNick(), s.Config.Domain, msg)

	cost := s.handleCommand(p, msg, rb)

	if p.Status == StatusQuitting {
		// The command (QUIT, or a login-timeout race) already tore the
		// connection down and closed the send queue; building further output
		// for it would panic on a closed channel.
		return cost
	}

	rb.LrEnd()
	p.Enqueue(buf.String())

	return cost
}

// sendRaw builds and enqueues one message to peer with no label/batch
// wrapping: used for messages to peers other than the one who triggered the
// command, since those tags are correlation metadata for the initiator only.
func (s *State) sendRaw(peer *Peer, tags Tags, prefix, command string, build func(m *MessageBuilder)) {
	buf := NewBuffer()
	buf.BuildMessage(tags, prefix, command, build)
	peer.Enqueue(buf.String())
}

// handleCommand is the command dispatch if-chain: one conditional per verb,
// falling through to ERR_UNKNOWNCOMMAND.
func (s *State) handleCommand(p *Peer, m Message, rb *ReplyBuilder) int {
	if m.Command == "CAP" {
		s.capCommand(p, m, rb)
		return 1
	}

	if m.Command == "PASS" {
		s.passCommand(p, m, rb)
		return 1
	}

	if m.Command == "AUTHENTICATE" {
		s.authenticateCommand(p, m, rb)
		return 1
	}

	if m.Command == "NICK" {
		s.nickCommand(p, m, rb)
		return 1
	}

	if m.Command == "USER" {
		s.userCommand(p, m, rb)
		return 1
	}

	if p.Status != StatusRegistered {
		if m.Command == "QUIT" {
			s.quitCommand(p, m, rb)
			return 1
		}
		if m.Command == "PING" {
			s.pingCommand(p, m, rb)
			return 1
		}
		rb.Numeric(ErrNotRegistered, "You have not registered")
		return 1
	}

	switch m.Command {
	case "JOIN":
		s.joinCommand(p, m, rb)
		return 2
	case "PART":
		s.partCommand(p, m, rb)
		return 2
	case "PRIVMSG", "NOTICE":
		s.privmsgCommand(p, m, rb)
		return 1
	case "MODE":
		s.modeCommand(p, m, rb)
		return 1
	case "TOPIC":
		s.topicCommand(p, m, rb)
		return 2
	case "NAMES":
		s.namesCommand(p, m, rb)
		return 1
	case "WHO":
		s.whoCommand(p, m, rb)
		return 1
	case "WHOIS":
		s.whoisCommand(p, m, rb)
		return 2
	case "KICK":
		s.kickCommand(p, m, rb)
		return 2
	case "INVITE":
		s.inviteCommand(p, m, rb)
		return 2
	case "PING":
		s.pingCommand(p, m, rb)
		return 1
	case "PONG":
		return 1
	case "QUIT":
		s.quitCommand(p, m, rb)
		return 1
	case "OPER":
		s.operCommand(p, m, rb)
		return 1
	case "MOTD":
		s.sendMOTD(p, rb)
		return 1
	}

	rb.Numeric(ErrUnknownCommand, m.Command, "Unknown command")
	return 1
}

// --- CAP / registration -----------------------------------------------

func (s *State) capCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		return
	}

	sub := strings.ToUpper(m.Params[0])

	switch sub {
	case "LS":
		p.CapNegotiating = true
		names := make([]string, 0, len(supportedCaps))
		for name := range supportedCaps {
			names = append(names, name)
		}
		rb.Build(nil, s.Config.Domain, "CAP", func(msg *MessageBuilder) {
			msg.Param(p.DisplayNick()).Param("LS").TrailingParam(strings.Join(names, " "))
		})

	case "REQ":
		p.CapNegotiating = true
		if len(m.Params) < 2 {
			return
		}
		requested := strings.Fields(m.Params[1])
		ok := true
		for _, name := range requested {
			if !supportedCaps[name] {
				ok = false
				break
			}
		}
		reply := "NAK"
		if ok {
			reply = "ACK"
			for _, name := range requested {
				p.Caps[name] = true
			}
		}
		rb.Build(nil, s.Config.Domain, "CAP", func(msg *MessageBuilder) {
			msg.Param(p.DisplayNick()).Param(reply).TrailingParam(m.Params[1])
		})

	case "END":
		p.CapNegotiating = false
		s.maybeCompleteRegistration(p, rb)

	case "LIST":
		names := make([]string, 0, len(p.Caps))
		for name := range p.Caps {
			names = append(names, name)
		}
		rb.Build(nil, s.Config.Domain, "CAP", func(msg *MessageBuilder) {
			msg.Param(p.DisplayNick()).Param("LIST").TrailingParam(strings.Join(names, " "))
		})
	}
}

func (s *State) passCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if p.Status == StatusRegistered {
		rb.Numeric(ErrAlreadyRegistered, "You may not reregister")
		return
	}
	if len(m.Params) == 0 {
		rb.Numeric(ErrNeedMoreParams, "PASS", "Not enough parameters")
		return
	}
	p.PendingPass = m.Params[0]
}

func (s *State) authenticateCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if !p.HasCap(CapSASL) {
		rb.Numeric(ErrUnknownCommand, "AUTHENTICATE", "Unknown command")
		return
	}
	if len(m.Params) == 0 {
		return
	}

	arg := m.Params[0]

	if !p.SASLInProgress {
		if strings.ToUpper(arg) != "PLAIN" {
			rb.Numeric(ErrSaslFail, "SASL authentication failed")
			return
		}
		p.SASLInProgress = true
		p.SASLBuffer.Reset()
		rb.Build(nil, "", "AUTHENTICATE", func(msg *MessageBuilder) {
			msg.FmtParam("+")
		})
		return
	}

	if arg == "+" {
		arg = ""
	}
	p.SASLBuffer.WriteString(arg)

	if len(arg) == 400 {
		// More to come; IRCv3 SASL chunks responses at 400 bytes.
		return
	}

	_, authcid, password, err := decodeSASLPlain(p.SASLBuffer.String())
	p.SASLInProgress = false
	p.SASLBuffer.Reset()
	if err != nil {
		rb.Numeric(ErrSaslFail, "SASL authentication failed")
		return
	}

	identity, err := s.Auth.Verify(authcid, password)
	if err != nil {
		rb.Numeric(ErrSaslFail, "SASL authentication failed")
		return
	}

	rb.Build(nil, s.Config.Domain, RplLoggedIn, func(msg *MessageBuilder) {
		msg.Param(p.DisplayNick()).Param(p.Identity()).Param(identity.Name).
			TrailingParam(fmt.Sprintf("You are now logged in as %s", identity.Name))
	})
	rb.Numeric(RplSaslSuccess, "SASL authentication successful")
}

func (s *State) nickCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		rb.Numeric(ErrNoNicknameGiven, "No nickname given")
		return
	}

	nick := truncateRunes(m.Params[0], s.Config.NickLen)

	if !isValidNick(s.Config.NickLen, nick) {
		rb.Numeric(ErrErroneousNick, m.Params[0], "Erroneous nickname")
		return
	}

	canon := canonicalizeNick(nick)
	if existingID, exists := s.Nicks[canon]; exists && existingID != p.ID {
		rb.Numeric(ErrNicknameInUse, nick, "Nickname is already in use")
		return
	}

	oldNick := p.Nick
	wasRegistered := p.Status == StatusRegistered

	if oldNick != "" {
		delete(s.Nicks, canonicalizeNick(oldNick))
	}
	s.Nicks[canon] = p.ID
	p.Nick = nick

	if wasRegistered {
		prefix := oldNick + "!" + p.User + "@" + p.RemoteAddr
		notified := map[int]*Peer{p.ID: p}
		for chanName := range p.Channels {
			if ch, ok := s.Channels[chanName]; ok {
				for memberID := range ch.Members {
					if peer, ok := s.Peers[memberID]; ok {
						notified[memberID] = peer
					}
				}
			}
		}
		for _, peer := range notified {
			if peer.ID == p.ID {
				continue
			}
			s.sendRaw(peer, nil, prefix, "NICK", func(msg *MessageBuilder) {
				msg.TrailingParam(nick)
			})
		}
		rb.Build(nil, prefix, "NICK", func(msg *MessageBuilder) {
			msg.TrailingParam(nick)
		})
		return
	}

	s.maybeCompleteRegistration(p, rb)
}

func (s *State) userCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if p.Status == StatusRegistered {
		rb.Numeric(ErrAlreadyRegistered, "You may not reregister")
		return
	}
	if len(m.Params) < 4 {
		rb.Numeric(ErrNeedMoreParams, "USER", "Not enough parameters")
		return
	}

	user := truncateRunes(m.Params[0], s.Config.UserLen)
	if !isValidUser(s.Config.UserLen, user) {
		user = "user"
	}

	p.User = user
	p.RealName = truncateRunes(m.Params[3], s.Config.NameLen)
	p.Status = StatusRegistering

	s.maybeCompleteRegistration(p, rb)
}

// maybeCompleteRegistration promotes a peer to Registered once it has a
// nick, a user, and (if it started CAP negotiation) has sent CAP END.
func (s *State) maybeCompleteRegistration(p *Peer, rb *ReplyBuilder) {
	if p.Status == StatusRegistered {
		return
	}
	if p.Nick == "" || p.User == "" || p.CapNegotiating {
		return
	}
	if s.Config.Password != "" && p.PendingPass != s.Config.Password {
		rb.Numeric(ErrPasswdMismatch, "Password incorrect")
		s.PeerQuit(p.ID, "Password incorrect")
		return
	}

	p.Status = StatusRegistered

	rb.Numeric(RplWelcome, fmt.Sprintf("Welcome to %s, %s", s.Config.OrgName, p.Nick))
	rb.Numeric(RplYourHost, fmt.Sprintf("Your host is %s", s.Config.Domain))
	rb.Numeric(RplCreated, fmt.Sprintf("This server was created for %s", s.Config.OrgName))
	rb.Numeric(RplMyInfo, s.Config.Domain)

	s.sendMOTD(p, rb)
}

func (s *State) sendMOTD(p *Peer, rb *ReplyBuilder) {
	if len(s.MOTD) == 0 {
		rb.Numeric(ErrNoMotd, "MOTD File is missing")
		return
	}
	rb.Numeric(RplMotdStart, fmt.Sprintf("- %s Message of the day -", s.Config.Domain))
	for _, line := range s.MOTD {
		rb.Numeric(RplMotd, "- "+line)
	}
	rb.Numeric(RplEndOfMotd, "End of MOTD command")
}

// --- channel membership -------------------------------------------------

func (s *State) joinCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		rb.Numeric(ErrNeedMoreParams, "JOIN", "Not enough parameters")
		return
	}

	channels := strings.Split(m.Params[0], ",")
	var keys []string
	if len(m.Params) > 1 {
		keys = strings.Split(m.Params[1], ",")
	}

	for i, name := range channels {
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		s.joinOne(p, name, key, rb)
	}
}

func (s *State) joinOne(p *Peer, name, key string, rb *ReplyBuilder) {
	canon := canonicalizeChannel(name)
	if !isValidChannel(s.Config.ChannelLen, canon) {
		rb.Numeric(ErrNoSuchChannel, name, "No such channel")
		return
	}

	ch, existed := s.getOrCreateChannelLocked(canon)

	if existed {
		if _, already := ch.Members[p.ID]; already {
			return
		}
		if ch.IsBanned(p.Identity()) {
			rb.Numeric(ErrBannedFromChan, ch.Name, "Cannot join channel (+b)")
			return
		}
		if ch.Key != "" && ch.Key != key {
			rb.Numeric(ErrBadChannelKey, ch.Name, "Cannot join channel (+k)")
			return
		}
		if ch.UserLimit != nil && len(ch.Members) >= *ch.UserLimit {
			rb.Numeric(ErrChannelIsFull, ch.Name, "Cannot join channel (+l)")
			return
		}
		if !ch.IsInvited(p.Identity()) {
			rb.Numeric(ErrInviteOnlyChan, ch.Name, "Cannot join channel (+i)")
			return
		}
	}

	ch.AddMember(p.ID)
	p.Channels[canon] = struct{}{}

	for memberID := range ch.Members {
		if memberID == p.ID {
			continue
		}
		if peer, ok := s.Peers[memberID]; ok {
			s.sendRaw(peer, nil, p.Identity(), "JOIN", func(msg *MessageBuilder) {
				msg.Param(ch.Name)
			})
		}
	}
	rb.Build(nil, p.Identity(), "JOIN", func(msg *MessageBuilder) {
		msg.Param(ch.Name)
	})

	if ch.Topic != nil {
		rb.Numeric(RplTopic, ch.Name, ch.Topic.Content)
	} else {
		rb.Numeric(RplNoTopic, ch.Name, "No topic is set")
	}

	s.sendNames(p, ch, rb)
}

func (s *State) partCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		rb.Numeric(ErrNeedMoreParams, "PART", "Not enough parameters")
		return
	}

	reason := p.Nick
	if len(m.Params) > 1 {
		reason = m.Params[1]
	}

	for _, name := range strings.Split(m.Params[0], ",") {
		canon := canonicalizeChannel(name)
		ch, ok := s.Channels[canon]
		if !ok {
			rb.Numeric(ErrNoSuchChannel, name, "No such channel")
			continue
		}
		if _, member := ch.Members[p.ID]; !member {
			rb.Numeric(ErrNotOnChannel, ch.Name, "You're not on that channel")
			continue
		}

		for memberID := range ch.Members {
			if memberID == p.ID {
				continue
			}
			if peer, ok := s.Peers[memberID]; ok {
				s.sendRaw(peer, nil, p.Identity(), "PART", func(msg *MessageBuilder) {
					msg.Param(ch.Name).TrailingParam(reason)
				})
			}
		}
		rb.Build(nil, p.Identity(), "PART", func(msg *MessageBuilder) {
			msg.Param(ch.Name).TrailingParam(reason)
		})

		delete(p.Channels, canon)
		if empty := ch.RemoveMember(p.ID); empty {
			delete(s.Channels, canon)
		}
	}
}

func (s *State) sendNames(p *Peer, ch *Channel, rb *ReplyBuilder) {
	var names []string
	for memberID, mm := range ch.Members {
		peer, ok := s.Peers[memberID]
		if !ok {
			continue
		}
		names = append(names, mm.Symbol()+peer.Nick)
	}

	const chunk = 10
	for i := 0; i < len(names); i += chunk {
		end := i + chunk
		if end > len(names) {
			end = len(names)
		}
		rb.Numeric(RplNamReply, "=", ch.Name, strings.Join(names[i:end], " "))
	}
	rb.Numeric(RplEndOfNames, ch.Name, "End of NAMES list")
}

func (s *State) namesCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		for _, ch := range s.Channels {
			s.sendNames(p, ch, rb)
		}
		return
	}
	for _, name := range strings.Split(m.Params[0], ",") {
		ch, ok := s.Channels[canonicalizeChannel(name)]
		if !ok {
			rb.Numeric(RplEndOfNames, name, "End of NAMES list")
			continue
		}
		s.sendNames(p, ch, rb)
	}
}

// --- messaging ------------------------------------------------------------

func (s *State) privmsgCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		rb.Numeric(ErrNoRecipient, "No recipient given")
		return
	}
	if len(m.Params) < 2 || m.Params[1] == "" {
		rb.Numeric(ErrNoTextToSend, "No text to send")
		return
	}

	target := m.Params[0]
	text := m.Params[1]

	msgTags := Tags{"msgid": uuid.New().String()}

	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		ch, ok := s.Channels[canonicalizeChannel(target)]
		if !ok {
			rb.Numeric(ErrNoSuchChannel, target, "No such channel")
			return
		}
		if !ch.CanTalk(p.ID) {
			rb.Numeric(ErrCannotSendToChan, ch.Name, "Cannot send to channel")
			return
		}
		for memberID := range ch.Members {
			if memberID == p.ID {
				continue
			}
			if peer, ok := s.Peers[memberID]; ok {
				s.sendRaw(peer, msgTags, p.Identity(), m.Command, func(msg *MessageBuilder) {
					msg.Param(ch.Name).TrailingParam(text)
				})
			}
		}
		if p.HasCap(CapEchoMessage) {
			rb.Build(msgTags, p.Identity(), m.Command, func(msg *MessageBuilder) {
				msg.Param(ch.Name).TrailingParam(text)
			})
		}
		return
	}

	recipient, ok := s.findPeerByNickLocked(target)
	if !ok {
		rb.Numeric(ErrNoSuchNick, m.Params[0], "No such nick/channel")
		return
	}
	s.sendRaw(recipient, msgTags, p.Identity(), m.Command, func(msg *MessageBuilder) {
		msg.Param(recipient.Nick).TrailingParam(text)
	})
	if p.HasCap(CapEchoMessage) {
		rb.Build(msgTags, p.Identity(), m.Command, func(msg *MessageBuilder) {
			msg.Param(recipient.Nick).TrailingParam(text)
		})
	}
}

// --- topic / kick / invite -------------------------------------------------

func (s *State) topicCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		rb.Numeric(ErrNeedMoreParams, "TOPIC", "Not enough parameters")
		return
	}

	ch, ok := s.Channels[canonicalizeChannel(m.Params[0])]
	if !ok {
		rb.Numeric(ErrNoSuchChannel, m.Params[0], "No such channel")
		return
	}
	mm, member := ch.Members[p.ID]
	if !member {
		rb.Numeric(ErrNotOnChannel, ch.Name, "You're not on that channel")
		return
	}

	if len(m.Params) == 1 {
		if ch.Topic == nil {
			rb.Numeric(RplNoTopic, ch.Name, "No topic is set")
			return
		}
		rb.Numeric(RplTopic, ch.Name, ch.Topic.Content)
		rb.Build(nil, s.Config.Domain, RplTopicWhoTime, func(msg *MessageBuilder) {
			msg.Param(p.DisplayNick()).Param(ch.Name).Param(ch.Topic.Who).FmtParam(fmt.Sprint(ch.Topic.Time))
		})
		return
	}

	if ch.TopicRestricted && !mm.IsAtLeastHalfop() {
		rb.Numeric(ErrChanOPrivsNeeded, ch.Name, "You're not a channel operator")
		return
	}

	content := truncateRunes(m.Params[1], s.Config.TopicLen)
	ch.Topic = &Topic{Content: content, Who: p.Identity(), Time: time.Now().Unix()}

	for memberID := range ch.Members {
		if peer, ok := s.Peers[memberID]; ok {
			s.sendRaw(peer, nil, p.Identity(), "TOPIC", func(msg *MessageBuilder) {
				msg.Param(ch.Name).TrailingParam(content)
			})
		}
	}
}

func (s *State) kickCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) < 2 {
		rb.Numeric(ErrNeedMoreParams, "KICK", "Not enough parameters")
		return
	}

	ch, ok := s.Channels[canonicalizeChannel(m.Params[0])]
	if !ok {
		rb.Numeric(ErrNoSuchChannel, m.Params[0], "No such channel")
		return
	}
	actor, member := ch.Members[p.ID]
	if !member {
		rb.Numeric(ErrNotOnChannel, ch.Name, "You're not on that channel")
		return
	}
	if !actor.IsAtLeastHalfop() {
		rb.Numeric(ErrChanOPrivsNeeded, ch.Name, "You're not a channel operator")
		return
	}

	target, ok := s.findPeerByNickLocked(m.Params[1])
	if !ok {
		rb.Numeric(ErrNoSuchNick, m.Params[1], "No such nick/channel")
		return
	}
	if _, onChan := ch.Members[target.ID]; !onChan {
		rb.Numeric(ErrUserNotInChannel, m.Params[1], "They aren't on that channel")
		return
	}

	reason := p.Nick
	if len(m.Params) > 2 {
		reason = truncateRunes(m.Params[2], s.Config.KickLen)
	}

	for memberID := range ch.Members {
		if memberID == p.ID {
			continue
		}
		if peer, ok := s.Peers[memberID]; ok {
			s.sendRaw(peer, nil, p.Identity(), "KICK", func(msg *MessageBuilder) {
				msg.Param(ch.Name).Param(target.Nick).TrailingParam(reason)
			})
		}
	}
	rb.Build(nil, p.Identity(), "KICK", func(msg *MessageBuilder) {
		msg.Param(ch.Name).Param(target.Nick).TrailingParam(reason)
	})

	delete(target.Channels, ch.Name)
	if empty := ch.RemoveMember(target.ID); empty {
		delete(s.Channels, ch.Name)
	}
}

func (s *State) inviteCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) < 2 {
		rb.Numeric(ErrNeedMoreParams, "INVITE", "Not enough parameters")
		return
	}

	target, ok := s.findPeerByNickLocked(m.Params[0])
	if !ok {
		rb.Numeric(ErrNoSuchNick, m.Params[0], "No such nick/channel")
		return
	}

	ch, ok := s.Channels[canonicalizeChannel(m.Params[1])]
	if !ok {
		rb.Numeric(ErrNoSuchChannel, m.Params[1], "No such channel")
		return
	}
	if !ch.CanInvite(p.ID) {
		rb.Numeric(ErrChanOPrivsNeeded, ch.Name, "You're not a channel operator")
		return
	}
	if _, already := ch.Members[target.ID]; already {
		rb.Numeric(ErrUserOnChannel, target.Nick, ch.Name, "is already on channel")
		return
	}

	ch.Invitation.insert(target.Nick + "!*@*")

	s.sendRaw(target, nil, p.Identity(), "INVITE", func(msg *MessageBuilder) {
		msg.Param(target.Nick).TrailingParam(ch.Name)
	})
	rb.Numeric(RplInviting, target.Nick, ch.Name)
}

// --- MODE ------------------------------------------------------------------

func (s *State) modeCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		rb.Numeric(ErrNeedMoreParams, "MODE", "Not enough parameters")
		return
	}

	target := m.Params[0]

	if strings.HasPrefix(target, "#") || strings.HasPrefix(target, "&") {
		s.channelModeCommand(p, target, m.Params[1:], rb)
		return
	}

	s.userModeCommand(p, target, m.Params[1:], rb)
}

func (s *State) userModeCommand(p *Peer, target string, args []string, rb *ReplyBuilder) {
	if canonicalizeNick(target) != canonicalizeNick(p.Nick) {
		rb.Numeric(ErrUsersDontMatch, "Cannot change mode for other users")
		return
	}
	if len(args) == 0 {
		mode := "+"
		if p.IsOper {
			mode += "o"
		}
		rb.Numeric(RplUModeIs, mode)
		return
	}
	// Only +/-o is meaningful to toggle here, and +o can't be self-granted.
	set := true
	for _, ch := range args[0] {
		switch ch {
		case '+':
			set = true
		case '-':
			set = false
		case 'o':
			if !set && p.IsOper {
				p.IsOper = false
			}
		}
	}
}

func (s *State) channelModeCommand(p *Peer, target string, args []string, rb *ReplyBuilder) {
	ch, ok := s.Channels[canonicalizeChannel(target)]
	if !ok {
		rb.Numeric(ErrNoSuchChannel, target, "No such channel")
		return
	}

	if len(args) == 0 {
		modeStr, params := ch.RenderModes(true)
		allParams := append([]string{ch.Name, modeStr}, params...)
		rb.Numeric(RplChannelModeIs, allParams...)
		return
	}

	changes := ParseModeChanges(args[0], args[1:])
	if len(changes) == 0 {
		modeStr, _ := ch.RenderModes(false)
		rb.Numeric(RplChannelModeIs, ch.Name, modeStr)
		return
	}

	actor, isMember := ch.Members[p.ID]
	if !isMember {
		rb.Numeric(ErrNotOnChannel, ch.Name, "You're not on that channel")
		return
	}

	if !ch.CanChange(changes, *actor) {
		rb.Numeric(ErrChanOPrivsNeeded, ch.Name, "You're not a channel operator")
		return
	}

	// Resolve o/h/v target nicks to peer ids via the nickname index now,
	// rather than scanning channel membership for a string match (see
	// DESIGN.md's Open Question decisions).
	for i := range changes {
		switch changes[i].Kind {
		case ModeOperator, ModeHalfop, ModeVoice:
			if peer, ok := s.findPeerByNickLocked(changes[i].Arg); ok {
				changes[i].PeerID = peer.ID
			} else {
				changes[i].PeerID = -1
			}
		}
	}

	var applied []ModeChange
	for _, change := range changes {
		switch change.Kind {
		case ModeGetBans:
			for _, mask := range ch.Ban.list() {
				rb.Numeric(RplBanList, ch.Name, mask)
			}
			rb.Numeric(RplEndOfBanList, ch.Name, "End of channel ban list")
			continue
		case ModeGetExceptions:
			for _, mask := range ch.Exception.list() {
				rb.Numeric(RplExceptList, ch.Name, mask)
			}
			rb.Numeric(RplEndOfExceptList, ch.Name, "End of channel exception list")
			continue
		case ModeGetInvitations:
			for _, mask := range ch.Invitation.list() {
				rb.Numeric(RplInvexList, ch.Name, mask)
			}
			rb.Numeric(RplEndOfInvexList, ch.Name, "End of channel invite list")
			continue
		}

		ok, errNumeric := ch.ApplyModeChange(change, s.Config.KeyLen)
		if errNumeric != "" {
			rb.Numeric(errNumeric, ch.Name, modeErrorText(errNumeric))
			continue
		}
		if ok {
			applied = append(applied, change)
		}
	}

	if len(applied) == 0 {
		return
	}

	letters, changeParams := renderAppliedModes(applied, s)

	for memberID := range ch.Members {
		if memberID == p.ID {
			continue
		}
		if peer, ok := s.Peers[memberID]; ok {
			s.sendRaw(peer, nil, p.Identity(), "MODE", func(msg *MessageBuilder) {
				msg.Param(ch.Name).Param(letters)
				for _, cp := range changeParams {
					msg.Param(cp)
				}
			})
		}
	}
	rb.Build(nil, p.Identity(), "MODE", func(msg *MessageBuilder) {
		msg.Param(ch.Name).Param(letters)
		for _, cp := range changeParams {
			msg.Param(cp)
		}
	})
}

func modeErrorText(numeric string) string {
	switch numeric {
	case ErrKeySet:
		return "Channel key already set"
	case ErrUserNotInChannel:
		return "They aren't on that channel"
	default:
		return "Cannot change mode"
	}
}

// renderAppliedModes turns a slice of successfully-applied ModeChanges back
// into a "+xy-z" letter string and the list of parameters each change that
// takes one needs, in the same order as the letters.
func renderAppliedModes(changes []ModeChange, s *State) (string, []string) {
	var b strings.Builder
	var params []string
	lastSet := true
	first := true

	letterFor := func(kind ModeChangeKind) byte {
		switch kind {
		case ModeInviteOnly:
			return 'i'
		case ModeModerated:
			return 'm'
		case ModeNoPrivMsgFromOutside:
			return 'n'
		case ModeSecret:
			return 's'
		case ModeTopicRestricted:
			return 't'
		case ModeKey:
			return 'k'
		case ModeUserLimit:
			return 'l'
		case ModeBan:
			return 'b'
		case ModeException:
			return 'e'
		case ModeInvitation:
			return 'I'
		case ModeOperator:
			return 'o'
		case ModeHalfop:
			return 'h'
		case ModeVoice:
			return 'v'
		}
		return 0
	}

	for _, change := range changes {
		if first || change.Set != lastSet {
			if change.Set {
				b.WriteByte('+')
			} else {
				b.WriteByte('-')
			}
			lastSet = change.Set
			first = false
		}
		b.WriteByte(letterFor(change.Kind))

		switch change.Kind {
		case ModeKey, ModeBan, ModeException, ModeInvitation:
			params = append(params, change.Arg)
		case ModeUserLimit:
			if change.Set {
				params = append(params, change.Arg)
			}
		case ModeOperator, ModeHalfop, ModeVoice:
			if peer, ok := s.Peers[change.PeerID]; ok {
				params = append(params, peer.Nick)
			}
		}
	}

	return b.String(), params
}

// --- who / whois ------------------------------------------------------------

func (s *State) whoCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		rb.Numeric(ErrNeedMoreParams, "WHO", "Not enough parameters")
		return
	}

	target := m.Params[0]
	ch, ok := s.Channels[canonicalizeChannel(target)]
	if !ok {
		rb.Numeric(RplEndOfWho, target, "End of WHO list")
		return
	}

	for memberID, mm := range ch.Members {
		peer, ok := s.Peers[memberID]
		if !ok {
			continue
		}
		flags := "H"
		if peer.IsOper {
			flags += "*"
		}
		flags += mm.Symbol()
		rb.Build(nil, s.Config.Domain, RplWhoReply, func(msg *MessageBuilder) {
			msg.Param(p.DisplayNick()).Param(ch.Name).Param(peer.User).
				Param(peer.RemoteAddr).Param(s.Config.Domain).Param(peer.Nick).
				Param(flags).TrailingParam("0 " + peer.RealName)
		})
	}
	rb.Numeric(RplEndOfWho, target, "End of WHO list")
}

func (s *State) whoisCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) == 0 {
		rb.Numeric(ErrNeedMoreParams, "WHOIS", "Not enough parameters")
		return
	}

	target, ok := s.findPeerByNickLocked(m.Params[0])
	if !ok {
		rb.Numeric(ErrNoSuchNick, m.Params[0], "No such nick/channel")
		return
	}

	rb.Build(nil, s.Config.Domain, RplWhoisUser, func(msg *MessageBuilder) {
		msg.Param(p.DisplayNick()).Param(target.Nick).Param(target.User).
			Param(target.RemoteAddr).Param("*").TrailingParam(target.RealName)
	})
	rb.Build(nil, s.Config.Domain, RplWhoisServer, func(msg *MessageBuilder) {
		msg.Param(p.DisplayNick()).Param(target.Nick).Param(s.Config.Domain).
			TrailingParam(s.Config.OrgName)
	})
	if target.IsOper {
		rb.Numeric(RplWhoisOper, target.Nick, "is an IRC operator")
	}

	var channels []string
	for name := range target.Channels {
		if ch, ok := s.Channels[name]; ok {
			if mm, ok := ch.Members[target.ID]; ok {
				channels = append(channels, mm.Symbol()+ch.Name)
			}
		}
	}
	if len(channels) > 0 {
		rb.Numeric(RplWhoisChans, target.Nick, strings.Join(channels, " "))
	}

	rb.Numeric(RplEndOfWhois, target.Nick, "End of WHOIS list")
}

// --- misc -------------------------------------------------------------------

func (s *State) pingCommand(p *Peer, m Message, rb *ReplyBuilder) {
	token := s.Config.Domain
	if len(m.Params) > 0 {
		token = m.Params[0]
	}
	rb.Build(nil, s.Config.Domain, "PONG", func(msg *MessageBuilder) {
		msg.Param(s.Config.Domain).TrailingParam(token)
	})
}

func (s *State) quitCommand(p *Peer, m Message, rb *ReplyBuilder) {
	reason := "Client quit"
	if len(m.Params) > 0 {
		reason = m.Params[0]
	}
	s.mu.Unlock()
	s.PeerQuit(p.ID, reason)
	s.mu.Lock()
}

func (s *State) operCommand(p *Peer, m Message, rb *ReplyBuilder) {
	if len(m.Params) < 2 {
		rb.Numeric(ErrNeedMoreParams, "OPER", "Not enough parameters")
		return
	}

	identity, err := s.Auth.Verify(m.Params[0], m.Params[1])
	if err != nil {
		rb.Numeric(ErrPasswdMismatch, "Password incorrect")
		return
	}

	p.IsOper = true
	rb.Numeric(RplYoureOper, "You are now an IRC operator")
	_ = identity
}
