package main

import "strconv"

// Topic is a channel's topic, if one is set.
type Topic struct {
	Content string
	Who     string
	Time    int64 // unix seconds
}

// ModeChangeKind identifies one of the mode-change variants a MODE command
// can request against a channel.
type ModeChangeKind int

// The channel mode-change variants.
const (
	ModeInviteOnly ModeChangeKind = iota
	ModeModerated
	ModeNoPrivMsgFromOutside
	ModeSecret
	ModeTopicRestricted
	ModeKey
	ModeUserLimit
	ModeBan
	ModeException
	ModeInvitation
	ModeOperator
	ModeHalfop
	ModeVoice
	ModeGetBans
	ModeGetExceptions
	ModeGetInvitations
)

// ModeChange is one requested change. Set is the +/- direction for
// boolean-ish changes (including mask insert/remove and member rank
// grant/revoke). Arg carries the mode's parameter (a key, a user-limit
// string, a mask, or a target nick) where applicable. PeerID is filled in
// by the dispatcher (never by the parser) for ModeOperator/ModeHalfop/
// ModeVoice: the dispatcher resolves Arg (a nick) to a peer id via the
// shared state's nickname index before calling ApplyModeChange, per the
// open-question resolution in DESIGN.md (look up via the nick index
// instead of scanning members for a string match).
type ModeChange struct {
	Kind   ModeChangeKind
	Set    bool
	Arg    string
	PeerID int
}

// Channel holds a channel's membership, modes, mask sets, and topic. A
// channel with zero members must not exist: state.go creates one lazily on
// first join and destroys it when the last member parts.
type Channel struct {
	Name    string
	Members map[int]*MemberModes
	Topic   *Topic

	UserLimit *int
	Key       string

	Ban        MaskSet
	Exception  MaskSet
	Invitation MaskSet

	InviteOnly       bool
	Moderated        bool
	NoMsgFromOutside bool
	Secret           bool
	TopicRestricted  bool
}

// NewChannel constructs an empty channel, applying the simple (parameterless)
// flags from defaultModeString (e.g. "+nt") and ignoring anything else in
// it (keyed/limited/mask modes can't be meaningfully set from a bare
// string with no parameters).
func NewChannel(name, defaultModeString string) *Channel {
	c := &Channel{
		Name:    name,
		Members: make(map[int]*MemberModes),
	}
	c.applyDefaultModeString(defaultModeString)
	return c
}

func (c *Channel) applyDefaultModeString(s string) {
	set := true
	for _, ch := range s {
		switch ch {
		case '+':
			set = true
		case '-':
			set = false
		case 'i':
			c.InviteOnly = set
		case 'm':
			c.Moderated = set
		case 'n':
			c.NoMsgFromOutside = set
		case 's':
			c.Secret = set
		case 't':
			c.TopicRestricted = set
		default:
			// Parameterized or unrecognized; ignored, as this string carries no
			// parameters to apply it with.
		}
	}
}

// AddMember admits peerID to the channel. The first joiner is granted
// operator. Never overwrites an existing membership.
func (c *Channel) AddMember(peerID int) {
	if _, exists := c.Members[peerID]; exists {
		return
	}
	if len(c.Members) == 0 {
		c.Members[peerID] = &MemberModes{Operator: true}
		return
	}
	c.Members[peerID] = &MemberModes{}
}

// RemoveMember removes peerID from the channel and reports whether the
// channel is now empty (and so should be destroyed by the caller).
func (c *Channel) RemoveMember(peerID int) (empty bool) {
	delete(c.Members, peerID)
	return len(c.Members) == 0
}

// CanTalk reports whether peerID may send a channel message.
func (c *Channel) CanTalk(peerID int) bool {
	if mm, ok := c.Members[peerID]; ok {
		return !c.Moderated || mm.HasVoice()
	}
	return !c.Moderated && !c.NoMsgFromOutside
}

// CanInvite reports whether peerID may INVITE someone to this channel.
func (c *Channel) CanInvite(peerID int) bool {
	mm, ok := c.Members[peerID]
	if !ok {
		return false
	}
	if c.InviteOnly {
		return mm.IsAtLeastHalfop()
	}
	return true
}

// IsBanned reports whether identity (a nick!user@host string) is banned:
// matched by the ban set and not excepted or invited around it.
func (c *Channel) IsBanned(identity string) bool {
	return c.Ban.isMatch(identity) && !c.Exception.isMatch(identity) && !c.Invitation.isMatch(identity)
}

// IsInvited reports whether identity may join despite invite-only.
func (c *Channel) IsInvited(identity string) bool {
	return !c.InviteOnly || c.Invitation.isMatch(identity)
}

// CanChange is the dispatcher's pre-check: does actor hold sufficient rank
// to make every change in changes? Query forms are always allowed; parse
// errors (an unrecognized mode letter, already dropped by the parser) are
// not represented here at all. Flags gated on halfop: moderated,
// topic-restricted, user-limit, ban/exception/invex edits, voice. Flags
// gated on full op: invite-only, no-outside, secret, key, operator, halfop.
func (c *Channel) CanChange(changes []ModeChange, actor MemberModes) bool {
	for _, change := range changes {
		switch change.Kind {
		case ModeGetBans, ModeGetExceptions, ModeGetInvitations:
			continue
		case ModeModerated, ModeTopicRestricted, ModeUserLimit,
			ModeBan, ModeException, ModeInvitation, ModeVoice:
			if !actor.IsAtLeastHalfop() {
				return false
			}
		case ModeInviteOnly, ModeNoPrivMsgFromOutside, ModeSecret,
			ModeKey, ModeOperator, ModeHalfop:
			if !actor.IsAtLeastOp() {
				return false
			}
		}
	}
	return true
}

// ApplyModeChange mutates the channel per change and reports whether the
// change produced an observable difference (used to suppress redundant
// MODE echoes), or a numeric on failure.
func (c *Channel) ApplyModeChange(change ModeChange, keylen int) (applied bool, errNumeric string) {
	switch change.Kind {
	case ModeInviteOnly:
		applied = c.InviteOnly != change.Set
		c.InviteOnly = change.Set
	case ModeModerated:
		applied = c.Moderated != change.Set
		c.Moderated = change.Set
	case ModeNoPrivMsgFromOutside:
		applied = c.NoMsgFromOutside != change.Set
		c.NoMsgFromOutside = change.Set
	case ModeSecret:
		applied = c.Secret != change.Set
		c.Secret = change.Set
	case ModeTopicRestricted:
		applied = c.TopicRestricted != change.Set
		c.TopicRestricted = change.Set

	case ModeKey:
		if change.Set {
			if c.Key != "" {
				return false, ErrKeySet
			}
			c.Key = truncateRunes(change.Arg, keylen)
			return true, ""
		}
		applied = c.Key != ""
		c.Key = ""

	case ModeUserLimit:
		if change.Set {
			n, err := strconv.Atoi(change.Arg)
			if err != nil || n < 0 {
				// Silently ignore parse failure.
				return false, ""
			}
			applied = c.UserLimit == nil || *c.UserLimit != n
			c.UserLimit = &n
			return applied, ""
		}
		applied = c.UserLimit != nil
		c.UserLimit = nil

	case ModeBan:
		if change.Set {
			applied = c.Ban.insert(change.Arg)
		} else {
			applied = c.Ban.remove(change.Arg)
		}
	case ModeException:
		if change.Set {
			applied = c.Exception.insert(change.Arg)
		} else {
			applied = c.Exception.remove(change.Arg)
		}
	case ModeInvitation:
		if change.Set {
			applied = c.Invitation.insert(change.Arg)
		} else {
			applied = c.Invitation.remove(change.Arg)
		}

	case ModeOperator:
		mm, ok := c.Members[change.PeerID]
		if !ok {
			return false, ErrUserNotInChannel
		}
		applied = mm.Operator != change.Set
		mm.Operator = change.Set
	case ModeHalfop:
		mm, ok := c.Members[change.PeerID]
		if !ok {
			return false, ErrUserNotInChannel
		}
		applied = mm.Halfop != change.Set
		mm.Halfop = change.Set
	case ModeVoice:
		mm, ok := c.Members[change.PeerID]
		if !ok {
			return false, ErrUserNotInChannel
		}
		applied = mm.Voice != change.Set
		mm.Voice = change.Set

	case ModeGetBans, ModeGetExceptions, ModeGetInvitations:
		return false, ""
	}

	return applied, ""
}

// RenderModes renders the channel's current mode string in the canonical
// letter order i m n s t l k. When fullInfo is true, the user-limit value
// and key follow as additional parameters, in that order.
func (c *Channel) RenderModes(fullInfo bool) (modeString string, params []string) {
	m := "+"
	if c.InviteOnly {
		m += "i"
	}
	if c.Moderated {
		m += "m"
	}
	if c.NoMsgFromOutside {
		m += "n"
	}
	if c.Secret {
		m += "s"
	}
	if c.TopicRestricted {
		m += "t"
	}
	if c.UserLimit != nil {
		m += "l"
	}
	if c.Key != "" {
		m += "k"
	}

	if fullInfo {
		if c.UserLimit != nil {
			params = append(params, strconv.Itoa(*c.UserLimit))
		}
		if c.Key != "" {
			params = append(params, c.Key)
		}
	}

	return m, params
}

// ParseModeChanges parses a MODE letters string (e.g. "+ik-t") against its
// positional arguments, per the per-letter arity rules: i/m/n/s/t take no
// argument; k takes one only when setting; l takes one only when setting;
// b/e/I take one when changing (otherwise they're the query/list form); o/h/v
// always take one (the target nick, left unresolved in Arg — see ModeChange's
// doc comment). Unrecognized letters are silently skipped: parse errors in
// the query are ignored rather than rejecting the whole command.
func ParseModeChanges(letters string, args []string) []ModeChange {
	var changes []ModeChange
	set := true
	argIdx := 0

	next := func() (string, bool) {
		if argIdx < len(args) {
			a := args[argIdx]
			argIdx++
			return a, true
		}
		return "", false
	}

	for _, ch := range letters {
		switch ch {
		case '+':
			set = true
		case '-':
			set = false
		case 'i':
			changes = append(changes, ModeChange{Kind: ModeInviteOnly, Set: set})
		case 'm':
			changes = append(changes, ModeChange{Kind: ModeModerated, Set: set})
		case 'n':
			changes = append(changes, ModeChange{Kind: ModeNoPrivMsgFromOutside, Set: set})
		case 's':
			changes = append(changes, ModeChange{Kind: ModeSecret, Set: set})
		case 't':
			changes = append(changes, ModeChange{Kind: ModeTopicRestricted, Set: set})
		case 'k':
			arg := ""
			if set {
				arg, _ = next()
			}
			changes = append(changes, ModeChange{Kind: ModeKey, Set: set, Arg: arg})
		case 'l':
			arg := ""
			if set {
				arg, _ = next()
			}
			changes = append(changes, ModeChange{Kind: ModeUserLimit, Set: set, Arg: arg})
		case 'b':
			if arg, ok := next(); ok {
				changes = append(changes, ModeChange{Kind: ModeBan, Set: set, Arg: arg})
			} else {
				changes = append(changes, ModeChange{Kind: ModeGetBans})
			}
		case 'e':
			if arg, ok := next(); ok {
				changes = append(changes, ModeChange{Kind: ModeException, Set: set, Arg: arg})
			} else {
				changes = append(changes, ModeChange{Kind: ModeGetExceptions})
			}
		case 'I':
			if arg, ok := next(); ok {
				changes = append(changes, ModeChange{Kind: ModeInvitation, Set: set, Arg: arg})
			} else {
				changes = append(changes, ModeChange{Kind: ModeGetInvitations})
			}
		case 'o':
			if arg, ok := next(); ok {
				changes = append(changes, ModeChange{Kind: ModeOperator, Set: set, Arg: arg})
			}
		case 'h':
			if arg, ok := next(); ok {
				changes = append(changes, ModeChange{Kind: ModeHalfop, Set: set, Arg: arg})
			}
		case 'v':
			if arg, ok := next(); ok {
				changes = append(changes, ModeChange{Kind: ModeVoice, Set: set, Arg: arg})
			}
		default:
			// Unknown letter: dropped silently; no error reply is sent for it.
		}
	}

	return changes
}
