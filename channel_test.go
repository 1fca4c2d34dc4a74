package main

import "testing"

func TestChannelAddMemberFirstJoinerIsOperator(t *testing.T) {
	c := NewChannel("#chan", "")
	c.AddMember(1)
	c.AddMember(2)

	if !c.Members[1].Operator {
		t.Errorf("expected first joiner to be operator")
	}
	if c.Members[2].Operator {
		t.Errorf("did not expect second joiner to be operator")
	}
}

func TestChannelDefaultModeString(t *testing.T) {
	c := NewChannel("#chan", "+nt")
	if !c.NoMsgFromOutside || !c.TopicRestricted {
		t.Errorf("expected +n and +t applied from default mode string")
	}
	if c.Moderated || c.InviteOnly || c.Secret {
		t.Errorf("did not expect other flags set")
	}
}

func TestChannelCanChangeHalfopVsOpGating(t *testing.T) {
	halfop := MemberModes{Halfop: true}
	op := MemberModes{Operator: true}

	c := NewChannel("#chan", "")

	halfopGated := []ModeChange{{Kind: ModeVoice, Set: true, Arg: "x"}}
	if !c.CanChange(halfopGated, halfop) {
		t.Errorf("expected halfop to be able to grant voice")
	}

	opGated := []ModeChange{{Kind: ModeInviteOnly, Set: true}}
	if c.CanChange(opGated, halfop) {
		t.Errorf("did not expect halfop to set invite-only")
	}
	if !c.CanChange(opGated, op) {
		t.Errorf("expected operator to set invite-only")
	}
}

func TestChannelApplyModeChangeKeySetTwice(t *testing.T) {
	c := NewChannel("#chan", "")

	applied, errNumeric := c.ApplyModeChange(ModeChange{Kind: ModeKey, Set: true, Arg: "secret"}, 23)
	if errNumeric != "" || !applied {
		t.Fatalf("first key set failed: applied=%v err=%s", applied, errNumeric)
	}

	_, errNumeric = c.ApplyModeChange(ModeChange{Kind: ModeKey, Set: true, Arg: "other"}, 23)
	if errNumeric != ErrKeySet {
		t.Errorf("expected ErrKeySet on second +k, got %q", errNumeric)
	}
	if c.Key != "secret" {
		t.Errorf("expected key to remain unchanged, got %q", c.Key)
	}
}

func TestChannelApplyModeChangeUnsetKeyIgnoresArg(t *testing.T) {
	c := NewChannel("#chan", "")
	_, _ = c.ApplyModeChange(ModeChange{Kind: ModeKey, Set: true, Arg: "secret"}, 23)

	applied, errNumeric := c.ApplyModeChange(ModeChange{Kind: ModeKey, Set: false}, 23)
	if errNumeric != "" || !applied {
		t.Fatalf("unsetting key failed: applied=%v err=%s", applied, errNumeric)
	}
	if c.Key != "" {
		t.Errorf("expected key cleared, got %q", c.Key)
	}
}

func TestChannelApplyModeChangeOperatorRequiresMember(t *testing.T) {
	c := NewChannel("#chan", "")
	c.AddMember(1)

	_, errNumeric := c.ApplyModeChange(ModeChange{Kind: ModeOperator, Set: true, PeerID: 99}, 23)
	if errNumeric != ErrUserNotInChannel {
		t.Errorf("expected ErrUserNotInChannel, got %q", errNumeric)
	}
}

func TestChannelRenderModesOrderAndParams(t *testing.T) {
	c := NewChannel("#chan", "")
	c.InviteOnly = true
	c.TopicRestricted = true
	limit := 10
	c.UserLimit = &limit
	c.Key = "shh"

	modeStr, params := c.RenderModes(true)
	if modeStr != "+itlk" {
		t.Errorf("modeStr = %q, wanted +itlk", modeStr)
	}
	if len(params) != 2 || params[0] != "10" || params[1] != "shh" {
		t.Errorf("params = %v, wanted [10 shh]", params)
	}
}

func TestParseModeChangesArity(t *testing.T) {
	changes := ParseModeChanges("+o-v", []string{"alice", "bob"})
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d: %v", len(changes), changes)
	}
	if changes[0].Kind != ModeOperator || !changes[0].Set || changes[0].Arg != "alice" {
		t.Errorf("unexpected first change: %+v", changes[0])
	}
	if changes[1].Kind != ModeVoice || changes[1].Set || changes[1].Arg != "bob" {
		t.Errorf("unexpected second change: %+v", changes[1])
	}
}

func TestParseModeChangesBanQueryForm(t *testing.T) {
	changes := ParseModeChanges("b", nil)
	if len(changes) != 1 || changes[0].Kind != ModeGetBans {
		t.Fatalf("expected a single ModeGetBans query, got %v", changes)
	}
}

func TestChannelIsBannedExceptionOverrides(t *testing.T) {
	c := NewChannel("#chan", "")
	c.Ban.insert("*!*@host1")
	c.Exception.insert("nick!*@host1")

	if c.IsBanned("nick!user@host1") {
		t.Errorf("expected exception to override ban")
	}
	if !c.IsBanned("other!user@host1") {
		t.Errorf("expected other!user@host1 to remain banned")
	}
}

func TestChannelCanTalkModerated(t *testing.T) {
	c := NewChannel("#chan", "")
	c.Moderated = true
	c.AddMember(1) // operator
	c.AddMember(2)

	if !c.CanTalk(1) {
		t.Errorf("expected operator to be able to talk while moderated")
	}
	if c.CanTalk(2) {
		t.Errorf("did not expect voiceless member to talk while moderated")
	}

	c.Members[2].Voice = true
	if !c.CanTalk(2) {
		t.Errorf("expected voiced member to talk while moderated")
	}
}
