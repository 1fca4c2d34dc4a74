package main

// Numeric reply codes used by this server. Unexported constants would be
// just as correct, but these are referenced from tests too, so they're
// exported for readability at call sites (numeric literals are easy to
// transpose).
const (
	RplWelcome     = "001"
	RplYourHost    = "002"
	RplCreated     = "003"
	RplMyInfo      = "004"
	RplUModeIs     = "221"
	RplAway        = "301"
	RplWhoisUser   = "311"
	RplWhoisServer = "312"
	RplWhoisOper   = "313"
	RplEndOfWho    = "315"
	RplWhoisIdle   = "317"
	RplEndOfWhois  = "318"
	RplWhoisChans  = "319"
	RplListStart   = "321"
	RplList        = "322"
	RplListEnd     = "323"
	RplChannelModeIs = "324"
	RplNoTopic     = "331"
	RplTopic       = "332"
	RplTopicWhoTime = "333"
	RplInviting    = "341"
	RplWhoReply    = "352"
	RplNamReply    = "353"
	RplLinks       = "364"
	RplEndOfLinks  = "365"
	RplEndOfNames  = "366"
	RplBanList     = "367"
	RplEndOfBanList = "368"
	RplInfo        = "371"
	RplMotd        = "372"
	RplEndOfInfo   = "374"
	RplMotdStart   = "375"
	RplEndOfMotd   = "376"
	RplYoureOper   = "381"
	RplInvexList   = "346"
	RplEndOfInvexList = "347"
	RplExceptList  = "348"
	RplEndOfExceptList = "349"

	ErrNoSuchNick      = "401"
	ErrNoSuchChannel   = "403"
	ErrCannotSendToChan = "404"
	ErrTooManyChannels = "405"
	ErrNoOrigin        = "409"
	ErrNoRecipient     = "411"
	ErrNoTextToSend    = "412"
	ErrUnknownCommand  = "421"
	ErrNoMotd          = "422"
	ErrNoNicknameGiven = "431"
	ErrErroneousNick   = "432"
	ErrNicknameInUse   = "433"
	ErrUserNotInChannel = "441"
	ErrNotOnChannel    = "442"
	ErrUserOnChannel   = "443"
	ErrNotRegistered   = "451"
	ErrNeedMoreParams  = "461"
	ErrAlreadyRegistered = "462"
	ErrPasswdMismatch  = "464"
	ErrKeySet          = "467"
	ErrChannelIsFull   = "471"
	ErrUnknownMode     = "472"
	ErrInviteOnlyChan  = "473"
	ErrBannedFromChan  = "474"
	ErrBadChannelKey   = "475"
	ErrNoPrivileges    = "481"
	ErrChanOPrivsNeeded = "482"
	ErrUModeUnknownFlag = "501"
	ErrUsersDontMatch  = "502"
	ErrSaslFail        = "904"
	RplSaslSuccess     = "903"
	RplLoggedIn        = "900"
)
