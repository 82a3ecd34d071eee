package protocol

// Incoming command names.
const (
	CmdWelcome       = "WELCOME"
	CmdRoomList      = "ROOM_LIST"
	CmdRoom          = "ROOM"
	CmdRoomsLoaded   = "ROOMS_LOADED"
	CmdRoomCreated   = "ROOM_CREATED"
	CmdRoomJoined    = "ROOM_JOINED"
	CmdErr           = "ERR"
	CmdOK            = "OK"
	CmdOpponentInfo  = "OPPONENT_INFO"
	CmdPlayerJoined  = "PLAYER_JOINED"
	CmdPlayerReady   = "PLAYER_READY"
	CmdPlayerUnready = "PLAYER_UNREADY"
	CmdPlayerLeft    = "PLAYER_LEFT"
	CmdGameStart     = "GAME_START"
	CmdRoundStart    = "ROUND_START"
	CmdRoundResult   = "ROUND_RESULT"
	CmdGamePaused    = "GAME_PAUSED"
	CmdGameResumed   = "GAME_RESUMED"
	CmdMoveAccepted  = "MOVE_ACCEPTED"
	CmdGameEnd       = "GAME_END"
	CmdPing          = "PING"
	CmdReconnectOK   = "RECONNECT_OK"
)

// Outgoing command names.
const (
	CmdHello       = "HELLO"
	CmdList        = "LIST"
	CmdCreate      = "CREATE"
	CmdJoin        = "JOIN"
	CmdReady       = "READY"
	CmdMove        = "MOVE"
	CmdLeave       = "LEAVE"
	CmdGetOpponent = "GET_OPPONENT"
	CmdPong        = "PONG"
	CmdReconnect   = "RECONNECT"
)

// Kind identifies an incoming command.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindWelcome
	KindRoomList
	KindRoom
	KindRoomsLoaded
	KindRoomCreated
	KindRoomJoined
	KindErr
	KindOK
	KindOpponentInfo
	KindPlayerJoined
	KindPlayerReady
	KindPlayerUnready
	KindPlayerLeft
	KindGameStart
	KindRoundStart
	KindRoundResult
	KindGamePaused
	KindGameResumed
	KindMoveAccepted
	KindGameEnd
	KindPing
	KindReconnectOK
)

var kindNames = [...]string{
	KindUnrecognized:  "UNRECOGNIZED",
	KindWelcome:       CmdWelcome,
	KindRoomList:      CmdRoomList,
	KindRoom:          CmdRoom,
	KindRoomsLoaded:   CmdRoomsLoaded,
	KindRoomCreated:   CmdRoomCreated,
	KindRoomJoined:    CmdRoomJoined,
	KindErr:           CmdErr,
	KindOK:            CmdOK,
	KindOpponentInfo:  CmdOpponentInfo,
	KindPlayerJoined:  CmdPlayerJoined,
	KindPlayerReady:   CmdPlayerReady,
	KindPlayerUnready: CmdPlayerUnready,
	KindPlayerLeft:    CmdPlayerLeft,
	KindGameStart:     CmdGameStart,
	KindRoundStart:    CmdRoundStart,
	KindRoundResult:   CmdRoundResult,
	KindGamePaused:    CmdGamePaused,
	KindGameResumed:   CmdGameResumed,
	KindMoveAccepted:  CmdMoveAccepted,
	KindGameEnd:       CmdGameEnd,
	KindPing:          CmdPing,
	KindReconnectOK:   CmdReconnectOK,
}

var kindByCommand = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		if Kind(k) != KindUnrecognized {
			m[name] = Kind(k)
		}
	}
	return m
}()

// String returns the wire command for k.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnrecognized]
	}
	return kindNames[k]
}

// ParseKind maps a wire command to its Kind. Matching is case-sensitive.
func ParseKind(command string) Kind {
	if k, ok := kindByCommand[command]; ok {
		return k
	}
	return KindUnrecognized
}

// Commands returns every recognized incoming command in Kind order.
func Commands() []string {
	out := make([]string, 0, len(kindNames)-1)
	for _, name := range kindNames[KindUnrecognized+1:] {
		out = append(out, name)
	}
	return out
}
