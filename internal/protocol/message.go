package protocol

import (
	"fmt"
	"strings"
)

// Server error codes carried by ERR.
const (
	ErrCodeBadFormat       = "100"
	ErrCodeInvalidState    = "101"
	ErrCodeUnknownRoom     = "104"
	ErrCodeRoomWrongState  = "106"
	ErrCodeNicknameTaken   = "107"
	ErrCodeCannotReconnect = "110"
	ErrCodeServerFull      = "200"
	ErrCodeInternal        = "500"
)

// ReasonInvalidToken is the ERR reason for a rejected session token.
const ReasonInvalidToken = "INVALID_TOKEN"

// Round outcomes other than a winner's nickname.
const (
	OutcomeDraw    = "DRAW"
	OutcomeTimeout = "TIMEOUT"
)

const (
	opponentNone     = "NONE"
	statusReady      = "READY"
	gameEndOppLeft   = "opponent_left"
	gameEndOppLeftV1 = "opp_l"
)

// Message is a decoded server event. The set of implementations is closed.
type Message interface {
	Kind() Kind
	isMessage()
}

type (
	// Welcome carries the session token issued on handshake.
	Welcome struct{ Token string }

	// RoomList is the catalogue header.
	RoomList struct{ Count int }

	// RoomEntry is one raw catalogue line.
	RoomEntry struct {
		Room Room
		Err  error
	}

	// RoomsLoaded is the assembled catalogue.
	RoomsLoaded struct {
		Rooms   []Room
		Payload string
	}

	RoomCreated struct{}

	RoomJoined struct{ RoomID string }

	// ServerError is the decoded form of "ERR <code> <reason> [detail...]".
	ServerError struct {
		Code   string
		Reason string
		Detail string
	}

	// OK confirms a command, e.g. "OK you_are_ready".
	OK struct {
		Confirmed string
		Args      []string
	}

	// OpponentInfo answers GET_OPPONENT. Name is empty when the room has
	// no opponent.
	OpponentInfo struct {
		Name  string
		Ready bool
	}

	PlayerJoined  struct{ Name string }
	PlayerReady   struct{ Name string }
	PlayerUnready struct{ Name string }
	PlayerLeft    struct{ Name string }

	GameStart struct{}

	RoundStart struct{ Round int }

	// RoundResult reports a finished round. Outcome is the winner's
	// nickname, DRAW or TIMEOUT.
	RoundResult struct {
		Outcome string
		Move1   string
		Move2   string
		Score1  int
		Score2  int
	}

	GamePaused struct{}

	// GameResumed is sent to the player whose opponent reconnected.
	GameResumed struct {
		Round    int
		Score1   int
		Score2   int
		Move     string
		MoveSent bool
	}

	MoveAccepted struct{}

	// GameEnd reports the winner, or OpponentLeft when the game was
	// forfeited.
	GameEnd struct {
		Winner       string
		OpponentLeft bool
	}

	Ping struct{}

	ReconnectOK struct{ Session ResumedSession }

	// Unrecognized wraps any command outside the known set.
	Unrecognized struct{ Command string }
)

func (Welcome) Kind() Kind       { return KindWelcome }
func (RoomList) Kind() Kind      { return KindRoomList }
func (RoomEntry) Kind() Kind     { return KindRoom }
func (RoomsLoaded) Kind() Kind   { return KindRoomsLoaded }
func (RoomCreated) Kind() Kind   { return KindRoomCreated }
func (RoomJoined) Kind() Kind    { return KindRoomJoined }
func (ServerError) Kind() Kind   { return KindErr }
func (OK) Kind() Kind            { return KindOK }
func (OpponentInfo) Kind() Kind  { return KindOpponentInfo }
func (PlayerJoined) Kind() Kind  { return KindPlayerJoined }
func (PlayerReady) Kind() Kind   { return KindPlayerReady }
func (PlayerUnready) Kind() Kind { return KindPlayerUnready }
func (PlayerLeft) Kind() Kind    { return KindPlayerLeft }
func (GameStart) Kind() Kind     { return KindGameStart }
func (RoundStart) Kind() Kind    { return KindRoundStart }
func (RoundResult) Kind() Kind   { return KindRoundResult }
func (GamePaused) Kind() Kind    { return KindGamePaused }
func (GameResumed) Kind() Kind   { return KindGameResumed }
func (MoveAccepted) Kind() Kind  { return KindMoveAccepted }
func (GameEnd) Kind() Kind       { return KindGameEnd }
func (Ping) Kind() Kind          { return KindPing }
func (ReconnectOK) Kind() Kind   { return KindReconnectOK }
func (Unrecognized) Kind() Kind  { return KindUnrecognized }

func (Welcome) isMessage()       {}
func (RoomList) isMessage()      {}
func (RoomEntry) isMessage()     {}
func (RoomsLoaded) isMessage()   {}
func (RoomCreated) isMessage()   {}
func (RoomJoined) isMessage()    {}
func (ServerError) isMessage()   {}
func (OK) isMessage()            {}
func (OpponentInfo) isMessage()  {}
func (PlayerJoined) isMessage()  {}
func (PlayerReady) isMessage()   {}
func (PlayerUnready) isMessage() {}
func (PlayerLeft) isMessage()    {}
func (GameStart) isMessage()     {}
func (RoundStart) isMessage()    {}
func (RoundResult) isMessage()   {}
func (GamePaused) isMessage()    {}
func (GameResumed) isMessage()   {}
func (MoveAccepted) isMessage()  {}
func (GameEnd) isMessage()       {}
func (Ping) isMessage()          {}
func (ReconnectOK) isMessage()   {}
func (Unrecognized) isMessage()  {}

func (e ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server error %s %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("server error %s %s: %s", e.Code, e.Reason, e.Detail)
}

// InvalidToken reports whether the server rejected a session token.
func (e ServerError) InvalidToken() bool {
	return e.Reason == ReasonInvalidToken
}

func (r RoundResult) IsDraw() bool    { return r.Outcome == OutcomeDraw }
func (r RoundResult) IsTimeout() bool { return r.Outcome == OutcomeTimeout }

// Decode converts an event into its typed message.
func Decode(ev Event) Message {
	switch ev.Kind() {
	case KindWelcome:
		return Welcome{Token: ev.Part(1)}
	case KindRoomList:
		return RoomList{Count: atoi(ev.Part(1))}
	case KindRoom:
		room, err := ParseRoom(ev.Tail())
		return RoomEntry{Room: room, Err: err}
	case KindRoomsLoaded:
		payload := ev.Part(1)
		rooms, _ := ParseRooms(payload)
		return RoomsLoaded{Rooms: rooms, Payload: payload}
	case KindRoomCreated:
		return RoomCreated{}
	case KindRoomJoined:
		return RoomJoined{RoomID: ev.Part(1)}
	case KindErr:
		return decodeServerError(ev)
	case KindOK:
		return OK{Confirmed: ev.Part(1), Args: tail(ev, 2)}
	case KindOpponentInfo:
		name := ev.Part(1)
		if name == opponentNone {
			return OpponentInfo{}
		}
		return OpponentInfo{Name: name, Ready: ev.Part(2) == statusReady}
	case KindPlayerJoined:
		return PlayerJoined{Name: ev.Part(1)}
	case KindPlayerReady:
		return PlayerReady{Name: ev.Part(1)}
	case KindPlayerUnready:
		return PlayerUnready{Name: ev.Part(1)}
	case KindPlayerLeft:
		return PlayerLeft{Name: ev.Part(1)}
	case KindGameStart:
		return GameStart{}
	case KindRoundStart:
		return RoundStart{Round: atoi(ev.Part(1))}
	case KindRoundResult:
		return RoundResult{
			Outcome: ev.Part(1),
			Move1:   ev.Part(2),
			Move2:   ev.Part(3),
			Score1:  atoi(ev.Part(4)),
			Score2:  atoi(ev.Part(5)),
		}
	case KindGamePaused:
		return GamePaused{}
	case KindGameResumed:
		m := GameResumed{
			Round:  atoi(ev.Part(1)),
			Score1: atoi(ev.Part(2)),
			Score2: atoi(ev.Part(3)),
		}
		m.Move, m.MoveSent = ParseMoveMarker(ev.Part(4))
		return m
	case KindMoveAccepted:
		return MoveAccepted{}
	case KindGameEnd:
		winner := ev.Part(1)
		if winner == gameEndOppLeft || winner == gameEndOppLeftV1 {
			return GameEnd{OpponentLeft: true}
		}
		return GameEnd{Winner: winner}
	case KindPing:
		return Ping{}
	case KindReconnectOK:
		return ReconnectOK{Session: ParseResumedSession(ev)}
	default:
		return Unrecognized{Command: ev.Command()}
	}
}

func decodeServerError(ev Event) ServerError {
	return ServerError{
		Code:   ev.Part(1),
		Reason: ev.Part(2),
		Detail: strings.Join(tail(ev, 3), " "),
	}
}

func tail(ev Event, from int) []string {
	if ev.Len() <= from {
		return nil
	}
	return ev.Parts()[from:]
}
