package protocol

// Move codes.
const (
	MoveRock     = "R"
	MovePaper    = "P"
	MoveScissors = "S"
)

// Markers the server uses for "no move sent yet".
const (
	noMoveMarker = "X"
	nulMarker    = "\x00"
)

// ValidMove reports whether code is one of R, P or S.
func ValidMove(code string) bool {
	switch code {
	case MoveRock, MovePaper, MoveScissors:
		return true
	}
	return false
}

// ParseMoveMarker interprets the move field of GAME_RESUMED and
// RECONNECT_OK GAME. A missing field, "X" and NUL all mean no move was
// sent this round. Any other value means a move was sent; move holds the
// code when it is R, P or S.
func ParseMoveMarker(field string) (move string, sent bool) {
	switch field {
	case "", noMoveMarker, nulMarker:
		return "", false
	}
	if ValidMove(field) {
		return field, true
	}
	return "", true
}

// ResumeKind is the server-side state a reconnect resumed into.
type ResumeKind int

const (
	ResumeConnected ResumeKind = iota
	ResumeLobby
	ResumeGame
)

func (k ResumeKind) String() string {
	switch k {
	case ResumeLobby:
		return "lobby"
	case ResumeGame:
		return "game"
	default:
		return "connected"
	}
}

// ResumedSession is the decoded RECONNECT_OK payload.
type ResumedSession struct {
	Kind ResumeKind

	// Game
	Score1   int
	Score2   int
	Round    int
	Move     string
	MoveSent bool

	// Lobby
	Opponent      string
	OpponentReady bool
}

// HasOpponent reports whether a lobby resume named an opponent.
func (s ResumedSession) HasOpponent() bool {
	return s.Opponent != ""
}

// ParseResumedSession decodes a RECONNECT_OK event.
//
//	RECONNECT_OK GAME <score1> <score2> <round> [move]
//	RECONNECT_OK LOBBY [opponent [READY|NOT_READY]]
//	RECONNECT_OK <anything else>
//
// The single-letter forms G, L and C are accepted as well. A GAME payload
// without its three numeric fields, and anything unrecognized, resumes as
// ResumeConnected so the caller falls back to a fresh room list.
func ParseResumedSession(ev Event) ResumedSession {
	switch ev.Part(1) {
	case "GAME", "G":
		if ev.Len() < 5 {
			return ResumedSession{Kind: ResumeConnected}
		}
		s := ResumedSession{
			Kind:   ResumeGame,
			Score1: atoi(ev.Part(2)),
			Score2: atoi(ev.Part(3)),
			Round:  atoi(ev.Part(4)),
		}
		s.Move, s.MoveSent = ParseMoveMarker(ev.Part(5))
		return s

	case "LOBBY", "L":
		s := ResumedSession{Kind: ResumeLobby}
		if opp := ev.Part(2); opp != "" && opp != opponentNone {
			s.Opponent = opp
			s.OpponentReady = ev.Part(3) == statusReady
		}
		return s

	default:
		return ResumedSession{Kind: ResumeConnected}
	}
}
