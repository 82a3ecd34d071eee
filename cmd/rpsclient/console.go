package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rickgao/rps-client/internal/protocol"
	"github.com/rickgao/rps-client/internal/session"
)

var errQuit = errors.New("quit")

// actions is the command surface the console drives.
type actions interface {
	List() error
	CreateRoom(name string) error
	JoinRoom(id string) error
	Ready() error
	Move(code string) error
	Leave() error
	GetOpponent() error
	ManualReconnect(ctx context.Context) error
}

type sessionActions struct {
	*protocol.Codec
	s *session.Session
}

func (a sessionActions) ManualReconnect(ctx context.Context) error {
	return a.s.ManualReconnect(ctx)
}

const usage = "commands: list | create <name> | join <id> | ready | move <R|P|S> | leave | opponent | reconnect | quit"

func scanLines(r io.Reader, out chan<- string) {
	defer close(out)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		out <- sc.Text()
	}
}

// readCommands executes console lines until quit, EOF or cancellation.
func readCommands(ctx context.Context, lines <-chan string, a actions, p *printer) error {
	p.printf("%s", usage)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := execute(ctx, a, line); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				p.printf("error: %v", err)
			}
		}
	}
}

// execute runs one console line. Arguments follow the wire quoting rules so
// room names with spaces can be given in quotes.
func execute(ctx context.Context, a actions, line string) error {
	tokens := protocol.Tokenize(line)
	if len(tokens) == 0 {
		return nil
	}
	arg := func() (string, error) {
		if len(tokens) < 2 {
			return "", fmt.Errorf("%s needs an argument", tokens[0])
		}
		return strings.Join(tokens[1:], " "), nil
	}

	switch strings.ToLower(tokens[0]) {
	case "list", "ls":
		return a.List()
	case "create":
		name, err := arg()
		if err != nil {
			return err
		}
		return a.CreateRoom(name)
	case "join":
		id, err := arg()
		if err != nil {
			return err
		}
		return a.JoinRoom(id)
	case "ready":
		return a.Ready()
	case "move":
		code, err := arg()
		if err != nil {
			return err
		}
		return a.Move(code)
	case "leave":
		return a.Leave()
	case "opponent":
		return a.GetOpponent()
	case "reconnect":
		return a.ManualReconnect(ctx)
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q (%s)", tokens[0], usage)
	}
}

// printer serializes console output from core goroutines.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) event(ev protocol.Event) {
	p.printf("%s", describe(protocol.Decode(ev)))
}

func (p *printer) listener() session.Listener {
	return session.ListenerFuncs{
		Reconnected: func(rs protocol.ResumedSession) {
			p.printf("* reconnected (%s)", resumeSummary(rs))
		},
		ReconnectFailed: func() {
			p.printf("* reconnection failed, type 'reconnect' to retry")
		},
		ConnectionLost: func(err error) {
			p.printf("* connection lost: %v", err)
		},
		ProtocolDesync: func() {
			p.printf("* server out of sync, disconnected")
		},
	}
}

func resumeSummary(rs protocol.ResumedSession) string {
	switch rs.Kind {
	case protocol.ResumeGame:
		return fmt.Sprintf("game round %d, score %d:%d", rs.Round, rs.Score1, rs.Score2)
	case protocol.ResumeLobby:
		if !rs.HasOpponent() {
			return "lobby, waiting for opponent"
		}
		return fmt.Sprintf("lobby with %s", rs.Opponent)
	default:
		return "no room"
	}
}

// describe renders a decoded message for the console.
func describe(m protocol.Message) string {
	switch m := m.(type) {
	case protocol.Welcome:
		return "welcome, session established"
	case protocol.RoomList:
		return fmt.Sprintf("%d room(s):", m.Count)
	case protocol.RoomsLoaded:
		if len(m.Rooms) == 0 {
			return "no rooms"
		}
		var b strings.Builder
		for i, r := range m.Rooms {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "  [%s] %s %d/%d %s", r.ID, r.Name, r.Players, r.MaxPlayers, r.Status)
		}
		return b.String()
	case protocol.RoomCreated:
		return "room created"
	case protocol.RoomJoined:
		return "joined room " + m.RoomID
	case protocol.ServerError:
		return "server error: " + m.Error()
	case protocol.OK:
		return "ok " + m.Confirmed
	case protocol.OpponentInfo:
		if m.Name == "" {
			return "no opponent yet"
		}
		if m.Ready {
			return "opponent " + m.Name + " (ready)"
		}
		return "opponent " + m.Name
	case protocol.PlayerJoined:
		return m.Name + " joined"
	case protocol.PlayerReady:
		return m.Name + " is ready"
	case protocol.PlayerUnready:
		return m.Name + " is not ready"
	case protocol.PlayerLeft:
		return m.Name + " left"
	case protocol.GameStart:
		return "game started"
	case protocol.RoundStart:
		return fmt.Sprintf("round %d, your move", m.Round)
	case protocol.RoundResult:
		switch {
		case m.IsDraw():
			return fmt.Sprintf("draw (%s vs %s), score %d:%d", m.Move1, m.Move2, m.Score1, m.Score2)
		case m.IsTimeout():
			return fmt.Sprintf("round timed out, score %d:%d", m.Score1, m.Score2)
		}
		return fmt.Sprintf("%s wins the round (%s vs %s), score %d:%d", m.Outcome, m.Move1, m.Move2, m.Score1, m.Score2)
	case protocol.GamePaused:
		return "opponent disconnected, game paused"
	case protocol.GameResumed:
		return fmt.Sprintf("game resumed at round %d, score %d:%d", m.Round, m.Score1, m.Score2)
	case protocol.MoveAccepted:
		return "move accepted"
	case protocol.GameEnd:
		if m.OpponentLeft {
			return "game over, opponent left"
		}
		return "game over, winner " + m.Winner
	case protocol.ReconnectOK:
		return "session resumed"
	case protocol.Unrecognized:
		return "unrecognized " + m.Command
	default:
		return fmt.Sprintf("%v", m.Kind())
	}
}
