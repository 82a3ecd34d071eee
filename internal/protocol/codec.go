package protocol

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/rickgao/rps-client/internal/bus"
)

// Sender delivers one line to the server. The connection manager
// implements it.
type Sender interface {
	Send(line string) error
}

// Bus is the event bus the codec publishes into.
type Bus = bus.Bus[Event]

// Codec turns raw lines into events on the bus and exposes the outgoing
// command surface.
//
// It assembles the ROOM_LIST/ROOM sequence into a single ROOMS_LOADED
// event, answers PING with PONG and refreshes the catalogue after
// ROOM_CREATED.
type Codec struct {
	bus    *Bus
	sender Sender
	logger *slog.Logger
	now    func() time.Time

	token atomic.Pointer[string]

	mu         sync.Mutex
	assembling bool
	expected   int
	pending    []string

	subs []*bus.Subscription
}

// NewCodec creates a codec and registers its own subscriptions on b.
func NewCodec(b *Bus, sender Sender, logger *slog.Logger) *Codec {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Codec{
		bus:    b,
		sender: sender,
		logger: logger.With("component", "codec"),
		now:    time.Now,
	}

	c.subs = []*bus.Subscription{
		b.Subscribe(CmdRoomList, c.onRoomList),
		b.Subscribe(CmdRoom, c.onRoom),
		b.Subscribe(CmdPing, c.onPing),
		b.Subscribe(CmdRoomCreated, c.onRoomCreated),
	}
	return c
}

// Close removes the codec's subscriptions.
func (c *Codec) Close() {
	for _, s := range c.subs {
		s.Cancel()
	}
}

// HandleLine parses one received line and publishes it. Blank lines are
// logged and dropped.
func (c *Codec) HandleLine(raw string) {
	ev, err := ParseLine(raw, c.now())
	if err != nil {
		c.logger.Debug("dropping line", "error", &ProtocolError{Line: raw, Reason: err.Error()})
		return
	}

	if ev.Command() == CmdPing {
		c.logger.Debug("recv", "line", raw)
	} else {
		c.logger.Info("recv", "line", raw)
	}

	if ev.Command() == CmdWelcome && ev.Len() > 1 {
		token := ev.Part(1)
		c.token.Store(&token)
	}

	c.bus.Publish(ev)
}

// Token returns the most recent session token issued by WELCOME, or "".
func (c *Codec) Token() string {
	if t := c.token.Load(); t != nil {
		return *t
	}
	return ""
}

// Pending returns the expected and accumulated counts of an in-progress
// catalogue assembly.
func (c *Codec) Pending() (expected, received int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expected, len(c.pending), c.assembling
}

func (c *Codec) onRoomList(ev Event) {
	expected := max(atoi(ev.Part(1)), 0)

	c.mu.Lock()
	c.pending = nil
	c.expected = expected
	c.assembling = expected > 0
	c.mu.Unlock()

	if expected == 0 {
		c.bus.Publish(NewEvent(CmdRoomsLoaded))
	}
}

func (c *Codec) onRoom(ev Event) {
	c.mu.Lock()
	if !c.assembling {
		c.mu.Unlock()
		c.logger.Debug("room outside catalogue", "line", ev.Raw())
		return
	}

	c.pending = append(c.pending, ev.Tail())
	if len(c.pending) < c.expected {
		c.mu.Unlock()
		return
	}

	payload := strings.Join(c.pending, RoomSeparator)
	c.pending = nil
	c.expected = 0
	c.assembling = false
	c.mu.Unlock()

	c.bus.Publish(NewEvent(CmdRoomsLoaded, payload))
}

func (c *Codec) onPing(Event) {
	if err := c.Pong(); err != nil {
		c.logger.Debug("pong not sent", "error", err)
	}
}

func (c *Codec) onRoomCreated(Event) {
	if err := c.List(); err != nil {
		c.logger.Debug("catalogue refresh not sent", "error", err)
	}
}

// Hello starts the handshake with nick.
func (c *Codec) Hello(nick string) error {
	nick, err := normalizeName("nickname", nick)
	if err != nil {
		return err
	}
	return c.send(CmdHello, nick)
}

// List requests the room catalogue.
func (c *Codec) List() error {
	return c.send(CmdList)
}

// CreateRoom asks the server to create a room called name.
func (c *Codec) CreateRoom(name string) error {
	name, err := normalizeName("room name", name)
	if err != nil {
		return err
	}
	return c.send(CmdCreate, name)
}

// JoinRoom joins the room with the given id.
func (c *Codec) JoinRoom(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("room id is blank: %w", ErrInvalidArgument)
	}
	return c.send(CmdJoin, id)
}

func (c *Codec) Ready() error {
	return c.send(CmdReady)
}

// Move plays code, one of R, P or S.
func (c *Codec) Move(code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidMove(code) {
		return fmt.Errorf("move %q is not R, P or S: %w", code, ErrInvalidArgument)
	}
	return c.send(CmdMove, code)
}

func (c *Codec) Leave() error {
	return c.send(CmdLeave)
}

func (c *Codec) GetOpponent() error {
	return c.send(CmdGetOpponent)
}

func (c *Codec) Pong() error {
	return c.send(CmdPong)
}

// SendReconnect presents a session token to resume a session.
func (c *Codec) SendReconnect(token string) error {
	if err := ValidateToken(token); err != nil {
		return err
	}
	return c.send(CmdReconnect, token)
}

// ValidateToken rejects blank tokens and tokens containing whitespace.
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("token is blank: %w", ErrInvalidArgument)
	}
	if strings.ContainsFunc(token, unicode.IsSpace) {
		return fmt.Errorf("token contains whitespace: %w", ErrInvalidArgument)
	}
	return nil
}

func (c *Codec) send(tokens ...string) error {
	line := Join(tokens...)
	switch tokens[0] {
	case CmdPong:
		c.logger.Debug("send", "line", line)
	case CmdReconnect:
		c.logger.Info("send", "command", CmdReconnect)
	default:
		c.logger.Info("send", "line", line)
	}
	return c.sender.Send(line)
}

func normalizeName(field, s string) (string, error) {
	s = norm.NFC.String(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("%s is blank: %w", field, ErrInvalidArgument)
	}
	return s, nil
}
