package protocol

import (
	"strconv"
	"strings"
)

// Room statuses reported by the server.
const (
	RoomOpen     = "OPEN"
	RoomFull     = "FULL"
	RoomPlaying  = "PLAYING"
	RoomPaused   = "PAUSED"
	RoomFinished = "FINISHED"
)

// RoomSeparator joins room descriptors in a ROOMS_LOADED payload.
const RoomSeparator = "|"

// Room is one catalogue entry: "<id> <name> <players>/<max> <status>".
type Room struct {
	ID         string
	Name       string
	Players    int
	MaxPlayers int
	Status     string
}

// Joinable reports whether the room is open and has a free seat.
func (r Room) Joinable() bool {
	return r.Status == RoomOpen && r.Players < r.MaxPlayers
}

// ParseRoom decodes a single room descriptor.
func ParseRoom(descriptor string) (Room, error) {
	tokens := Tokenize(descriptor)
	if len(tokens) < 4 {
		return Room{}, &ProtocolError{Line: descriptor, Reason: "room descriptor needs 4 fields"}
	}

	room := Room{
		ID:     tokens[0],
		Name:   tokens[1],
		Status: tokens[3],
	}

	players, limit, ok := strings.Cut(tokens[2], "/")
	if !ok {
		return Room{}, &ProtocolError{Line: descriptor, Reason: "occupancy must be <players>/<max>"}
	}
	room.Players = atoi(players)
	room.MaxPlayers = atoi(limit)
	return room, nil
}

// ParseRooms decodes a ROOMS_LOADED payload. Malformed descriptors are
// skipped; their errors are returned alongside the rooms that parsed.
func ParseRooms(payload string) ([]Room, []error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil
	}

	var (
		rooms []Room
		errs  []error
	)
	for _, desc := range strings.Split(payload, RoomSeparator) {
		room, err := ParseRoom(desc)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rooms = append(rooms, room)
	}
	return rooms, errs
}

// atoi parses a decimal integer, yielding 0 on failure.
func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
