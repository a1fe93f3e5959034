package network

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Message tags. Server→client and client→server share one namespace.
const (
	TypeGameStarted      = "GAME_STARTED"
	TypePlayerID         = "PLAYER_ID"
	TypeLobbyUpdate      = "LOBBY_UPDATE"
	TypePlayerCount      = "PLAYER_COUNT"
	TypeStartGame        = "START_GAME"
	TypeTurnUpdate       = "TURN_UPDATE"
	TypePlayerMove       = "PLAYER_MOVE"
	TypePlayerDisconnect = "PLAYER_DISCONNECT"
	TypeTurnComplete     = "TURN_COMPLETE"
	TypePlayerHover      = "PLAYER_HOVER"
	TypeUpdateStats      = "UPDATE_STATS"
	TypeSyncPlayer       = "SYNC_PLAYER"
	TypeResetGame        = "RESET_GAME"
	TypeGameReset        = "GAME_RESET"
)

// Turn update kinds carried in the last field of TURN_UPDATE.
const (
	KindTurn = "TURN"
	KindWeek = "WEEK"
)

const separator = ":"

// MaxLineSize bounds a single protocol line. A peer sending more is dropped.
const MaxLineSize = 4 * 1024

// ErrMalformed is returned for lines that do not match an expected shape.
// Receivers ignore such lines.
var ErrMalformed = errors.New("malformed message")

// Message is one protocol line: a tag followed by colon separated fields.
type Message struct {
	Type   string
	Fields []string
}

// NewMessage builds a message, formatting every field with fmt.Sprint.
func NewMessage(msgType string, fields ...any) Message {
	m := Message{Type: msgType}
	if len(fields) > 0 {
		m.Fields = make([]string, len(fields))
		for i, f := range fields {
			m.Fields[i] = fmt.Sprint(f)
		}
	}
	return m
}

// String serializes the message without the line terminator.
func (m Message) String() string {
	if len(m.Fields) == 0 {
		return m.Type
	}
	return m.Type + separator + strings.Join(m.Fields, separator)
}

// Parse splits a received line. Trailing CR/LF is ignored.
func Parse(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Message{}, fmt.Errorf("empty line: %w", ErrMalformed)
	}
	parts := strings.Split(line, separator)
	if parts[0] == "" {
		return Message{}, fmt.Errorf("missing tag in %q: %w", line, ErrMalformed)
	}
	m := Message{Type: parts[0]}
	if len(parts) > 1 {
		m.Fields = parts[1:]
	}
	return m, nil
}

// Int returns field i as an int.
func (m Message) Int(i int) (int, error) {
	if i >= len(m.Fields) {
		return 0, fmt.Errorf("%s: missing field %d: %w", m.Type, i, ErrMalformed)
	}
	n, err := strconv.Atoi(m.Fields[i])
	if err != nil {
		return 0, fmt.Errorf("%s: field %d: %w", m.Type, i, ErrMalformed)
	}
	return n, nil
}

// Float returns field i as a float64.
func (m Message) Float(i int) (float64, error) {
	if i >= len(m.Fields) {
		return 0, fmt.Errorf("%s: missing field %d: %w", m.Type, i, ErrMalformed)
	}
	f, err := strconv.ParseFloat(m.Fields[i], 64)
	if err != nil {
		return 0, fmt.Errorf("%s: field %d: %w", m.Type, i, ErrMalformed)
	}
	return f, nil
}

// --- server → client ---

func GameStarted() Message { return Message{Type: TypeGameStarted} }

func StartGame() Message { return Message{Type: TypeStartGame} }

func GameReset() Message { return Message{Type: TypeGameReset} }

func PlayerID(id int) Message { return NewMessage(TypePlayerID, id) }

func PlayerDisconnect(id int) Message { return NewMessage(TypePlayerDisconnect, id) }

// LobbyUpdate is the single line form LOBBY_UPDATE:<count>.
func LobbyUpdate(connected int) Message { return NewMessage(TypeLobbyUpdate, connected) }

// ParseLobbyCount reads the player count from LOBBY_UPDATE:<n> or PLAYER_COUNT:<n>.
func ParseLobbyCount(m Message) (int, error) {
	if m.Type != TypeLobbyUpdate && m.Type != TypePlayerCount {
		return 0, fmt.Errorf("%s is not a lobby message: %w", m.Type, ErrMalformed)
	}
	return m.Int(0)
}

// TurnUpdate is the authoritative turn advance broadcast by the server.
type TurnUpdate struct {
	PlayerID   int
	TurnNumber int
	Kind       string
}

func (u TurnUpdate) Message() Message {
	return NewMessage(TypeTurnUpdate, u.PlayerID, u.TurnNumber, u.Kind)
}

// ParseTurnUpdate accepts a missing kind as TURN.
func ParseTurnUpdate(m Message) (TurnUpdate, error) {
	var u TurnUpdate
	if m.Type != TypeTurnUpdate {
		return u, fmt.Errorf("%s is not a turn update: %w", m.Type, ErrMalformed)
	}
	var err error
	if u.PlayerID, err = m.Int(0); err != nil {
		return u, err
	}
	if u.TurnNumber, err = m.Int(1); err != nil {
		return u, err
	}
	u.Kind = KindTurn
	if len(m.Fields) > 2 {
		switch m.Fields[2] {
		case KindTurn, KindWeek:
			u.Kind = m.Fields[2]
		default:
			return u, fmt.Errorf("turn kind %q: %w", m.Fields[2], ErrMalformed)
		}
	}
	return u, nil
}

// --- client → server ---

func ResetGame() Message { return Message{Type: TypeResetGame} }

// TurnComplete is sent by the player that just finished its turn.
type TurnComplete struct {
	PlayerID   int
	TurnNumber int
}

func (c TurnComplete) Message() Message {
	return NewMessage(TypeTurnComplete, c.PlayerID, c.TurnNumber)
}

func ParseTurnComplete(m Message) (TurnComplete, error) {
	var c TurnComplete
	if m.Type != TypeTurnComplete {
		return c, fmt.Errorf("%s is not a turn completion: %w", m.Type, ErrMalformed)
	}
	var err error
	if c.PlayerID, err = m.Int(0); err != nil {
		return c, err
	}
	if c.TurnNumber, err = m.Int(1); err != nil {
		return c, err
	}
	return c, nil
}

// --- relayed in both directions ---

// Move is a player's position and time budget as seen by its owner.
type Move struct {
	PlayerID     int
	X, Y         float64
	Direction    string
	Moving       bool
	Remaining    float64
	HasRemaining bool
	DestX, DestY float64
	HasDest      bool
}

func (mv Move) Message() Message {
	fields := []string{
		strconv.Itoa(mv.PlayerID),
		formatFloat(mv.X),
		formatFloat(mv.Y),
		mv.Direction,
		strconv.FormatBool(mv.Moving),
		formatFloat(mv.Remaining),
	}
	if mv.HasDest {
		fields = append(fields, formatFloat(mv.DestX), formatFloat(mv.DestY))
	}
	return Message{Type: TypePlayerMove, Fields: fields}
}

// ParseMove needs id, x, y, direction and the moving flag; remaining time
// and destination are optional.
func ParseMove(m Message) (Move, error) {
	var mv Move
	if m.Type != TypePlayerMove || len(m.Fields) < 5 {
		return mv, fmt.Errorf("player move %q: %w", m.String(), ErrMalformed)
	}
	var err error
	if mv.PlayerID, err = m.Int(0); err != nil {
		return mv, err
	}
	if mv.X, err = m.Float(1); err != nil {
		return mv, err
	}
	if mv.Y, err = m.Float(2); err != nil {
		return mv, err
	}
	mv.Direction = m.Fields[3]
	mv.Moving = m.Fields[4] == "true"
	if len(m.Fields) > 5 {
		if mv.Remaining, err = m.Float(5); err != nil {
			return mv, err
		}
		mv.HasRemaining = true
	}
	mv.DestX, mv.DestY = mv.X, mv.Y
	if len(m.Fields) > 7 {
		if mv.DestX, err = m.Float(6); err != nil {
			return mv, err
		}
		if mv.DestY, err = m.Float(7); err != nil {
			return mv, err
		}
		mv.HasDest = true
	}
	return mv, nil
}

// Hover marks which location a remote player is pointing at.
type Hover struct {
	PlayerID int
	Index    int
}

func (h Hover) Message() Message { return NewMessage(TypePlayerHover, h.PlayerID, h.Index) }

func ParseHover(m Message) (Hover, error) {
	var h Hover
	if m.Type != TypePlayerHover {
		return h, fmt.Errorf("%s is not a hover: %w", m.Type, ErrMalformed)
	}
	var err error
	if h.PlayerID, err = m.Int(0); err != nil {
		return h, err
	}
	if h.Index, err = m.Int(1); err != nil {
		return h, err
	}
	return h, nil
}

// Stats is the payload of UPDATE_STATS and SYNC_PLAYER.
type Stats struct {
	PlayerID    int
	Skill       int
	Education   int
	Health      int
	Money       int
	BankDeposit int
}

// Message encodes the stats with the given tag (UPDATE_STATS or SYNC_PLAYER).
func (s Stats) Message(msgType string) Message {
	return NewMessage(msgType, s.PlayerID, s.Skill, s.Education, s.Health, s.Money, s.BankDeposit)
}

func ParseStats(m Message) (Stats, error) {
	var s Stats
	if m.Type != TypeUpdateStats && m.Type != TypeSyncPlayer {
		return s, fmt.Errorf("%s is not a stats message: %w", m.Type, ErrMalformed)
	}
	dst := []*int{&s.PlayerID, &s.Skill, &s.Education, &s.Health, &s.Money, &s.BankDeposit}
	for i, p := range dst {
		n, err := m.Int(i)
		if err != nil {
			return s, err
		}
		*p = n
	}
	return s, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// ReadMessage reads the next line from the connection and parses it.
// I/O errors are returned as is; a malformed line yields ErrMalformed.
func ReadMessage(conn LineConn) (Message, error) {
	line, err := conn.ReadLine()
	if err != nil {
		return Message{}, err
	}
	return Parse(line)
}

// WriteMessage writes one message as one line.
func WriteMessage(conn LineConn, msg Message) error {
	return conn.WriteLine(msg.String())
}
