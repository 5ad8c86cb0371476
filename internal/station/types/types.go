package types

import (
	"strings"
	"time"
)

// Direction is the side of the gate a scan was made on.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(DirectionIn):
		return DirectionIn, true
	case string(DirectionOut):
		return DirectionOut, true
	default:
		return "", false
	}
}

// AccessStatus is the resolved outcome of a scan.
type AccessStatus string

const (
	StatusGranted AccessStatus = "GRANTED"
	StatusDenied  AccessStatus = "DENIED"
)

type AuthorizedCard struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type AccessLogEntry struct {
	Timestamp time.Time    `json:"timestamp"`
	Direction Direction    `json:"direction"`
	CardUID   string       `json:"card_uid"`
	Status    AccessStatus `json:"status"`
}

// ScanEvent is one parsed line from the card reader.
type ScanEvent struct {
	Direction Direction
	UID       string
}

type StationStatus struct {
	Connected  bool   `json:"connected"`
	Address    string `json:"address"`
	BaudRate   int    `json:"baud_rate"`
	AutoEnroll bool   `json:"auto_enroll"`
}

// scanDelimiter separates the direction token from the card uid on the wire.
const scanDelimiter = ":UID:"

// CanonicalUID uppercases a uid and strips all whitespace, matching how
// the reader firmware reports uids with spacing between byte groups.
func CanonicalUID(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ParseScanLine parses a raw reader line of the form <DIRECTION>:UID:<uid>.
// Lines with a missing delimiter, an unrecognised direction, or an empty
// uid segment are rejected.
func ParseScanLine(line string) (ScanEvent, bool) {
	i := strings.Index(line, scanDelimiter)
	if i < 0 {
		return ScanEvent{}, false
	}
	dir, ok := ParseDirection(line[:i])
	if !ok {
		return ScanEvent{}, false
	}
	uid := CanonicalUID(line[i+len(scanDelimiter):])
	if uid == "" {
		return ScanEvent{}, false
	}
	return ScanEvent{Direction: dir, UID: uid}, true
}
