package service

import "github.com/Techsolutions2024/RFID/internal/station/types"

// Notifier pushes state changes to connected observers.  Delivery is
// best-effort: observers are a live-UI convenience, not a durable log.
type Notifier interface {
	ConnectionStatus(status, message string)
	Log(message string)
	AccessGranted(uid string, direction types.Direction)
	AccessDenied(uid string, direction types.Direction)
	LogsUpdated(entries []types.AccessLogEntry)
	CardsUpdated(cards []types.AuthorizedCard)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) ConnectionStatus(string, string)             {}
func (NopNotifier) Log(string)                                  {}
func (NopNotifier) AccessGranted(string, types.Direction)       {}
func (NopNotifier) AccessDenied(string, types.Direction)        {}
func (NopNotifier) LogsUpdated([]types.AccessLogEntry)          {}
func (NopNotifier) CardsUpdated([]types.AuthorizedCard)         {}
