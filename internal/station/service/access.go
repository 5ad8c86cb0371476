package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Techsolutions2024/RFID/internal/station/store"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

// LineWriter sends a decision line back to the card reader.
type LineWriter interface {
	WriteLine(line string) error
}

const (
	responseAllow = "ALLOW"
	responseDeny  = "DENY"
)

// AccessService turns one raw reader line into an authorization decision,
// a device response, a persisted log entry and a set of notifications.
type AccessService struct {
	registry    *CardRegistry
	logs        store.AccessLogStore
	writer      LineWriter
	notifier    Notifier
	logger      *log.Logger
	recentLimit int

	mu         sync.Mutex
	autoEnroll bool
}

func NewAccessService(
	registry *CardRegistry,
	logs store.AccessLogStore,
	writer LineWriter,
	notifier Notifier,
	logger *log.Logger,
	recentLimit int,
) *AccessService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if recentLimit <= 0 {
		recentLimit = 50
	}
	return &AccessService{
		registry:    registry,
		logs:        logs,
		writer:      writer,
		notifier:    notifier,
		logger:      logger,
		recentLimit: recentLimit,
	}
}

func (s *AccessService) AutoEnroll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoEnroll
}

func (s *AccessService) ToggleAutoEnroll() bool {
	s.mu.Lock()
	s.autoEnroll = !s.autoEnroll
	enabled := s.autoEnroll
	s.mu.Unlock()

	state := "off"
	if enabled {
		state = "on"
	}
	s.notifier.Log("auto-enroll turned " + state)
	return enabled
}

// HandleLine processes one raw line from the reader.  Malformed lines are
// dropped with a log message and produce no state change.  Write-back and
// audit failures are logged but never abort the pipeline.
func (s *AccessService) HandleLine(ctx context.Context, line string) {
	s.notifier.Log("device: " + line)

	ev, ok := types.ParseScanLine(line)
	if !ok {
		s.logger.Printf("dropped malformed scan line: %q", line)
		return
	}

	status := types.StatusDenied
	switch {
	case s.AutoEnroll() && ev.Direction == types.DirectionIn && !s.registry.IsAuthorized(ev.UID):
		if err := s.registry.Add(ctx, ev.UID, defaultCardName(ev.UID)); err != nil {
			// Enrollment failed: the card stays unknown, so the scan is denied.
			s.logger.Printf("auto-enroll %s: %v", ev.UID, err)
			s.notifier.Log(fmt.Sprintf("auto-enroll of card %s failed", ev.UID))
		} else {
			status = types.StatusGranted
			s.notifier.Log(fmt.Sprintf("new card %s auto-enrolled and allowed in", ev.UID))
		}
	case s.registry.IsAuthorized(ev.UID):
		status = types.StatusGranted
	}

	if status == types.StatusGranted {
		s.notifier.Log(fmt.Sprintf("card %s allowed %s", ev.UID, ev.Direction))
		s.notifier.AccessGranted(ev.UID, ev.Direction)
	} else {
		s.notifier.Log(fmt.Sprintf("card %s denied %s", ev.UID, ev.Direction))
		s.notifier.AccessDenied(ev.UID, ev.Direction)
	}

	response := responseDeny
	if status == types.StatusGranted {
		response = responseAllow
	}
	if err := s.writer.WriteLine(response); err != nil {
		s.logger.Printf("decision write-back: %v", err)
	}

	entry := types.AccessLogEntry{
		Timestamp: time.Now().UTC(),
		Direction: ev.Direction,
		CardUID:   ev.UID,
		Status:    status,
	}
	if err := s.logs.Append(ctx, entry); err != nil {
		s.logger.Printf("access log append: %v", err)
	}

	recent, err := s.logs.Recent(ctx, s.recentLimit)
	if err != nil {
		s.logger.Printf("recent log snapshot: %v", err)
		return
	}
	s.notifier.LogsUpdated(recent)
}

func (s *AccessService) RecentLogs(ctx context.Context) ([]types.AccessLogEntry, error) {
	return s.logs.Recent(ctx, s.recentLimit)
}

// defaultCardName derives the display name used when auto-enroll admits an
// unknown card.
func defaultCardName(uid string) string {
	if len(uid) > 8 {
		uid = uid[:8]
	}
	return "New card " + uid
}
