package service

import (
	"context"
	"sync"

	"github.com/Techsolutions2024/RFID/internal/serialio"
	"github.com/Techsolutions2024/RFID/internal/station/types"
)

// Station holds the process-wide reader state: the serial link plus the
// last-used address and speed.  It is the single authoritative copy,
// mutated only by connect/disconnect.
type Station struct {
	channel *serialio.Channel
	access  *AccessService

	mu      sync.Mutex
	address string
	baud    int
}

func NewStation(channel *serialio.Channel, access *AccessService, defaultAddress string, defaultBaud int) *Station {
	return &Station{
		channel: channel,
		access:  access,
		address: defaultAddress,
		baud:    defaultBaud,
	}
}

func (s *Station) Connect(ctx context.Context, address string, baud int) error {
	if err := s.channel.Connect(ctx, address, baud); err != nil {
		return err
	}

	s.mu.Lock()
	s.address = address
	s.baud = baud
	s.mu.Unlock()
	return nil
}

func (s *Station) Disconnect() {
	s.channel.Disconnect()
}

func (s *Station) Status() types.StationStatus {
	s.mu.Lock()
	address, baud := s.address, s.baud
	s.mu.Unlock()

	return types.StationStatus{
		Connected:  s.channel.Connected(),
		Address:    address,
		BaudRate:   baud,
		AutoEnroll: s.access.AutoEnroll(),
	}
}
