package rtc

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	"github.com/pion/webrtc/v4"
)

// Description is a session description on the signaling wire.
type Description struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// FramePuller supplies the latest decoded frame from a video source;
// ok is false when no frame has arrived yet.
type FramePuller func() (image.Image, bool)

// Peer is one negotiated media transport between the station and a viewer.
type Peer interface {
	// Answer applies the remote offer and returns the local answer after
	// ICE gathering completes.
	Answer(ctx context.Context, offer Description) (Description, error)
	Close() error
}

// PeerFactory builds a Peer that streams frames obtained from pull.
// onDown fires once when the transport reports failed, closed or
// disconnected.
type PeerFactory func(pull FramePuller, onDown func()) (Peer, error)

type PionConfig struct {
	ICEServers []string
	FrameRate  int
	// BitRate is the target VP8 encoder bitrate in bits per second.
	BitRate int
}

// NewPionFactory returns the production PeerFactory: a pion PeerConnection
// carrying one sendonly VP8 track encoded by mediadevices from the pulled
// frames (placeholder substituted when the source has nothing yet).
func NewPionFactory(cfg PionConfig, logger *log.Logger) PeerFactory {
	if cfg.BitRate <= 0 {
		cfg.BitRate = 1_000_000
	}

	return func(pull FramePuller, onDown func()) (Peer, error) {
		vp8, err := vpx.NewVP8Params()
		if err != nil {
			return nil, fmt.Errorf("vp8 params: %w", err)
		}
		vp8.BitRate = cfg.BitRate

		selector := mediadevices.NewCodecSelector(mediadevices.WithVideoEncoders(&vp8))

		engine := &webrtc.MediaEngine{}
		selector.Populate(engine)
		api := webrtc.NewAPI(webrtc.WithMediaEngine(engine))

		var ice []webrtc.ICEServer
		if len(cfg.ICEServers) > 0 {
			ice = append(ice, webrtc.ICEServer{URLs: cfg.ICEServers})
		}

		pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: ice})
		if err != nil {
			return nil, fmt.Errorf("new peer connection: %w", err)
		}

		var downOnce sync.Once
		pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
			logger.Printf("peer connection state: %s", state)
			switch state {
			case webrtc.PeerConnectionStateFailed,
				webrtc.PeerConnectionStateClosed,
				webrtc.PeerConnectionStateDisconnected:
				// Teardown re-enters Close; run it off the signaling goroutine.
				downOnce.Do(func() { go onDown() })
			}
		})

		track := mediadevices.NewVideoTrack(newFrameSource(pull, cfg.FrameRate), selector)
		if _, err := pc.AddTransceiverFromTrack(track, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionSendonly,
		}); err != nil {
			_ = track.Close()
			_ = pc.Close()
			return nil, fmt.Errorf("add video track: %w", err)
		}

		return &pionPeer{pc: pc, track: track}, nil
	}
}

type pionPeer struct {
	pc    *webrtc.PeerConnection
	track mediadevices.Track
}

func (p *pionPeer) Answer(ctx context.Context, offer Description) (Description, error) {
	remote := webrtc.SessionDescription{
		Type: webrtc.NewSDPType(offer.Type),
		SDP:  offer.SDP,
	}
	if err := p.pc.SetRemoteDescription(remote); err != nil {
		return Description{}, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return Description{}, fmt.Errorf("create answer: %w", err)
	}

	gathered := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return Description{}, fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-gathered:
	case <-ctx.Done():
		return Description{}, ctx.Err()
	}

	local := p.pc.LocalDescription()
	return Description{Type: local.Type.String(), SDP: local.SDP}, nil
}

func (p *pionPeer) Close() error {
	err := p.pc.Close()
	_ = p.track.Close()
	return err
}
