package signaling

import "encoding/json"

// Envelope is the framing for every event on the WebSocket channel.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound.

type OfferPayload struct {
	Direction string `json:"direction"`
	URL       string `json:"url"`
	SDP       string `json:"sdp"`
	Type      string `json:"type"`
}

// Outbound.

type AnswerPayload struct {
	Direction string `json:"direction"`
	SDP       string `json:"sdp"`
	Type      string `json:"type"`
}

type ConnectionStatusPayload struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type LogPayload struct {
	Message string `json:"message"`
}

type AccessPayload struct {
	UID       string `json:"uid"`
	Direction string `json:"direction"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func marshalEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
