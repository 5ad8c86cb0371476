package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/Techsolutions2024/RFID/internal/signaling"
	"github.com/Techsolutions2024/RFID/internal/station/service"
	"github.com/Techsolutions2024/RFID/internal/station/store"
)

type Dependencies struct {
	Logger   *log.Logger
	Addr     string
	Station  *service.Station
	Access   *service.AccessService
	Registry *service.CardRegistry
	Hub      *signaling.Hub
}

type Server struct {
	httpServer *http.Server
	logger     *log.Logger
	mux        *http.ServeMux
	station    *service.Station
	access     *service.AccessService
	registry   *service.CardRegistry
	hub        *signaling.Hub
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()

	s := &Server{
		logger:   d.Logger,
		mux:      mux,
		station:  d.Station,
		access:   d.Access,
		registry: d.Registry,
		hub:      d.Hub,
	}

	mux.HandleFunc("POST /api/connect", s.handleConnect)
	mux.HandleFunc("POST /api/disconnect", s.handleDisconnect)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("POST /api/cards", s.handleAddCard)
	mux.HandleFunc("PUT /api/cards/{uid}", s.handleRenameCard)
	mux.HandleFunc("DELETE /api/cards/{uid}", s.handleRemoveCard)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("POST /api/auto-enroll/toggle", s.handleToggleAutoEnroll)

	if s.hub != nil {
		mux.HandleFunc("GET /ws", s.hub.ServeWS)
	}

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type connectRequest struct {
	Address  string `json:"address"`
	BaudRate int    `json:"baud_rate"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if req.Address == "" || req.BaudRate <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "address and baud_rate are required")
		return
	}

	if err := s.station.Connect(r.Context(), req.Address, req.BaudRate); err != nil {
		// Device-level failure, not a protocol error: report it in-band.
		writeJSON(w, http.StatusOK, actionResponse{Success: false, Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "connected to reader on " + req.Address})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.station.Disconnect()
	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "reader disconnected"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.station.Status())
}

type cardRequest struct {
	UID  string `json:"uid"`
	Name string `json:"name"`
}

func (s *Server) handleAddCard(w http.ResponseWriter, r *http.Request) {
	var req cardRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := s.registry.Add(r.Context(), req.UID, req.Name); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUID):
			writeError(w, http.StatusBadRequest, "invalid_uid", err.Error())
		case errors.Is(err, service.ErrInvalidName):
			writeError(w, http.StatusBadRequest, "invalid_name", err.Error())
		default:
			s.logger.Printf("add card error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "could not store card")
		}
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "card stored"})
}

func (s *Server) handleRenameCard(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	var req cardRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	if err := s.registry.Rename(r.Context(), uid, req.Name); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUID):
			writeError(w, http.StatusBadRequest, "invalid_uid", err.Error())
		case errors.Is(err, service.ErrInvalidName):
			writeError(w, http.StatusBadRequest, "invalid_name", err.Error())
		case errors.Is(err, store.ErrCardNotFound):
			writeError(w, http.StatusNotFound, "card_not_found", "no card with uid "+uid)
		default:
			s.logger.Printf("rename card error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "could not rename card")
		}
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "card renamed"})
}

func (s *Server) handleRemoveCard(w http.ResponseWriter, r *http.Request) {
	uid := r.PathValue("uid")

	if err := s.registry.Remove(r.Context(), uid); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidUID):
			writeError(w, http.StatusBadRequest, "invalid_uid", err.Error())
		default:
			s.logger.Printf("remove card error: %v", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "could not remove card")
		}
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{Success: true, Message: "card removed"})
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.registry.List(r.Context())
	if err != nil {
		s.logger.Printf("list cards error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list cards")
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.access.RecentLogs(r.Context())
	if err != nil {
		s.logger.Printf("recent logs error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not read access log")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleToggleAutoEnroll(w http.ResponseWriter, _ *http.Request) {
	enabled := s.access.ToggleAutoEnroll()
	writeJSON(w, http.StatusOK, map[string]bool{"auto_enroll": enabled})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}
