package rest

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/mq"
	"github.com/teamloft/teamloft/service"
)

type Handler struct {
	Service *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{Service: svc}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type userResponse struct {
	Id        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar,omitempty"`
}

type authResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.Service.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		log.Printf("Register failed: %v", err)
		http.Error(w, "registration failed", http.StatusBadRequest)
		return
	}

	token, err := h.Service.CreateJWT(user)
	if err != nil {
		log.Printf("Token creation failed: %v", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	h.sendResponse(w, authResponse{User: toUserResponse(user), Token: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, token, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			http.Error(w, "invalid email or password", http.StatusUnauthorized)
			return
		}
		log.Printf("Login failed: %v", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.sendResponse(w, authResponse{User: toUserResponse(user), Token: token})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	h.sendResponse(w, toUserResponse(user))
}

type notificationsResponse struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
}

type markReadRequest struct {
	Ids []string `json:"ids"`
}

type successResponse struct {
	Success bool `json:"success"`
}

func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	user, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		unreadOnly := r.URL.Query().Get("unread") == "true"
		notifications, unread, err := h.Service.Notifications(r.Context(), user.Id, unreadOnly)
		if err != nil {
			log.Printf("Failed to list notifications for %s: %v", user.Id, err)
			http.Error(w, "failed to list notifications", http.StatusInternalServerError)
			return
		}
		h.sendResponse(w, notificationsResponse{Notifications: notifications, UnreadCount: unread})

	case http.MethodPut:
		var req markReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := h.Service.MarkNotificationsRead(r.Context(), user.Id, req.Ids); err != nil {
			log.Printf("Failed to mark notifications read for %s: %v", user.Id, err)
			http.Error(w, "failed to mark notifications read", http.StatusInternalServerError)
			return
		}
		h.sendResponse(w, successResponse{Success: true})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type activitiesResponse struct {
	Activities []models.Activity `json:"activities"`
}

func (h *Handler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	activities, err := h.Service.Activities(r.Context(), query.Get("scope"), query.Get("id"), limit)
	if err != nil {
		log.Printf("Failed to list activities: %v", err)
		http.Error(w, "failed to list activities", http.StatusBadRequest)
		return
	}
	h.sendResponse(w, activitiesResponse{Activities: activities})
}

type presenceResponse struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

func (h *Handler) HandlePresence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	query := r.URL.Query()
	roomType, roomId := query.Get("roomType"), query.Get("roomId")
	users, err := h.Service.RoomPresence(r.Context(), roomType, roomId)
	if err != nil {
		http.Error(w, "failed to read presence", http.StatusBadRequest)
		return
	}
	h.sendResponse(w, presenceResponse{Room: roomType + ":" + roomId, Users: users})
}

// HandleNotifyEnqueue lets trusted platform services hand a
// notification job to the queue over HTTP instead of SQS directly.
func (h *Handler) HandleNotifyEnqueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	var job mq.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if job.Recipient == "" {
		http.Error(w, "recipient is required", http.StatusBadRequest)
		return
	}

	if err := h.Service.EnqueueNotification(r.Context(), job); err != nil {
		log.Printf("Failed to enqueue notification for %s: %v", job.Recipient, err)
		http.Error(w, "failed to enqueue notification", http.StatusInternalServerError)
		return
	}
	h.sendResponse(w, successResponse{Success: true})
}

type deliverMessageRequest struct {
	Recipient string          `json:"recipient"`
	Message   json.RawMessage `json:"message"`
}

// HandleDeliverMessage pushes a direct message to the recipient's live
// connections. The conversation service calls this after persisting
// the message on its side.
func (h *Handler) HandleDeliverMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if _, ok := h.authenticate(w, r); !ok {
		return
	}

	var req deliverMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Recipient == "" || len(req.Message) == 0 {
		http.Error(w, "recipient and message are required", http.StatusBadRequest)
		return
	}

	h.Service.DeliverMessage(r.Context(), req.Recipient, req.Message)
	h.sendResponse(w, successResponse{Success: true})
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	user, err := h.Service.AuthenticateToken(r.Context(), h.getTokenFromAuthHeader(r))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return models.User{}, false
	}
	return user, true
}

func toUserResponse(user models.User) userResponse {
	return userResponse{
		Id:        user.Id,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Avatar:    user.Avatar,
	}
}

func (h *Handler) sendResponse(w http.ResponseWriter, resp any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) getTokenFromAuthHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return ""
	}
	return strings.TrimPrefix(authHeader, prefix)
}
