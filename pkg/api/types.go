package api

import "time"

// ErrorResponse is a standardized error message for API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse reports process health.
type HealthResponse struct {
	Status        string `json:"status"`
	Store         string `json:"store"`
	SessionLoaded bool   `json:"sessionLoaded"`
}

// SignInRequest is the body of POST /api/v1/session.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	Loading       bool       `json:"loading"`
	UserID        string     `json:"userId,omitempty"`
	Email         string     `json:"email,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// CardLabels mirrors the caption projection of an item.
type CardLabels struct {
	Title     string `json:"title"`
	Secondary string `json:"secondary"`
	Bottom    string `json:"bottom"`
}

// ItemResponse is one card of a collection.
type ItemResponse struct {
	ID        string            `json:"id"`
	ItemType  string            `json:"itemType"`
	CreatedAt time.Time         `json:"createdAt"`
	Fields    map[string]string `json:"fields"`
	Facet     string            `json:"facet"`
	Labels    CardLabels        `json:"labels"`
	Liked     bool              `json:"liked"`
	Pending   bool              `json:"pending,omitempty"`
}

// CollectionResponse is a filtered view of one collection.
type CollectionResponse struct {
	View     string         `json:"view"`
	Status   string         `json:"status"`
	AllLabel string         `json:"allLabel"`
	Facets   []string       `json:"facets"`
	Filter   string         `json:"filter"`
	Query    string         `json:"query,omitempty"`
	Total    int            `json:"total"`
	Items    []ItemResponse `json:"items"`
}

// ToggleResponse is the outcome of a like toggle.
type ToggleResponse struct {
	ID       string `json:"id"`
	ItemType string `json:"itemType"`
	Liked    bool   `json:"liked"`
	State    string `json:"state"`
}

// NoticesResponse lists active notices.
type NoticesResponse struct {
	Notices []Notice `json:"notices"`
}

// Notice is one transient notification.
type Notice struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}
