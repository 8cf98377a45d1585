// ABOUTME: Store interfaces and data types for manga-admin persistence
// ABOUTME: Defines notifications, repositories, users, manga, settings and the Store aggregate

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrInvalid is returned when an entity fails validation
var ErrInvalid = errors.New("invalid")

// ErrUsernameExists is returned when trying to create a user with an existing username.
var ErrUsernameExists = errors.New("username already exists")

// NotificationType classifies a notification
type NotificationType string

const (
	NotificationGeneral     NotificationType = "general"
	NotificationUpdate      NotificationType = "update"
	NotificationNewManga    NotificationType = "newManga"
	NotificationMaintenance NotificationType = "maintenance"
)

// Priority is the urgency of a notification
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification is a message pushed to site readers
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Type      NotificationType `json:"type"`
	Priority  Priority         `json:"priority"`
	CreatedAt time.Time        `json:"createdAt"`
	Sent      bool             `json:"sent"`
}

// ApplyDefaults fills in type and priority when the caller left them empty.
func (n *Notification) ApplyDefaults() {
	if n.Type == "" {
		n.Type = NotificationGeneral
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
}

// Validate checks required fields and enum values.
func (n *Notification) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	switch n.Type {
	case NotificationGeneral, NotificationUpdate, NotificationNewManga, NotificationMaintenance:
	default:
		return fmt.Errorf("%w: unknown notification type %q", ErrInvalid, n.Type)
	}
	switch n.Priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, n.Priority)
	}
	return nil
}

// NotificationStats summarizes the notification table
type NotificationStats struct {
	Total int `json:"total"`
	Sent  int `json:"sent"`
}

// Repository is a content source the site pulls manga from
type Repository struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	SourceCount int       `json:"sourceCount"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Validate checks required repository fields.
func (r *Repository) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("%w: url is required", ErrInvalid)
	}
	if r.SourceCount < 0 {
		return fmt.Errorf("%w: sourceCount must not be negative", ErrInvalid)
	}
	return nil
}

// RepositoryUpdate carries the fields a PUT may change. Nil fields are left as is.
type RepositoryUpdate struct {
	Name        *string `json:"name,omitempty"`
	URL         *string `json:"url,omitempty"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"isActive,omitempty"`
}

// Apply merges the update into r. lastUpdated moves only when the active flag changes.
func (u RepositoryUpdate) Apply(r *Repository, now time.Time) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.URL != nil {
		r.URL = *u.URL
	}
	if u.Description != nil {
		r.Description = *u.Description
	}
	if u.IsActive != nil {
		r.IsActive = *u.IsActive
		r.LastUpdated = now
	}
}

// RepositoryStats summarizes the repository table
type RepositoryStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Sources int `json:"sources"`
}

// User roles and statuses
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"

	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusBanned    = "banned"
)

// JoinDateLayout is the format of User.JoinDate
const JoinDateLayout = "2006-01-02"

// User is a reader account on the site (not a dashboard admin)
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
	JoinDate string `json:"joinDate"`
}

// ApplyDefaults fills role, status and join date when empty.
func (u *User) ApplyDefaults(now time.Time) {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	if u.JoinDate == "" {
		u.JoinDate = now.UTC().Format(JoinDateLayout)
	}
}

// Validate checks required user fields and enum values.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalid)
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return fmt.Errorf("%w: malformed email %q", ErrInvalid, u.Email)
	}
	switch u.Role {
	case RoleUser, RoleModerator, RoleAdmin:
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalid, u.Role)
	}
	switch u.Status {
	case UserStatusActive, UserStatusSuspended, UserStatusBanned:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, u.Status)
	}
	if _, err := time.Parse(JoinDateLayout, u.JoinDate); err != nil {
		return fmt.Errorf("%w: joinDate must be YYYY-MM-DD", ErrInvalid)
	}
	return nil
}

// UserUpdate carries the mutable user fields
type UserUpdate struct {
	Email  *string `json:"email,omitempty"`
	Role   *string `json:"role,omitempty"`
	Status *string `json:"status,omitempty"`
}

// Apply merges the update into u.
func (up UserUpdate) Apply(u *User) {
	if up.Email != nil {
		u.Email = *up.Email
	}
	if up.Role != nil {
		u.Role = *up.Role
	}
	if up.Status != nil {
		u.Status = *up.Status
	}
}

// Manga publication statuses
const (
	MangaOngoing   = "ongoing"
	MangaCompleted = "completed"
	MangaHiatus    = "hiatus"
)

// Manga is a title in the catalogue
type Manga struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Chapters    int     `json:"chapters"`
	Rating      float64 `json:"rating"`
}

// Validate checks required manga fields and ranges.
func (m *Manga) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if strings.TrimSpace(m.Author) == "" {
		return fmt.Errorf("%w: author is required", ErrInvalid)
	}
	switch m.Status {
	case MangaOngoing, MangaCompleted, MangaHiatus:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, m.Status)
	}
	if m.Chapters < 0 {
		return fmt.Errorf("%w: chapters must not be negative", ErrInvalid)
	}
	if m.Rating < 0 || m.Rating > 10 {
		return fmt.Errorf("%w: rating must be between 0 and 10", ErrInvalid)
	}
	return nil
}

// MangaUpdate carries the mutable manga fields
type MangaUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Author      *string  `json:"author,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Chapters    *int     `json:"chapters,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
}

// Apply merges the update into m.
func (up MangaUpdate) Apply(m *Manga) {
	if up.Title != nil {
		m.Title = *up.Title
	}
	if up.Author != nil {
		m.Author = *up.Author
	}
	if up.Description != nil {
		m.Description = *up.Description
	}
	if up.Status != nil {
		m.Status = *up.Status
	}
	if up.Chapters != nil {
		m.Chapters = *up.Chapters
	}
	if up.Rating != nil {
		m.Rating = *up.Rating
	}
}

// MangaStats summarizes the manga catalogue
type MangaStats struct {
	Total    int `json:"total"`
	Chapters int `json:"chapters"`
}

// Settings holds site-wide switches edited from the dashboard
type Settings struct {
	SiteName            string    `json:"siteName"`
	SiteDescription     string    `json:"siteDescription"`
	AllowRegistration   bool      `json:"allowRegistration"`
	EnableNotifications bool      `json:"enableNotifications"`
	MaintenanceMode     bool      `json:"maintenanceMode"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings used before anything is saved.
func DefaultSettings() *Settings {
	return &Settings{
		SiteName:            "FreeGoat Manga",
		SiteDescription:     "Free manga site",
		AllowRegistration:   true,
		EnableNotifications: true,
		MaintenanceMode:     false,
	}
}

// NotificationStore persists notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *Notification) error
	GetNotification(ctx context.Context, id string) (*Notification, error)
	ListNotifications(ctx context.Context) ([]*Notification, error)
	MarkNotificationSent(ctx context.Context, id string, sent bool) error
	DeleteNotification(ctx context.Context, id string) error
	NotificationStats(ctx context.Context) (NotificationStats, error)
}

// RepositoryStore persists content repositories
type RepositoryStore interface {
	CreateRepository(ctx context.Context, r *Repository) error
	GetRepository(ctx context.Context, id string) (*Repository, error)
	ListRepositories(ctx context.Context) ([]*Repository, error)
	UpdateRepository(ctx context.Context, id string, u RepositoryUpdate) (*Repository, error)
	DeleteRepository(ctx context.Context, id string) error
	// RefreshRepository bumps lastUpdated and adds to the source count of one repository.
	RefreshRepository(ctx context.Context, id string, added int) (*Repository, error)
	// RefreshActiveRepositories does the same for every active repository and
	// returns how many were touched.
	RefreshActiveRepositories(ctx context.Context, added int) (int, error)
	RepositoryStats(ctx context.Context) (RepositoryStats, error)
}

// UserStore persists site user accounts
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, id string, u UserUpdate) (*User, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
}

// MangaStore persists the manga catalogue
type MangaStore interface {
	CreateManga(ctx context.Context, m *Manga) error
	GetManga(ctx context.Context, id string) (*Manga, error)
	ListManga(ctx context.Context) ([]*Manga, error)
	UpdateManga(ctx context.Context, id string, u MangaUpdate) (*Manga, error)
	DeleteManga(ctx context.Context, id string) error
	MangaStats(ctx context.Context) (MangaStats, error)
}

// SettingsStore persists the single settings row
type SettingsStore interface {
	GetSettings(ctx context.Context) (*Settings, error)
	SaveSettings(ctx context.Context, s *Settings) error
}

// Store is everything the dashboard API reads and writes
type Store interface {
	NotificationStore
	RepositoryStore
	UserStore
	MangaStore
	SettingsStore
	AuditStore

	// Ping reports whether the backing database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
