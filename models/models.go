package models

import "time"

type User struct {
	Id           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Avatar       string
	Created      int64
}

// UserInfo is the presentation subset of a user carried in presence events.
type UserInfo struct {
	Id       string `json:"id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Initials string `json:"initials,omitempty"`
}

type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Cursor struct {
	X         float64    `json:"x"`
	Y         float64    `json:"y"`
	BlockId   string     `json:"blockId,omitempty"`
	Selection *Selection `json:"selection,omitempty"`
}

type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

type ActivityStatus string

const (
	ActivityIdle      ActivityStatus = "idle"
	ActivityTyping    ActivityStatus = "typing"
	ActivityDrawing   ActivityStatus = "drawing"
	ActivityScrolling ActivityStatus = "scrolling"
	ActivitySelecting ActivityStatus = "selecting"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ElementType string

const (
	ElementShape     ElementType = "shape"
	ElementSticky    ElementType = "sticky"
	ElementText      ElementType = "text"
	ElementImage     ElementType = "image"
	ElementFreehand  ElementType = "freehand"
	ElementConnector ElementType = "connector"
)

type Element struct {
	Id       string      `json:"id"`
	Type     ElementType `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation"`

	ShapeType string `json:"shapeType,omitempty"`

	BackgroundColor string  `json:"backgroundColor,omitempty"`
	BorderColor     string  `json:"borderColor,omitempty"`
	BorderWidth     float64 `json:"borderWidth,omitempty"`
	Opacity         float64 `json:"opacity,omitempty"`

	Text      string  `json:"text,omitempty"`
	FontSize  float64 `json:"fontSize,omitempty"`
	FontColor string  `json:"fontColor,omitempty"`

	ImageUrl string `json:"imageUrl,omitempty"`

	Path        []Point `json:"path,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`

	FromElementId string `json:"fromElementId,omitempty"`
	ToElementId   string `json:"toElementId,omitempty"`
	FromPoint     *Point `json:"fromPoint,omitempty"`
	ToPoint       *Point `json:"toPoint,omitempty"`

	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

type Whiteboard struct {
	Id              string    `json:"id"`
	Name            string    `json:"name"`
	Project         string    `json:"project"`
	Workspace       string    `json:"workspace"`
	Elements        []Element `json:"elements"`
	CanvasWidth     float64   `json:"canvasWidth"`
	CanvasHeight    float64   `json:"canvasHeight"`
	BackgroundColor string    `json:"backgroundColor"`
	CreatedBy       string    `json:"createdBy"`
	LastModifiedBy  string    `json:"lastModifiedBy"`
	LastModifiedAt  time.Time `json:"lastModifiedAt"`
}

type Activity struct {
	Id         string         `json:"id"`
	Type       string         `json:"type"`
	UserId     string         `json:"userId"`
	Workspace  string         `json:"workspace,omitempty"`
	Project    string         `json:"project,omitempty"`
	TargetType string         `json:"targetType,omitempty"`
	TargetId   string         `json:"targetId,omitempty"`
	TargetName string         `json:"targetName,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

type Notification struct {
	Id        string         `json:"id"`
	Recipient string         `json:"recipient"`
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Link      string         `json:"link,omitempty"`
	Read      bool           `json:"read"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
