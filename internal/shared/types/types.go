package types

import "time"

// WorkingComponent is the single source of truth for what a session is
// editing: the component body and its stylesheet. Every render, export and
// save reads from here.
type WorkingComponent struct {
	Body  string `json:"jsx" bson:"jsx"`
	Style string `json:"css" bson:"css"`
}

// Empty reports whether no component has been generated yet.
func (w WorkingComponent) Empty() bool {
	return w.Body == "" && w.Style == ""
}

// ChatMessage is one entry in a session's conversation transcript. The
// transcript is an audit log: it records what the model actually said, even
// when the result was rejected and never became the working component.
type ChatMessage struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// SessionRecord is the persisted form of a session.
type SessionRecord struct {
	ID        string           `json:"id" bson:"_id"`
	UserID    string           `json:"user_id" bson:"user_id"`
	Name      string           `json:"name" bson:"name"`
	Component WorkingComponent `json:"component" bson:"component"`
	Messages  []ChatMessage    `json:"messages" bson:"messages"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time        `json:"updated_at" bson:"updated_at"`
}

// DefaultSessionName is the placeholder a session carries until its first
// generation produces a real name.
const DefaultSessionName = "New Session"

// Selection describes the element the user clicked in the preview. The
// selector is the element's address at click time; it can go stale if a
// later generation changes the tree.
type Selection struct {
	Selector  string `json:"selector"`
	Tag       string `json:"tag"`
	ClassName string `json:"className"`
	ID        string `json:"id"`
	Text      string `json:"text"`
}

// Property identifies an editable aspect of a selected element.
type Property string

const (
	PropText            Property = "text"
	PropColor           Property = "color"
	PropBackgroundColor Property = "backgroundColor"
	PropFontSize        Property = "fontSize"
	PropPadding         Property = "padding"
	PropBorder          Property = "border"
	PropBoxShadow       Property = "boxShadow"
	PropBorderRadius    Property = "borderRadius"
)

// CSSName returns the stylesheet property name, or "" for the text
// pseudo-property which never touches the stylesheet.
func (p Property) CSSName() string {
	switch p {
	case PropColor:
		return "color"
	case PropBackgroundColor:
		return "background-color"
	case PropFontSize:
		return "font-size"
	case PropPadding:
		return "padding"
	case PropBorder:
		return "border"
	case PropBoxShadow:
		return "box-shadow"
	case PropBorderRadius:
		return "border-radius"
	}
	return ""
}

// NeedsPixelUnit reports whether a bare numeric value for this property
// should be suffixed with px.
func (p Property) NeedsPixelUnit() bool {
	switch p {
	case PropFontSize, PropPadding, PropBorderRadius:
		return true
	}
	return false
}

// Valid reports whether the property is one the editor understands.
func (p Property) Valid() bool {
	return p == PropText || p.CSSName() != ""
}

// PropertyEdit is one edit applied to a selected element.
type PropertyEdit struct {
	Selector string   `json:"selector"`
	Property Property `json:"property"`
	Value    string   `json:"value"`
}

// User is a registered account.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}
