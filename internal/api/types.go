package api

import (
	"time"
)

// User statuses.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusDenied   = "DENIED"
)

// Log actions.
const (
	ActionBorrow = "BORROW"
	ActionReturn = "RETURN"
)

// Log statuses. Borrow logs move PENDING -> APPROVED|DENIED, and APPROVED ->
// RETURNED once the item is back. Return logs are created COMPLETED.
const (
	LogPending   = "PENDING"
	LogApproved  = "APPROVED"
	LogDenied    = "DENIED"
	LogReturned  = "RETURNED"
	LogCompleted = "COMPLETED"
)

// Notification types.
const (
	NotifyNewUser         = "NEW_USER"
	NotifyBorrowRequest   = "NEW_BORROW_REQUEST"
	NotifyReturnRequest   = "RETURN_REQUEST"
	NotifyAccountApproved = "ACCOUNT_APPROVED"
	NotifyAccountDenied   = "ACCOUNT_DENIED"
	NotifyBorrowApproved  = "BORROW_APPROVED"
	NotifyBorrowDenied    = "BORROW_DENIED"
)

// RecipientAdmins addresses a notification to every admin.
const RecipientAdmins = "admins"

// Suggestion types.
const (
	SuggestionItem    = "ITEM"
	SuggestionFeature = "FEATURE"
)

// Item mirrors an inventory entry.
type Item struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Category          string `json:"category"`
	TotalQuantity     int    `json:"totalQuantity"`
	AvailableQuantity int    `json:"availableQuantity"`
}

// User is the client-visible account record. The server strips the
// password before it reaches the client and this type has nowhere to put it.
type User struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	LRN        string `json:"lrn,omitempty"`
	GradeLevel string `json:"gradeLevel,omitempty"`
	Section    string `json:"section,omitempty"`
	Role       string `json:"role,omitempty"`
	Status     string `json:"status"`
	IsAdmin    bool   `json:"isAdmin"`
}

// Approved reports whether the account may use the system.
func (u User) Approved() bool {
	return u.Status == StatusApproved
}

// LogEntry is a borrow or return record.
type LogEntry struct {
	ID              string `json:"id"`
	ItemID          string `json:"itemId"`
	UserID          string `json:"userId"`
	Quantity        int    `json:"quantity"`
	Timestamp       string `json:"timestamp"`
	Action          string `json:"action"`
	Status          string `json:"status"`
	AdminNotes      string `json:"adminNotes,omitempty"`
	Reason          string `json:"reason,omitempty"`
	ReturnRequested bool   `json:"returnRequested,omitempty"`
	DueDate         string `json:"dueDate,omitempty"`
	RelatedLogID    string `json:"relatedLogId,omitempty"`
}

// ParsedTimestamp returns the log timestamp as time.Time when possible.
func (l LogEntry) ParsedTimestamp() time.Time {
	return parseTime(l.Timestamp)
}

// Notification is an in-app message.
type Notification struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Message       string `json:"message"`
	Read          bool   `json:"read"`
	Timestamp     string `json:"timestamp"`
	RecipientID   string `json:"recipientId"`
	RelatedLogID  string `json:"relatedLogId,omitempty"`
	RelatedUserID string `json:"relatedUserId,omitempty"`
}

// ForAdmins reports whether the notification targets the admin audience.
func (n Notification) ForAdmins() bool {
	return n.RecipientID == RecipientAdmins
}

// Suggestion is a user-submitted request for a new item or feature.
type Suggestion struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
}

// Comment is attached to a suggestion. Comments are append-only.
type Comment struct {
	ID           string `json:"id"`
	SuggestionID string `json:"suggestionId"`
	UserID       string `json:"userId"`
	Text         string `json:"text"`
	Timestamp    string `json:"timestamp"`
}

// AppState mirrors GET /api/data.
type AppState struct {
	Items         []Item         `json:"items"`
	Users         []User         `json:"users"`
	Logs          []LogEntry     `json:"logs"`
	Notifications []Notification `json:"notifications"`
	Suggestions   []Suggestion   `json:"suggestions"`
	Comments      []Comment      `json:"comments"`
}

// Request payloads. Validation tags are checked before a request leaves the
// client.

// Credentials is the login payload.
type Credentials struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// ItemInput carries the writable item fields.
type ItemInput struct {
	Name          string `json:"name" validate:"required"`
	Category      string `json:"category" validate:"required"`
	TotalQuantity int    `json:"totalQuantity" validate:"gte=0"`
}

// UserInput carries the writable user fields. Password is only sent, never
// stored on the client.
//
// EditUser sends it as a PUT that replaces the whole profile, so edits must
// carry every field, not just the changed ones. A blank Password keeps the
// current one.
type UserInput struct {
	FullName   string `json:"fullName" validate:"required"`
	Username   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password,omitempty"`
	LRN        string `json:"lrn,omitempty"`
	GradeLevel string `json:"gradeLevel,omitempty"`
	Section    string `json:"section,omitempty"`
	Role       string `json:"role,omitempty"`
	IsAdmin    bool   `json:"isAdmin,omitempty"`
}

// BorrowRequest is the payload of POST /logs/borrow.
type BorrowRequest struct {
	UserID   string `json:"userId" validate:"required"`
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// ReturnRequest is the payload of POST /logs/return.
type ReturnRequest struct {
	BorrowLog  LogEntry `json:"borrowLog"`
	AdminNotes string   `json:"adminNotes"`
}

// SuggestionInput carries the writable suggestion fields.
type SuggestionInput struct {
	UserID      string `json:"userId" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=ITEM FEATURE"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

// ItemApproval is the payload of POST /suggestions/:id/approve-item.
type ItemApproval struct {
	Category      string `json:"category" validate:"required"`
	TotalQuantity int    `json:"totalQuantity" validate:"gte=0"`
}

// SuggestionDenial is the payload of POST /suggestions/:id/deny.
type SuggestionDenial struct {
	Reason  string `json:"reason"`
	AdminID string `json:"adminId" validate:"required"`
}

// CommentInput is the payload of POST /comments.
type CommentInput struct {
	SuggestionID string `json:"suggestionId" validate:"required"`
	UserID       string `json:"userId" validate:"required"`
	Text         string `json:"text" validate:"required"`
}

// Composite results, one per operation whose server side touches more than
// one entity.

// DeletedID is returned by delete endpoints.
type DeletedID struct {
	ID string `json:"id"`
}

// CreatedUser is returned by POST /users.
type CreatedUser struct {
	NewUser         User         `json:"newUser"`
	NewNotification Notification `json:"newNotification"`
}

// BorrowCreated is returned by POST /logs/borrow.
type BorrowCreated struct {
	NewLog          LogEntry     `json:"newLog"`
	NewNotification Notification `json:"newNotification"`
}

// BorrowApproved is returned by POST /logs/:id/approve.
type BorrowApproved struct {
	UpdatedLog  LogEntry `json:"updatedLog"`
	UpdatedItem Item     `json:"updatedItem"`
}

// ItemReturned is returned by POST /logs/return.
type ItemReturned struct {
	ReturnLog        LogEntry `json:"returnLog"`
	UpdatedBorrowLog LogEntry `json:"updatedBorrowLog"`
	UpdatedItem      Item     `json:"updatedItem"`
}

// ReturnRequested is returned by POST /logs/:id/request-return.
type ReturnRequested struct {
	UpdatedLog      LogEntry     `json:"updatedLog"`
	NewNotification Notification `json:"newNotification"`
}

// ItemSuggestionApproved is returned by POST /suggestions/:id/approve-item.
type ItemSuggestionApproved struct {
	UpdatedSuggestion Suggestion `json:"updatedSuggestion"`
	NewItem           Item       `json:"newItem"`
}

// SuggestionDenied is returned by POST /suggestions/:id/deny.
type SuggestionDenied struct {
	UpdatedSuggestion Suggestion `json:"updatedSuggestion"`
	NewComment        Comment    `json:"newComment"`
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
