package models

import "time"

const PDFMimeType = "application/pdf"

// ChallanDocument is a finished challan page. It is never mutated after
// the layout engine returns it.
type ChallanDocument struct {
	Bytes    []byte
	Filename string
	MimeType string
}

// SaveResult is what the client receives after a challan is stored
type SaveResult struct {
	URI      string `json:"uri"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
}

// GenerateChallanRequest carries everything the trigger supplies
type GenerateChallanRequest struct {
	Fee    FeeRecord  `json:"fee"`
	Bank   BankRecord `json:"bank"`
	School SchoolInfo `json:"school"`
	Campus CampusInfo `json:"campus"`
}

// ChallanLog records a single generation attempt
type ChallanLog struct {
	ID         string    `json:"id"`
	FeeID      string    `json:"fee_id"`
	StudentID  string    `json:"student_id"`
	Filename   string    `json:"filename"`
	URI        string    `json:"uri"`
	Strategy   string    `json:"strategy"`
	Outcome    string    `json:"outcome"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is pushed to a student's connected clients
type Notification struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	FileURI  string `json:"fileUri"`
	MimeType string `json:"mimeType"`
}
