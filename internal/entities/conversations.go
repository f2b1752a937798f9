package entities

import (
	"time"
)

type AISource string

const (
	AISourceOpenAI AISource = "openai"
	AISourceClaude AISource = "claude"
	AISourceLode   AISource = "lode"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Conversation is one imported chat. ConversationID is the natural key
// from the source export and stays stable across re-imports of the same
// file.
type Conversation struct {
	ID             uint     `gorm:"primaryKey" json:"id"`
	ConversationID string   `gorm:"uniqueIndex;size:128" json:"conversation_id"`
	Title          string   `gorm:"size:512" json:"title"`
	AISource       AISource `gorm:"index;size:20" json:"ai_source"`

	// Source timestamps as unix seconds, kept in the export's own
	// resolution for round-tripping.
	CreateTime float64 `json:"create_time"`
	UpdateTime float64 `json:"update_time"`

	// Recomputed by the stats pass over the linearized message path.
	MessageCount int `json:"message_count"`
	WordCount    int `json:"word_count"`

	// User-owned fields, never touched by imports.
	CustomTitle string `gorm:"size:512" json:"custom_title,omitempty"`
	Starred     bool   `gorm:"default:false" json:"starred"`

	Messages  []Message `gorm:"foreignKey:ConversationID;references:ConversationID" json:"messages,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message belongs to exactly one conversation. ParentID encodes the
// edit/regeneration tree of graph-shaped exports; for flat exports it is
// nil. The row id doubles as the external-content rowid of the FTS index.
type Message struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	ConversationID string  `gorm:"index;size:128" json:"conversation_id"`
	MessageID      string  `gorm:"index;size:128" json:"message_id"`
	ParentID       *string `gorm:"size:128" json:"parent_id,omitempty"`
	Role           Role    `gorm:"size:20" json:"role"`
	Content        string  `gorm:"type:text" json:"content"`
	CreateTime     float64 `json:"create_time"`
	Weight         float64 `gorm:"default:1" json:"weight"`
	Status         string  `gorm:"size:40" json:"status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ContentHash is a derived fingerprint row used only for deduplication.
// It is recomputable at any time from the messages table.
type ContentHash struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	ConversationID string `gorm:"uniqueIndex:idx_hash_msg;size:128" json:"conversation_id"`
	MessageID      string `gorm:"uniqueIndex:idx_hash_msg;size:128" json:"message_id"`
	HashValue      string `gorm:"index;size:64" json:"hash_value"`

	CreatedAt time.Time `json:"created_at"`
}

type ReportStatus string

const (
	ReportStatusInProgress ReportStatus = "in_progress"
	ReportStatusCompleted  ReportStatus = "completed"
	ReportStatusFailed     ReportStatus = "failed"
	ReportStatusCancelled  ReportStatus = "cancelled"
)

// ImportReport is the audit trail for one import job invocation.
// Append-only once the job starts; finalized exactly once.
type ImportReport struct {
	ID                    uint         `gorm:"primaryKey" json:"id"`
	BatchID               string       `gorm:"uniqueIndex;size:64" json:"batch_id"`
	SourceFile            string       `gorm:"size:1024" json:"source_file"`
	AISource              AISource     `gorm:"size:20" json:"ai_source"`
	Status                ReportStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	ConversationsImported int          `json:"conversations_imported"`
	ConversationsFailed   int          `json:"conversations_failed"`
	MessagesImported      int          `json:"messages_imported"`
	DuplicatesSkipped     int          `json:"duplicates_skipped"`
	ErrorSummary          string       `gorm:"type:text" json:"error_summary,omitempty"`
	StartedAt             time.Time    `json:"started_at"`
	CompletedAt           *time.Time   `json:"completed_at,omitempty"`
}

type RecordStatus string

const (
	RecordStatusSuccess   RecordStatus = "success"
	RecordStatusFailed    RecordStatus = "failed"
	RecordStatusDuplicate RecordStatus = "duplicate"
)

// ImportRecord is one per-conversation outcome inside an import batch.
type ImportRecord struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	BatchID        string       `gorm:"index;size:64" json:"batch_id"`
	ConversationID string       `gorm:"size:128" json:"conversation_id,omitempty"`
	Status         RecordStatus `gorm:"size:20" json:"status"`
	ErrorMessage   string       `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type JobType string

const (
	JobTypeImport      JobType = "import"
	JobTypeReindex     JobType = "reindex"
	JobTypeVectorIndex JobType = "vector-index"
)

// Job is the persisted mirror of a tracked background job. The in-memory
// manager is the source of truth while a job runs; rows exist so finished
// jobs stay inspectable across restarts.
type Job struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Type        JobType    `gorm:"size:20" json:"type"`
	Status      JobStatus  `gorm:"index;size:20" json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `gorm:"size:512" json:"message,omitempty"`
	ParamsJSON  string     `gorm:"type:text" json:"-"`
	ResultJSON  string     `gorm:"type:text" json:"-"`
	ErrorText   string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Message) TableName() string {
	return "messages"
}

func (ContentHash) TableName() string {
	return "content_hashes"
}

func (ImportReport) TableName() string {
	return "import_reports"
}

func (ImportRecord) TableName() string {
	return "import_records"
}

func (Job) TableName() string {
	return "jobs"
}
