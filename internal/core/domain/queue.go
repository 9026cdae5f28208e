package domain

import "time"

// ErrorKind classifies why a queue item failed. It doubles as a metrics label.
type ErrorKind string

const (
	ErrorKindNone               ErrorKind = ""
	ErrorKindPromptDataNotFound ErrorKind = "prompt_data_not_found"
	ErrorKindProvider           ErrorKind = "provider"
	ErrorKindMalformedOutput    ErrorKind = "malformed_output"
	ErrorKindPersistence        ErrorKind = "persistence"
	ErrorKindInternal           ErrorKind = "internal"
)

// QueueItem is one unit of deferred LLM analysis work for a message.
type QueueItem struct {
	ID           string      `json:"id"`
	MsgID        string      `json:"msg_id"`
	Status       QueueStatus `json:"status"`
	Attempts     int         `json:"attempts"`
	CreatedAt    time.Time   `json:"created_at"`
	ClaimedAt    *time.Time  `json:"claimed_at,omitempty"`
	ProcessedAt  *time.Time  `json:"processed_at,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	ErrorKind    ErrorKind   `json:"error_kind,omitempty"`
}

// QueueStats counts queue items by status.
type QueueStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Add accumulates n items in status s. Unknown statuses are ignored.
func (q *QueueStats) Add(s QueueStatus, n int) {
	switch s {
	case QueueStatusPending:
		q.Pending += n
	case QueueStatusProcessing:
		q.Processing += n
	case QueueStatusCompleted:
		q.Completed += n
	case QueueStatusFailed:
		q.Failed += n
	}
}

// AnalysisResult is the validated LLM triage output for a message.
type AnalysisResult struct {
	ID                        string    `json:"id"`
	MsgID                     string    `json:"msg_id"`
	TicketTypeID              string    `json:"ticket_type_id"`
	ThemeText                 string    `json:"theme_text"`
	ToneOfVoiceValue          string    `json:"tone_of_voice_value"`
	Tags                      []string  `json:"tags_array"`
	AnswerText                string    `json:"answer_text"`
	CompanyAnswerDataSourceID string    `json:"company_answer_data_source_id,omitempty"`
	Sentiment                 Sentiment `json:"sentiment,omitempty"`
	Provider                  string    `json:"provider,omitempty"`
	Model                     string    `json:"model,omitempty"`
	CreatedAt                 time.Time `json:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at"`
}

// DataSource is a company FAQ/knowledge entry the model may cite.
type DataSource struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
}

// TicketType is a classification the company accepts for support tickets.
type TicketType struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PromptContext is everything the triage prompt needs about a message and its company.
type PromptContext struct {
	MsgID              string       `json:"msg_id"`
	MessageText        string       `json:"message_text"`
	MessageContext     string       `json:"message_context,omitempty"`
	MessageCreatedAt   time.Time    `json:"message_created_at"`
	Source             Source       `json:"source"`
	BrandTitle         string       `json:"brand_title"`
	CompanyTags        []string     `json:"company_tags"`
	FAQSources         []DataSource `json:"faq_sources"`
	AllowedTicketTypes []TicketType `json:"allowed_ticket_types"`
}

// HasTicketType reports whether id is among the allowed ticket types.
func (p *PromptContext) HasTicketType(id string) bool {
	for _, tt := range p.AllowedTicketTypes {
		if tt.ID == id {
			return true
		}
	}

	return false
}

// HasDataSource reports whether id references one of the FAQ sources.
func (p *PromptContext) HasDataSource(id string) bool {
	for _, ds := range p.FAQSources {
		if ds.ID == id {
			return true
		}
	}

	return false
}
