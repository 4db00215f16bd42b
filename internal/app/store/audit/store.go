// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth    = "auth"
	CategoryCompany = "company"
	CategoryFiling  = "filing"
)

// Auth event types
const (
	EventCodeSent      = "code_sent"
	EventCodeFailed    = "code_failed"
	EventLoginSuccess  = "login_success"
	EventLogout        = "logout"
	EventUserCreated   = "user_created"
	EventUserDeleted   = "user_deleted"
	EventTokenRejected = "token_rejected"
)

// Company event types
const (
	EventCompanyCreated     = "company_created"
	EventCompanyUpdated     = "company_updated"
	EventCompanyDeleted     = "company_deleted"
	EventCompanyImported    = "company_imported"
	EventParticipantAdded   = "participant_added"
	EventParticipantUpdated = "participant_updated"
	EventParticipantDeleted = "participant_deleted"
	EventDocumentImageSet   = "document_image_set"
	EventDocumentImageDel   = "document_image_deleted"
)

// Filing event types
const (
	EventCompanySubmitted = "company_submitted"
	EventPaymentCreated   = "payment_created"
	EventPaymentUpdated   = "payment_updated"
	EventFilingRequested  = "filing_requested"
	EventFilingUploaded   = "filing_uploaded"
	EventFilingStatus     = "filing_status"
)

// Event represents an audit event.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp time.Time           `bson:"timestamp"`
	CompanyID *primitive.ObjectID `bson:"company_id,omitempty"`

	// Event classification
	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	// Who
	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`  // affected user
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"` // who performed the action

	// Context
	IP        string `bson:"ip,omitempty"`
	UserAgent string `bson:"user_agent,omitempty"`

	// Outcome
	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Additional details (varies by event type)
	Details map[string]string `bson:"details,omitempty"`
}

// QueryFilter defines filters for querying audit events.
type QueryFilter struct {
	CompanyID *primitive.ObjectID
	UserID    *primitive.ObjectID
	ActorID   *primitive.ObjectID
	Category  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int64
	Offset    int64
}

func (f QueryFilter) query() bson.M {
	query := bson.M{}
	if f.CompanyID != nil {
		query["company_id"] = *f.CompanyID
	}
	if f.UserID != nil {
		query["user_id"] = *f.UserID
	}
	if f.ActorID != nil {
		query["actor_id"] = *f.ActorID
	}
	if f.Category != "" {
		query["category"] = f.Category
	}
	if f.EventType != "" {
		query["event_type"] = f.EventType
	}
	if f.StartTime != nil || f.EndTime != nil {
		timeQuery := bson.M{}
		if f.StartTime != nil {
			timeQuery["$gte"] = *f.StartTime
		}
		if f.EndTime != nil {
			timeQuery["$lte"] = *f.EndTime
		}
		query["timestamp"] = timeQuery
	}
	return query
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query retrieves audit events matching the given filter, newest first.
func (s *Store) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(filter.Offset)

	cursor, err := s.c.Find(ctx, filter.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CountByFilter returns the count of events matching the filter.
func (s *Store) CountByFilter(ctx context.Context, filter QueryFilter) (int64, error) {
	return s.c.CountDocuments(ctx, filter.query())
}

// GetByCompany retrieves recent audit events for a company.
func (s *Store) GetByCompany(ctx context.Context, companyID primitive.ObjectID, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{CompanyID: &companyID, Limit: limit})
}

// GetFailedCodes retrieves recent failed sign-in code attempts.
func (s *Store) GetFailedCodes(ctx context.Context, since time.Time, limit int64) ([]Event, error) {
	return s.Query(ctx, QueryFilter{
		Category:  CategoryAuth,
		EventType: EventCodeFailed,
		StartTime: &since,
		Limit:     limit,
	})
}
