// Package mongo mirrors sessions and attendance into a MongoDB database for
// dashboards.  The local store stays authoritative; nothing here is read back
// by the intake loop.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
)

const (
	SessionsCollection   = "sessions"
	AttendanceCollection = "attendance"
)

type Config struct {
	URI      string
	Database string
	Timeout  time.Duration // per operation
}

type Mirror struct {
	client     *mongo.Client
	sessions   *mongo.Collection
	attendance *mongo.Collection
	timeout    time.Duration
}

// Connect dials the server.  The driver connects lazily, so an unreachable
// server shows up as failed writes rather than an error here.
func Connect(ctx context.Context, cfg Config) (*Mirror, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Database == "" {
		cfg.Database = "rollcall"
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return New(client, cfg.Database, cfg.Timeout), nil
}

func New(client *mongo.Client, database string, timeout time.Duration) *Mirror {
	db := client.Database(database)
	return &Mirror{
		client:     client,
		sessions:   db.Collection(SessionsCollection),
		attendance: db.Collection(AttendanceCollection),
		timeout:    timeout,
	}
}

func (m *Mirror) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type SessionDoc struct {
	ID         string     `bson:"_id"`
	RunID      string     `bson:"run_id"`
	CourseName string     `bson:"course_name"`
	CourseCode string     `bson:"course_code"`
	OwnerName  string     `bson:"owner_name"`
	OwnerToken string     `bson:"owner_token"`
	StartTime  time.Time  `bson:"start_time"`
	EndTime    *time.Time `bson:"end_time,omitempty"`
	Status     string     `bson:"status"`
}

// AttendanceDoc is keyed by session and token so a replay overwrites rather
// than duplicates.
type AttendanceDoc struct {
	ID           string     `bson:"_id"`
	SessionID    string     `bson:"session_id"`
	IdentityID   string     `bson:"identity_id"`
	Token        string     `bson:"token"`
	Name         string     `bson:"name"`
	Date         string     `bson:"date"`
	Time         string     `bson:"time"`
	VerifiedTime *time.Time `bson:"verified_time,omitempty"`
	Status       string     `bson:"status"`
}

func SessionDocument(s types.Session) SessionDoc {
	status := s.Status
	if status == "" {
		status = types.SessionActive
	}
	return SessionDoc{
		ID:         s.ID,
		RunID:      s.RunID,
		CourseName: s.CourseName,
		CourseCode: s.CourseCode,
		OwnerName:  s.OwnerName,
		OwnerToken: s.OwnerToken,
		StartTime:  s.OpenedAt.UTC(),
		EndTime:    s.ClosedAt,
		Status:     string(status),
	}
}

func AttendanceDocument(rec types.AttendanceRecord) AttendanceDoc {
	date := rec.Date
	if date == "" {
		date = rec.TapTime.Format(types.DateLayout)
	}
	return AttendanceDoc{
		ID:           rec.SessionID + "/" + rec.Token,
		SessionID:    rec.SessionID,
		IdentityID:   rec.IdentityID,
		Token:        rec.Token,
		Name:         rec.Name,
		Date:         date,
		Time:         rec.TapTime.Format(types.ClockLayout),
		VerifiedTime: rec.VerifiedTime,
		Status:       string(rec.Status),
	}
}

func (m *Mirror) PutSession(ctx context.Context, s types.Session) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	doc := SessionDocument(s)
	_, err := m.sessions.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mirror session %s: %w", s.ID, err)
	}
	return nil
}

func (m *Mirror) CloseSession(ctx context.Context, sessionID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.sessions.UpdateOne(ctx,
		bson.M{"_id": sessionID},
		bson.M{"$set": bson.M{"status": string(types.SessionClosed), "end_time": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mirror close session %s: %w", sessionID, err)
	}
	return nil
}

func (m *Mirror) PutAttendance(ctx context.Context, rec types.AttendanceRecord) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	doc := AttendanceDocument(rec)
	_, err := m.attendance.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mirror attendance %s: %w", doc.ID, err)
	}
	return nil
}
