// ABOUTME: Writes an in-memory store snapshot into the SQLite export file
// ABOUTME: Replaces the previous snapshot in one transaction and logs the run
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
	"github.com/oklog/ulid/v2"
)

// ExportResult describes one export run.
type ExportResult struct {
	ID            string
	TakenAt       time.Time
	Leads         int
	Deals         int
	Activities    int
	Conversations int
	Messages      int
}

// ExportSnapshot replaces the exported collections with snap. The file only
// ever holds the latest snapshot; the exports table keeps every run.
func ExportSnapshot(ctx context.Context, db *sql.DB, snap store.Fixtures) (ExportResult, error) {
	res := ExportResult{
		ID:            ulid.Make().String(),
		TakenAt:       snap.TakenAt,
		Leads:         len(snap.Leads),
		Deals:         len(snap.Deals),
		Activities:    len(snap.Activities),
		Conversations: len(snap.Conversations),
		Messages:      len(snap.Messages),
	}
	if res.TakenAt.IsZero() {
		res.TakenAt = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to begin export: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range snapshotTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return ExportResult{}, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := insertLeads(ctx, tx, snap.Leads); err != nil {
		return ExportResult{}, err
	}
	if err := insertDeals(ctx, tx, snap.Deals); err != nil {
		return ExportResult{}, err
	}
	if err := insertActivities(ctx, tx, snap.Activities); err != nil {
		return ExportResult{}, err
	}
	if err := insertConversations(ctx, tx, snap.Conversations, snap.Messages); err != nil {
		return ExportResult{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO exports (id, taken_at, leads, deals, activities, conversations, messages)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, res.ID, res.TakenAt, res.Leads, res.Deals, res.Activities, res.Conversations, res.Messages)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to record export: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ExportResult{}, fmt.Errorf("failed to commit export: %w", err)
	}
	return res, nil
}

func insertLeads(ctx context.Context, tx *sql.Tx, leads []models.Lead) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leads (id, first_name, last_name, email, phone, company, product_name, rri, status, source, created_at, last_contact, conversation_id, bot_generated, chat_summary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare leads insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range leads {
		_, err := stmt.ExecContext(ctx, l.ID, l.FirstName, l.LastName, l.Email, nullString(l.Phone), nullString(l.Company),
			nullString(l.ProductName), nullString(l.RRI), l.Status, l.Source, l.CreatedAt, l.LastContact,
			nullString(l.ConversationID), l.BotGenerated, l.ChatSummary)
		if err != nil {
			return fmt.Errorf("failed to export lead %d: %w", l.ID, err)
		}
	}
	return nil
}

func insertDeals(ctx context.Context, tx *sql.Tx, deals []models.Deal) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deals (id, lead_id, title, value, stage, probability, expected_close, created_at, assignee_id, assignee_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare deals insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range deals {
		_, err := stmt.ExecContext(ctx, d.ID, d.LeadID, d.Title, d.Value, d.Stage, d.Probability,
			nullTime(d.ExpectedClose), d.CreatedAt, d.AssigneeID, nullString(d.AssigneeName))
		if err != nil {
			return fmt.Errorf("failed to export deal %d: %w", d.ID, err)
		}
	}
	return nil
}

func insertActivities(ctx context.Context, tx *sql.Tx, acts []models.Activity) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO activities (id, lead_id, deal_id, type, subject, notes, description, due_date, completed, created_at, conversation_id, bot_generated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare activities insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range acts {
		_, err := stmt.ExecContext(ctx, a.ID, a.LeadID, a.DealID, a.Type, a.Subject, nullString(a.Notes),
			nullString(a.Description), nullTime(a.DueDate), a.Completed, a.CreatedAt,
			nullString(a.ConversationID), a.BotGenerated)
		if err != nil {
			return fmt.Errorf("failed to export activity %d: %w", a.ID, err)
		}
	}
	return nil
}

func insertConversations(ctx context.Context, tx *sql.Tx, convs []models.Conversation, msgs []models.Message) error {
	for _, c := range convs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, conversation_id, start_time, end_time, status, lead_created, lead_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.ConversationID, c.StartTime, c.EndTime, c.Status, c.LeadCreated, c.LeadID)
		if err != nil {
			return fmt.Errorf("failed to export conversation %s: %w", c.ConversationID, err)
		}
	}
	for _, m := range msgs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, user_id, message, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, m.ID, m.ConversationID, m.UserID, m.Message, m.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to export message %d: %w", m.ID, err)
		}
	}
	return nil
}

// LastExport returns the most recent export run, or nil when none exists.
func LastExport(ctx context.Context, db *sql.DB) (*ExportResult, error) {
	var res ExportResult
	err := db.QueryRowContext(ctx, `
		SELECT id, taken_at, leads, deals, activities, conversations, messages
		FROM exports ORDER BY taken_at DESC, id DESC LIMIT 1
	`).Scan(&res.ID, &res.TakenAt, &res.Leads, &res.Deals, &res.Activities, &res.Conversations, &res.Messages)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
