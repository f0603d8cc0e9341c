package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp/workforce-engine/hr"
)

// =============================================================================
// DOCUMENTS (hr.DocumentStore interface)
// =============================================================================

func (q *queries) InsertDocument(ctx context.Context, doc *hr.Document) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO documents (id, employee_id, document_type, title, expiry_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.EmployeeID, doc.Type, doc.Title, nullDate(doc.ExpiryDate), formatTime(doc.CreatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return &hr.DuplicateRecordError{Entity: "document", Key: doc.ID}
		}
		if isForeignKeyError(err) {
			return &hr.NotFoundError{Entity: "employee", ID: doc.EmployeeID}
		}
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// ListDocumentsExpiring returns documents whose expiry date falls in window.
func (q *queries) ListDocumentsExpiring(ctx context.Context, window hr.Period) ([]hr.Document, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, employee_id, document_type, title, expiry_date, created_at
		FROM documents
		WHERE expiry_date IS NOT NULL AND expiry_date >= ? AND expiry_date <= ?
		ORDER BY expiry_date ASC, id ASC
	`, window.Start.String(), window.End.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []hr.Document
	for rows.Next() {
		var (
			doc       hr.Document
			expiry    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&doc.ID, &doc.EmployeeID, &doc.Type, &doc.Title, &expiry, &createdAt); err != nil {
			return nil, err
		}
		if doc.ExpiryDate, err = parseNullDate(expiry); err != nil {
			return nil, err
		}
		if doc.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// =============================================================================
// NOTIFICATIONS (hr.NotificationStore interface)
// =============================================================================

func (q *queries) InsertNotification(ctx context.Context, n *hr.Notification) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO notifications
		(id, recipient, title, message, notification_type, related_type, related_id, email_sent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		n.ID, n.Recipient, n.Title, n.Message, n.Type,
		nullString(n.RelatedType), nullString(n.RelatedID), n.EmailSent, formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (q *queries) MarkNotificationEmailed(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE notifications SET email_sent = TRUE WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &hr.NotFoundError{Entity: "notification", ID: id}
	}
	return nil
}

func (q *queries) ListNotifications(ctx context.Context, recipient string) ([]hr.Notification, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, recipient, title, message, notification_type, related_type, related_id, email_sent, created_at
		FROM notifications
		WHERE recipient = ?
		ORDER BY created_at ASC, rowid ASC
	`, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []hr.Notification
	for rows.Next() {
		var (
			n                      hr.Notification
			relatedType, relatedID sql.NullString
			createdAt              string
		)
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Title, &n.Message, &n.Type,
			&relatedType, &relatedID, &n.EmailSent, &createdAt); err != nil {
			return nil, err
		}
		n.RelatedType = relatedType.String
		n.RelatedID = relatedID.String
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// =============================================================================
// AUDIT LOG (hr.AuditLog interface)
// =============================================================================

func (q *queries) RecordAudit(ctx context.Context, entry hr.AuditEntry) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor, action, entity_type, entity_id, summary, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Actor, entry.Action, entry.EntityType, entry.EntityID, entry.Summary, formatTime(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

func (q *queries) QueryAudit(ctx context.Context, filter hr.AuditFilter) ([]hr.AuditEntry, error) {
	var w where
	if filter.EntityType != "" {
		w.add("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		w.add("entity_id = ?", filter.EntityID)
	}
	if filter.Actor != "" {
		w.add("actor = ?", filter.Actor)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, actor, action, entity_type, entity_id, summary, timestamp FROM audit_log`+
			w.String()+` ORDER BY timestamp ASC, rowid ASC`, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []hr.AuditEntry
	for rows.Next() {
		var (
			e  hr.AuditEntry
			ts string
		)
		if err := rows.Scan(&e.ID, &e.Actor, &e.Action, &e.EntityType, &e.EntityID, &e.Summary, &ts); err != nil {
			return nil, err
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// SWEEP JOURNAL (hr.SweepJournal interface)
// =============================================================================

// ClaimSweep inserts (kind, ref) unless it is already there. The primary key
// makes the claim atomic across processes sharing the database.
func (q *queries) ClaimSweep(ctx context.Context, kind string, ref hr.Date) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO sweep_runs (kind, ref_date, claimed_at) VALUES (?, ?, ?)
	`, kind, ref.String(), formatTime(time.Now()))
	if err != nil {
		return false, fmt.Errorf("failed to claim sweep %s/%s: %w", kind, ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (q *queries) ReleaseSweep(ctx context.Context, kind string, ref hr.Date) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM sweep_runs WHERE kind = ? AND ref_date = ?`, kind, ref.String())
	if err != nil {
		return fmt.Errorf("failed to release sweep %s/%s: %w", kind, ref, err)
	}
	return nil
}
