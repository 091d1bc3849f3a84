package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/adviceline/concierge/internal/model"
	"github.com/adviceline/concierge/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a native Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Notes() store.Notes         { return &notes{db: s.db} }
func (s *pgStore) Bookings() store.Bookings   { return &bookings{db: s.db} }
func (s *pgStore) Cases() store.Cases         { return &cases{db: s.db} }
func (s *pgStore) Deadlines() store.Deadlines { return &deadlines{db: s.db} }
func (s *pgStore) Letters() store.Letters     { return &letters{db: s.db} }
func (s *pgStore) Benefits() store.Benefits   { return &benefits{db: s.db} }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Bootstrap creates the schema if it does not exist yet.
func Bootstrap(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres bootstrap: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS notes (
        note_id         TEXT PRIMARY KEY,
        user_id         TEXT NOT NULL,
        content         TEXT NOT NULL,
        category        TEXT NOT NULL,
        action_required BOOLEAN NOT NULL DEFAULT FALSE,
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS bookings (
        booking_id       TEXT PRIMARY KEY,
        slot_id          TEXT NOT NULL,
        user_id          TEXT NOT NULL,
        contact_phone    TEXT NOT NULL,
        issue_category   TEXT NOT NULL,
        urgency_level    TEXT NOT NULL,
        case_summary     TEXT NOT NULL,
        appointment_time TIMESTAMPTZ NOT NULL,
        status           TEXT NOT NULL,
        created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(slot_id) WHERE status = 'confirmed'`,
	`CREATE TABLE IF NOT EXISTS cases (
        case_id                 TEXT PRIMARY KEY,
        user_id                 TEXT NOT NULL,
        session_id              TEXT NOT NULL,
        urgency_level           TEXT NOT NULL,
        priority                INT NOT NULL,
        issue_category          TEXT NOT NULL,
        summary                 TEXT NOT NULL,
        status                  TEXT NOT NULL,
        created_at              TIMESTAMPTZ NOT NULL DEFAULT now(),
        scheduled_callback_time TIMESTAMPTZ
    )`,
	`CREATE INDEX IF NOT EXISTS idx_cases_pending ON cases(priority, created_at) WHERE status = 'PENDING'`,
	`CREATE TABLE IF NOT EXISTS deadlines (
        deadline_id   TEXT PRIMARY KEY,
        user_id       TEXT NOT NULL,
        title         TEXT NOT NULL,
        description   TEXT NOT NULL DEFAULT '',
        due_date      TIMESTAMPTZ NOT NULL,
        category      TEXT NOT NULL,
        priority      TEXT NOT NULL,
        completed     BOOLEAN NOT NULL DEFAULT FALSE,
        reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
        created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_deadlines_due ON deadlines(due_date) WHERE NOT completed`,
	`CREATE TABLE IF NOT EXISTS letters (
        letter_id  TEXT PRIMARY KEY,
        user_id    TEXT NOT NULL,
        type       TEXT NOT NULL,
        content    TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS benefit_estimates (
        estimate_id         TEXT PRIMARY KEY,
        user_id             TEXT NOT NULL,
        universal_credit    DOUBLE PRECISION NOT NULL,
        housing_support     DOUBLE PRECISION NOT NULL,
        council_tax_support DOUBLE PRECISION NOT NULL,
        pip                 DOUBLE PRECISION NOT NULL,
        total_monthly       DOUBLE PRECISION NOT NULL,
        created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
}

// --- Notes ---
type notes struct{ db *sql.DB }

func (n *notes) Create(ctx context.Context, m *model.Note) (*model.Note, error) {
	out := *m
	if out.NoteID == "" {
		out.NoteID = uuid.NewString()
	}
	var created time.Time
	row := n.db.QueryRowContext(ctx, `
        INSERT INTO notes (note_id, user_id, content, category, action_required)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at
    `, out.NoteID, out.UserID, out.Content, out.Category, out.ActionRequired)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out.CreatedAt = created
	return &out, nil
}

func (n *notes) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Note, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := n.db.QueryContext(ctx, `
        SELECT note_id, user_id, content, category, action_required, created_at
        FROM notes WHERE user_id=$1
        ORDER BY created_at DESC LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Note
	for rows.Next() {
		var m model.Note
		if err := rows.Scan(&m.NoteID, &m.UserID, &m.Content, &m.Category, &m.ActionRequired, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Bookings ---
type bookings struct{ db *sql.DB }

func (b *bookings) Create(ctx context.Context, m *model.Booking) (*model.Booking, error) {
	out := *m
	var created time.Time
	row := b.db.QueryRowContext(ctx, `
        INSERT INTO bookings (booking_id, slot_id, user_id, contact_phone, issue_category, urgency_level, case_summary, appointment_time, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at
    `, out.BookingID, out.SlotID, out.UserID, out.ContactPhone, out.IssueCategory, out.UrgencyLevel, out.CaseSummary, out.AppointmentTime, out.Status)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out.CreatedAt = created
	return &out, nil
}

func (b *bookings) SlotTaken(ctx context.Context, slotID string) (bool, error) {
	var one int
	row := b.db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE slot_id=$1 AND status='confirmed' LIMIT 1`, slotID)
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *bookings) ListByUser(ctx context.Context, userID string) ([]*model.Booking, error) {
	rows, err := b.db.QueryContext(ctx, `
        SELECT booking_id, slot_id, user_id, contact_phone, issue_category, urgency_level, case_summary, appointment_time, status, created_at
        FROM bookings WHERE user_id=$1 ORDER BY appointment_time
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Booking
	for rows.Next() {
		var m model.Booking
		if err := rows.Scan(&m.BookingID, &m.SlotID, &m.UserID, &m.ContactPhone, &m.IssueCategory, &m.UrgencyLevel, &m.CaseSummary, &m.AppointmentTime, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Cases ---
type cases struct{ db *sql.DB }

func (c *cases) Create(ctx context.Context, m *model.CaseTicket) (*model.CaseTicket, error) {
	out := *m
	if out.CaseID == "" {
		out.CaseID = uuid.NewString()
	}
	var created time.Time
	row := c.db.QueryRowContext(ctx, `
        INSERT INTO cases (case_id, user_id, session_id, urgency_level, priority, issue_category, summary, status, scheduled_callback_time)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at
    `, out.CaseID, out.UserID, out.SessionID, out.UrgencyLevel, out.Priority, out.IssueCategory, out.Summary, out.Status, out.ScheduledCallbackTime)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out.CreatedAt = created
	return &out, nil
}

func (c *cases) ListPending(ctx context.Context, limit int) ([]*model.CaseTicket, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.db.QueryContext(ctx, `
        SELECT case_id, user_id, session_id, urgency_level, priority, issue_category, summary, status, created_at, scheduled_callback_time
        FROM cases WHERE status='PENDING'
        ORDER BY priority, created_at LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanCases(rows)
}

func (c *cases) ListByUser(ctx context.Context, userID string) ([]*model.CaseTicket, error) {
	rows, err := c.db.QueryContext(ctx, `
        SELECT case_id, user_id, session_id, urgency_level, priority, issue_category, summary, status, created_at, scheduled_callback_time
        FROM cases WHERE user_id=$1 ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanCases(rows)
}

func scanCases(rows *sql.Rows) ([]*model.CaseTicket, error) {
	var out []*model.CaseTicket
	for rows.Next() {
		var m model.CaseTicket
		var cb *time.Time
		if err := rows.Scan(&m.CaseID, &m.UserID, &m.SessionID, &m.UrgencyLevel, &m.Priority, &m.IssueCategory, &m.Summary, &m.Status, &m.CreatedAt, &cb); err != nil {
			return nil, err
		}
		m.ScheduledCallbackTime = cb
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Deadlines ---
type deadlines struct{ db *sql.DB }

func (d *deadlines) Create(ctx context.Context, m *model.Deadline) (*model.Deadline, error) {
	out := *m
	if out.DeadlineID == "" {
		out.DeadlineID = uuid.NewString()
	}
	var created time.Time
	row := d.db.QueryRowContext(ctx, `
        INSERT INTO deadlines (deadline_id, user_id, title, description, due_date, category, priority, completed, reminder_sent)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at
    `, out.DeadlineID, out.UserID, out.Title, out.Description, out.DueDate, out.Category, out.Priority, out.Completed, out.ReminderSent)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out.CreatedAt = created
	return &out, nil
}

func (d *deadlines) ListUpcoming(ctx context.Context, userID string, horizon time.Time) ([]*model.Deadline, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT deadline_id, user_id, title, description, due_date, category, priority, completed, reminder_sent, created_at
        FROM deadlines WHERE user_id=$1 AND NOT completed AND due_date <= $2
        ORDER BY due_date
    `, userID, horizon)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanDeadlines(rows)
}

func (d *deadlines) ListDueForReminder(ctx context.Context, horizon time.Time) ([]*model.Deadline, error) {
	rows, err := d.db.QueryContext(ctx, `
        SELECT deadline_id, user_id, title, description, due_date, category, priority, completed, reminder_sent, created_at
        FROM deadlines WHERE NOT completed AND NOT reminder_sent AND due_date <= $1
        ORDER BY due_date
    `, horizon)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanDeadlines(rows)
}

func (d *deadlines) MarkReminderSent(ctx context.Context, deadlineID string) error {
	res, err := d.db.ExecContext(ctx, `UPDATE deadlines SET reminder_sent=TRUE WHERE deadline_id=$1`, deadlineID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanDeadlines(rows *sql.Rows) ([]*model.Deadline, error) {
	var out []*model.Deadline
	for rows.Next() {
		var m model.Deadline
		if err := rows.Scan(&m.DeadlineID, &m.UserID, &m.Title, &m.Description, &m.DueDate, &m.Category, &m.Priority, &m.Completed, &m.ReminderSent, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Letters ---
type letters struct{ db *sql.DB }

func (l *letters) Create(ctx context.Context, m *model.Letter) (*model.Letter, error) {
	out := *m
	if out.LetterID == "" {
		out.LetterID = uuid.NewString()
	}
	var created time.Time
	row := l.db.QueryRowContext(ctx, `
        INSERT INTO letters (letter_id, user_id, type, content)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at
    `, out.LetterID, out.UserID, out.Type, out.Content)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out.CreatedAt = created
	return &out, nil
}

func (l *letters) ListByUser(ctx context.Context, userID string) ([]*model.Letter, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT letter_id, user_id, type, content, created_at
        FROM letters WHERE user_id=$1 ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*model.Letter
	for rows.Next() {
		var m model.Letter
		if err := rows.Scan(&m.LetterID, &m.UserID, &m.Type, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Benefits ---
type benefits struct{ db *sql.DB }

func (b *benefits) Create(ctx context.Context, m *model.BenefitEstimate) (*model.BenefitEstimate, error) {
	out := *m
	if out.EstimateID == "" {
		out.EstimateID = uuid.NewString()
	}
	var created time.Time
	row := b.db.QueryRowContext(ctx, `
        INSERT INTO benefit_estimates (estimate_id, user_id, universal_credit, housing_support, council_tax_support, pip, total_monthly)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at
    `, out.EstimateID, out.UserID, out.UniversalCredit, out.HousingSupport, out.CouncilTaxSupport, out.PIP, out.TotalMonthly)
	if err := row.Scan(&created); err != nil {
		return nil, err
	}
	out.CreatedAt = created
	return &out, nil
}
