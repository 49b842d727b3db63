package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Dan9191/debt-insights/internal/models"
)

// Repository provides read-only access to the debt ledger
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// FetchDebtorRecords returns a user's debtors, most recently created first,
// each with its full history most recent first
func (r *Repository) FetchDebtorRecords(ctx context.Context, userID int64) ([]models.DebtorRecord, error) {
	query := `
		SELECT id, name, amount_owed, COALESCE(phone_number, ''), created_at, updated_at
		FROM debtors
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch debtors: %w", err)
	}
	defer rows.Close()

	var debtors []models.DebtorRecord
	index := make(map[int64]int)
	for rows.Next() {
		var d models.DebtorRecord
		var owed decimal.NullDecimal
		var updated sql.NullTime
		if err := rows.Scan(&d.ID, &d.Name, &owed, &d.PhoneNumber, &d.CreatedAt, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan debtor: %w", err)
		}
		d.AmountOwed = owed.Decimal.InexactFloat64()
		// updated_at is only set once a debtor has been edited
		d.UpdatedAt = d.CreatedAt
		if updated.Valid {
			d.UpdatedAt = updated.Time
		}
		index[d.ID] = len(debtors)
		debtors = append(debtors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read debtors: %w", err)
	}
	if len(debtors) == 0 {
		return debtors, nil
	}

	ids := make([]int64, len(debtors))
	for i, d := range debtors {
		ids[i] = d.ID
	}
	if err := r.attachHistory(ctx, ids, func(debtorID int64, h models.DebtHistoryEntry) {
		if i, ok := index[debtorID]; ok {
			debtors[i].History = append(debtors[i].History, h)
		}
	}); err != nil {
		return nil, err
	}
	return debtors, nil
}

// attachHistory streams the history of the given debtors, most recent first
func (r *Repository) attachHistory(ctx context.Context, debtorIDs []int64, add func(int64, models.DebtHistoryEntry)) error {
	query := `
		SELECT id, debtor_id, amount_changed, COALESCE(action, ''), timestamp, COALESCE(note, '')
		FROM debt_history
		WHERE debtor_id = ANY($1)
		ORDER BY timestamp DESC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(debtorIDs))
	if err != nil {
		return fmt.Errorf("failed to fetch debt history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h models.DebtHistoryEntry
		var debtorID int64
		var amount decimal.NullDecimal
		var action string
		if err := rows.Scan(&h.ID, &debtorID, &amount, &action, &h.Timestamp, &h.Note); err != nil {
			return fmt.Errorf("failed to scan debt history: %w", err)
		}
		h.AmountChanged = amount.Decimal.InexactFloat64()
		h.Action = models.HistoryAction(action)
		add(debtorID, h)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read debt history: %w", err)
	}
	return nil
}

// FetchTrainingCorpus returns behavioural aggregates of debtors created within
// the last two years that have at least one history entry
func (r *Repository) FetchTrainingCorpus(ctx context.Context) ([]models.TrainingRecord, error) {
	query := `
		SELECT
			d.id,
			COALESCE(d.amount_owed, 0),
			d.created_at,
			FLOOR(EXTRACT(EPOCH FROM (CURRENT_TIMESTAMP - d.created_at)) / 86400) AS days_since_creation,
			COUNT(dh.id) FILTER (WHERE dh.action = 'reduce') AS payment_count,
			COALESCE(SUM(dh.amount_changed) FILTER (WHERE dh.action = 'reduce'), 0) AS total_paid,
			COALESCE(SUM(dh.amount_changed) FILTER (WHERE dh.action = 'add'), 0) AS total_added,
			COALESCE(AVG(dh.amount_changed) FILTER (WHERE dh.action = 'reduce'), 0) AS avg_payment,
			CASE WHEN COUNT(dh.id) FILTER (WHERE dh.action = 'reduce') > 1
				THEN FLOOR(EXTRACT(EPOCH FROM (
					MAX(dh.timestamp) FILTER (WHERE dh.action = 'reduce') -
					MIN(dh.timestamp) FILTER (WHERE dh.action = 'reduce'))) / 86400)
				ELSE 0
			END AS payment_span_days
		FROM debtors d
		JOIN debt_history dh ON d.id = dh.debtor_id
		WHERE d.created_at >= CURRENT_TIMESTAMP - INTERVAL '2 years'
		GROUP BY d.id, d.amount_owed, d.created_at
		ORDER BY d.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch training corpus: %w", err)
	}
	defer rows.Close()

	var corpus []models.TrainingRecord
	for rows.Next() {
		var rec models.TrainingRecord
		var owed, paid, added, avg decimal.Decimal
		if err := rows.Scan(&rec.ID, &owed, &rec.CreatedAt, &rec.DaysSinceCreation, &rec.PaymentCount,
			&paid, &added, &avg, &rec.PaymentSpanDays); err != nil {
			return nil, fmt.Errorf("failed to scan training row: %w", err)
		}
		rec.AmountOwed = owed.InexactFloat64()
		rec.TotalPaid = paid.InexactFloat64()
		rec.TotalAdded = added.InexactFloat64()
		rec.AvgPayment = avg.InexactFloat64()
		corpus = append(corpus, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read training corpus: %w", err)
	}
	return corpus, nil
}
