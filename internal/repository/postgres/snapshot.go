package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/emerginginv/crm-notifications/internal/domain"
	"github.com/emerginginv/crm-notifications/pkg/database"
)

// SnapshotRepository implements repository.SnapshotRepository against the CRM
// tables. All queries are read-only; the CRM application owns the rows.
type SnapshotRepository struct {
	pool database.DBTX
}

// NewSnapshotRepository creates a new PostgreSQL-backed snapshot repository.
func NewSnapshotRepository(pool database.DBTX) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// ListOpenTasks returns the pending tasks owned by the given user. A NULL due
// date maps to the zero time, which the derivation engine skips.
func (r *SnapshotRepository) ListOpenTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	query := `
		SELECT id, title, due_date, status, contact_id
		FROM tasks
		WHERE owner_id = $1 AND status = $2
		ORDER BY due_date NULLS LAST, id`

	ctx, end := database.TraceQuery(ctx, "ListOpenTasks", query)
	rows, err := r.pool.Query(ctx, query, ownerID, domain.TaskStatusPending)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("query open tasks: %w", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		var (
			t         domain.Task
			dueDate   *time.Time
			contactID *string
		)
		if err := rows.Scan(&t.ID, &t.Title, &dueDate, &t.Status, &contactID); err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		if dueDate != nil {
			t.DueDate = *dueDate
		}
		if contactID != nil {
			t.ContactID = *contactID
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}

	return tasks, nil
}

// ListOpenDeals returns the user's deals that have not reached a terminal
// stage. A NULL close date maps to the zero time.
func (r *SnapshotRepository) ListOpenDeals(ctx context.Context, ownerID string) ([]domain.Deal, error) {
	query := `
		SELECT id, name, close_date, stage, probability, value
		FROM deals
		WHERE owner_id = $1 AND stage NOT IN ($2, $3)
		ORDER BY close_date NULLS LAST, id`

	ctx, end := database.TraceQuery(ctx, "ListOpenDeals", query)
	rows, err := r.pool.Query(ctx, query, ownerID, domain.DealStageClosedWon, domain.DealStageClosedLost)
	end(err)
	if err != nil {
		return nil, fmt.Errorf("query open deals: %w", err)
	}
	defer rows.Close()

	var deals []domain.Deal
	for rows.Next() {
		var (
			d         domain.Deal
			closeDate *time.Time
		)
		if err := rows.Scan(&d.ID, &d.Name, &closeDate, &d.Stage, &d.Probability, &d.Value); err != nil {
			return nil, fmt.Errorf("scan deal row: %w", err)
		}
		if closeDate != nil {
			d.CloseDate = *closeDate
		}
		deals = append(deals, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deal rows: %w", err)
	}

	return deals, nil
}
