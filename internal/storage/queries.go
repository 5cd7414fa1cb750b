package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type MonthlySummary struct {
	PartyID            string
	Period             string
	DisplayName        string
	IncomeCents        int64
	TotalSpentCents    int64
	SharedSpentCents   int64
	PersonalSpentCents int64
	SavingsGoalCents   sql.NullInt64
	UpdatedAt          string
}

type PeriodPoint struct {
	ID                int64
	PartyID           string
	CoupleID          string
	Period            string
	SavingsBonus      int64
	LowerSpenderBonus int64
	GoalBonus         int64
	Total             int64
	FairnessIndex     int64
	ClosedAt          string
	ExportedAt        sql.NullString
}

type Couple struct {
	ID        string
	SelfID    string
	PartnerID string
	CreatedAt string
}

type Setting struct {
	CoupleID      string
	RewardPolicy  string
	CentsPerPoint int64
	UpdatedAt     string
}

const upsertSummary = `
INSERT INTO monthly_summaries (
    party_id, period, display_name, income_cents, total_spent_cents,
    shared_spent_cents, personal_spent_cents, savings_goal_cents, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (party_id, period) DO UPDATE SET
    display_name = excluded.display_name,
    income_cents = excluded.income_cents,
    total_spent_cents = excluded.total_spent_cents,
    shared_spent_cents = excluded.shared_spent_cents,
    personal_spent_cents = excluded.personal_spent_cents,
    savings_goal_cents = excluded.savings_goal_cents,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertSummary(ctx context.Context, arg MonthlySummary) error {
	_, err := q.db.ExecContext(ctx, upsertSummary,
		arg.PartyID,
		arg.Period,
		arg.DisplayName,
		arg.IncomeCents,
		arg.TotalSpentCents,
		arg.SharedSpentCents,
		arg.PersonalSpentCents,
		arg.SavingsGoalCents,
		arg.UpdatedAt,
	)
	return err
}

const summaryColumns = `party_id, period, display_name, income_cents, total_spent_cents,
    shared_spent_cents, personal_spent_cents, savings_goal_cents, updated_at`

func scanSummary(row interface{ Scan(...interface{}) error }) (MonthlySummary, error) {
	var i MonthlySummary
	err := row.Scan(
		&i.PartyID,
		&i.Period,
		&i.DisplayName,
		&i.IncomeCents,
		&i.TotalSpentCents,
		&i.SharedSpentCents,
		&i.PersonalSpentCents,
		&i.SavingsGoalCents,
		&i.UpdatedAt,
	)
	return i, err
}

const getSummary = `SELECT ` + summaryColumns + ` FROM monthly_summaries WHERE party_id = ? AND period = ?`

func (q *Queries) GetSummary(ctx context.Context, partyID, period string) (MonthlySummary, error) {
	return scanSummary(q.db.QueryRowContext(ctx, getSummary, partyID, period))
}

const listSummariesByPeriod = `SELECT ` + summaryColumns + ` FROM monthly_summaries WHERE period = ? ORDER BY party_id`

func (q *Queries) ListSummariesByPeriod(ctx context.Context, period string) ([]MonthlySummary, error) {
	rows, err := q.db.QueryContext(ctx, listSummariesByPeriod, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MonthlySummary
	for rows.Next() {
		i, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertPeriodPoints = `
INSERT INTO period_points (
    party_id, couple_id, period, savings_bonus, lower_spender_bonus,
    goal_bonus, total, fairness_index, closed_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (party_id, period) DO NOTHING`

// InsertPeriodPoints reports the number of inserted rows: 0 when the
// (party, period) pair was already recorded.
func (q *Queries) InsertPeriodPoints(ctx context.Context, arg PeriodPoint) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertPeriodPoints,
		arg.PartyID,
		arg.CoupleID,
		arg.Period,
		arg.SavingsBonus,
		arg.LowerSpenderBonus,
		arg.GoalBonus,
		arg.Total,
		arg.FairnessIndex,
		arg.ClosedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const periodPointColumns = `id, party_id, couple_id, period, savings_bonus, lower_spender_bonus,
    goal_bonus, total, fairness_index, closed_at, exported_at`

func scanPeriodPoint(row interface{ Scan(...interface{}) error }) (PeriodPoint, error) {
	var i PeriodPoint
	err := row.Scan(
		&i.ID,
		&i.PartyID,
		&i.CoupleID,
		&i.Period,
		&i.SavingsBonus,
		&i.LowerSpenderBonus,
		&i.GoalBonus,
		&i.Total,
		&i.FairnessIndex,
		&i.ClosedAt,
		&i.ExportedAt,
	)
	return i, err
}

func (q *Queries) listPeriodPoints(ctx context.Context, query string, args ...interface{}) ([]PeriodPoint, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PeriodPoint
	for rows.Next() {
		i, err := scanPeriodPoint(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPeriodPoints = `SELECT ` + periodPointColumns + ` FROM period_points WHERE party_id = ? AND period = ?`

func (q *Queries) GetPeriodPoints(ctx context.Context, partyID, period string) (PeriodPoint, error) {
	return scanPeriodPoint(q.db.QueryRowContext(ctx, getPeriodPoints, partyID, period))
}

const countPeriodPoints = `SELECT COUNT(*) FROM period_points WHERE party_id = ? AND period = ?`

func (q *Queries) CountPeriodPoints(ctx context.Context, partyID, period string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countPeriodPoints, partyID, period).Scan(&count)
	return count, err
}

const sumPoints = `SELECT COALESCE(SUM(total), 0) FROM period_points WHERE party_id = ?`

func (q *Queries) SumPoints(ctx context.Context, partyID string) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, sumPoints, partyID).Scan(&total)
	return total, err
}

const listPeriodPointsByParty = `SELECT ` + periodPointColumns + ` FROM period_points WHERE party_id = ? ORDER BY period`

func (q *Queries) ListPeriodPointsByParty(ctx context.Context, partyID string) ([]PeriodPoint, error) {
	return q.listPeriodPoints(ctx, listPeriodPointsByParty, partyID)
}

const listPendingExports = `SELECT ` + periodPointColumns + ` FROM period_points
WHERE exported_at IS NULL ORDER BY period, party_id LIMIT ?`

func (q *Queries) ListPendingExports(ctx context.Context, limit int64) ([]PeriodPoint, error) {
	return q.listPeriodPoints(ctx, listPendingExports, limit)
}

const markExported = `UPDATE period_points SET exported_at = ? WHERE party_id = ? AND period = ?`

func (q *Queries) MarkExported(ctx context.Context, exportedAt, partyID, period string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markExported, exportedAt, partyID, period)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const upsertCouple = `
INSERT INTO couples (id, self_id, partner_id, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET self_id = excluded.self_id, partner_id = excluded.partner_id`

func (q *Queries) UpsertCouple(ctx context.Context, arg Couple) error {
	_, err := q.db.ExecContext(ctx, upsertCouple, arg.ID, arg.SelfID, arg.PartnerID, arg.CreatedAt)
	return err
}

const getCouple = `SELECT id, self_id, partner_id, created_at FROM couples WHERE id = ?`

func (q *Queries) GetCouple(ctx context.Context, id string) (Couple, error) {
	var i Couple
	err := q.db.QueryRowContext(ctx, getCouple, id).Scan(&i.ID, &i.SelfID, &i.PartnerID, &i.CreatedAt)
	return i, err
}

const listCouples = `SELECT id, self_id, partner_id, created_at FROM couples ORDER BY id`

func (q *Queries) ListCouples(ctx context.Context) ([]Couple, error) {
	rows, err := q.db.QueryContext(ctx, listCouples)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Couple
	for rows.Next() {
		var i Couple
		if err := rows.Scan(&i.ID, &i.SelfID, &i.PartnerID, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertSettings = `
INSERT INTO settings (couple_id, reward_policy, cents_per_point, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (couple_id) DO UPDATE SET
    reward_policy = excluded.reward_policy,
    cents_per_point = excluded.cents_per_point,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertSettings(ctx context.Context, arg Setting) error {
	_, err := q.db.ExecContext(ctx, upsertSettings, arg.CoupleID, arg.RewardPolicy, arg.CentsPerPoint, arg.UpdatedAt)
	return err
}

const getSettings = `SELECT couple_id, reward_policy, cents_per_point, updated_at FROM settings WHERE couple_id = ?`

func (q *Queries) GetSettings(ctx context.Context, coupleID string) (Setting, error) {
	var i Setting
	err := q.db.QueryRowContext(ctx, getSettings, coupleID).Scan(&i.CoupleID, &i.RewardPolicy, &i.CentsPerPoint, &i.UpdatedAt)
	return i, err
}
