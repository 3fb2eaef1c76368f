package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/couple-finance/internal/domain/recurring"
)

// Pool is the subset of *pgxpool.Pool used by the repository
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository implements the recurring repositories using PostgreSQL
type PostgresRepository struct {
	pool Pool
}

// NewPostgresRepository creates a new PostgreSQL recurring repository
func NewPostgresRepository(pool Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const ruleColumns = `id, group_id, account_id, category_id, description, amount_minor, direction, frequency,
		day_of_month, day_of_week, start_date, last_execution_date, is_active, created_at, updated_at`

// ListActiveRules retrieves the active rules of a group ordered by creation
func (r *PostgresRepository) ListActiveRules(ctx context.Context, groupID uuid.UUID) ([]recurring.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM recurring_rules
		WHERE group_id = $1 AND is_active = true
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring rules: %w", err)
	}
	defer rows.Close()

	var rules []recurring.Rule
	for rows.Next() {
		var rule recurring.Rule
		err := rows.Scan(
			&rule.ID,
			&rule.GroupID,
			&rule.AccountID,
			&rule.CategoryID,
			&rule.Description,
			&rule.AmountMinor,
			&rule.Direction,
			&rule.Frequency,
			&rule.DayOfMonth,
			&rule.DayOfWeek,
			&rule.StartDate,
			&rule.LastExecutionDate,
			&rule.IsActive,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recurring rules: %w", err)
	}
	return rules, nil
}

// ListGroupsWithActiveRules retrieves the groups that own at least one active rule
func (r *PostgresRepository) ListGroupsWithActiveRules(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT group_id
		FROM recurring_rules
		WHERE is_active = true
		ORDER BY group_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		groups = append(groups, id)
	}
	return groups, rows.Err()
}

// ListActiveAccounts retrieves the active accounts of a group with their current balances
func (r *PostgresRepository) ListActiveAccounts(ctx context.Context, groupID uuid.UUID) ([]recurring.Account, error) {
	query := `
		SELECT id, group_id, name, initial_balance_minor, current_balance_minor, is_active
		FROM accounts
		WHERE group_id = $1 AND is_active = true
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []recurring.Account
	for rows.Next() {
		var a recurring.Account
		err := rows.Scan(
			&a.ID,
			&a.GroupID,
			&a.Name,
			&a.InitialBalanceMinor,
			&a.CurrentBalanceMinor,
			&a.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// Materialize writes the transaction for a due rule, stamps the rule and recomputes the
// account balance in one database transaction.
func (r *PostgresRepository) Materialize(ctx context.Context, rule recurring.Rule, on time.Time) (*MaterializedTransaction, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	txn := recurring.NewTransactionFromRule(rule, on)

	// The partial unique index on (recurring_rule_id, occurred_on) turns a concurrent
	// duplicate into zero inserted rows.
	insertQuery := `
		INSERT INTO transactions (id, group_id, account_id, category_id, recurring_rule_id, description, amount_minor, direction, occurred_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (recurring_rule_id, occurred_on) WHERE recurring_rule_id IS NOT NULL DO NOTHING
		RETURNING created_at`

	err = tx.QueryRow(ctx, insertQuery,
		txn.ID,
		txn.GroupID,
		txn.AccountID,
		txn.CategoryID,
		txn.RecurringRuleID,
		txn.Description,
		txn.AmountMinor,
		txn.Direction,
		txn.OccurredOn,
	).Scan(&txn.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAlreadyMaterialized
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	stampQuery := `
		UPDATE recurring_rules
		SET last_execution_date = $2, updated_at = now()
		WHERE id = $1`
	result, err := tx.Exec(ctx, stampQuery, rule.ID, txn.OccurredOn)
	if err != nil {
		return nil, fmt.Errorf("failed to update last execution date: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("failed to update last execution date: rule %s not found", rule.ID)
	}

	// Full recompute rather than a delta so concurrent edits to other transactions of
	// the account are reflected.
	balanceQuery := `
		UPDATE accounts a
		SET current_balance_minor = a.initial_balance_minor + COALESCE((
				SELECT SUM(CASE WHEN t.direction = 'income' THEN t.amount_minor ELSE -t.amount_minor END)
				FROM transactions t
				WHERE t.account_id = a.id
			), 0),
			updated_at = now()
		WHERE a.id = $1
		RETURNING a.current_balance_minor`

	var balance int64
	if err := tx.QueryRow(ctx, balanceQuery, rule.AccountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to recompute balance: account %s not found", rule.AccountID)
		}
		return nil, fmt.Errorf("failed to recompute balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit materialization: %w", err)
	}

	return &MaterializedTransaction{Transaction: txn, AccountBalanceMinor: balance}, nil
}

// ListPushTokens retrieves the push tokens registered by the group's members
func (r *PostgresRepository) ListPushTokens(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	query := `
		SELECT push_token
		FROM group_members
		WHERE group_id = $1 AND push_token IS NOT NULL AND push_token <> ''`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list push tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}
