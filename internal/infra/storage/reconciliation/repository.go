package reconciliation

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/psqlbuilder"
)

// Repository append-only репозиторий аудита реконсиляций
// Строки пишутся в той же транзакции, что и исправление счетчика
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория аудита реконсиляций
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create записывает результат одного прохода реконсиляции
func (r *Repository) Create(ctx context.Context, run *domain.ReconciliationRun) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("reconciliation_runs").
		Columns(
			"run_id",
			"organization_id",
			"stored_available",
			"corrected_available",
			"delta",
			"occupied_count",
			"ran_at",
		).
		Values(
			run.RunID,
			run.OrganizationID,
			run.StoredAvailable,
			run.CorrectedAvailable,
			run.Delta,
			run.OccupiedCount,
			run.RanAt,
		).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// ListByOrganization возвращает историю реконсиляций организации (новые первыми)
func (r *Repository) ListByOrganization(ctx context.Context, organizationID int64, limit uint64) ([]*domain.ReconciliationRun, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(
		"run_id",
		"organization_id",
		"stored_available",
		"corrected_available",
		"delta",
		"occupied_count",
		"ran_at",
	).
		From("reconciliation_runs").
		Where(squirrel.Eq{"organization_id": organizationID}).
		OrderBy("ran_at DESC")

	if limit > 0 {
		selectBuilder = selectBuilder.Limit(limit)
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByOrganization - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByOrganization - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	runs := make([]*domain.ReconciliationRun, 0)
	for rows.Next() {
		var run domain.ReconciliationRun
		if err := rows.Scan(
			&run.RunID,
			&run.OrganizationID,
			&run.StoredAvailable,
			&run.CorrectedAvailable,
			&run.Delta,
			&run.OccupiedCount,
			&run.RanAt,
		); err != nil {
			return nil, fmt.Errorf("%w: ListByOrganization - scan row: %v", ErrScanRow, err)
		}
		runs = append(runs, &run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByOrganization - rows error: %v", ErrScanRow, err)
	}

	return runs, nil
}
