package organization

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/psqlbuilder"
)

// Repository репозиторий для работы с организациями и их лотами
// Создание организаций и лотов — внешняя ответственность (регистрация/миграции);
// репозиторий только читает инвентарь и корректирует производный счетчик
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория организаций
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает организацию по ID
// Внутри транзакции блокирует строку (FOR UPDATE) — это сериализует аллокацию
// слотов по организации
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(
		"id",
		"name",
		"total_slots",
		"available_slots",
		"member_parking_free",
		"created_at",
		"updated_at",
	).
		From("organizations").
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var org domain.Organization
	var createdAt, updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&org.ID,
		&org.Name,
		&org.TotalSlots,
		&org.AvailableSlots,
		&org.MemberParkingFree,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan organization: %v", ErrScanRow, err)
	}

	org.CreatedAt = createdAt.Time
	org.UpdatedAt = updatedAt.Time

	return &org, nil
}

// ListIDs возвращает идентификаторы всех организаций
// Используется bulk-реконсиляцией
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id").
		From("organizations").
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListIDs - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListIDs - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: ListIDs - scan id: %v", ErrScanRow, err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListIDs - rows error: %v", ErrScanRow, err)
	}

	return ids, nil
}

// ListActiveLots возвращает активные лоты организации в порядке приоритета заполнения
// (priority_order ASC — лоты с меньшим значением заполняются первыми)
func (r *Repository) ListActiveLots(ctx context.Context, organizationID int64) ([]*domain.ParkingLot, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(lotColumns()...).
		From("parking_lots").
		Where(squirrel.Eq{"organization_id": organizationID}).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("priority_order ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveLots - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListActiveLots - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanLots(rows)
}

// GetLotByID получает лот по ID
func (r *Repository) GetLotByID(ctx context.Context, lotID int64) (*domain.ParkingLot, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(lotColumns()...).
		From("parking_lots").
		Where(squirrel.Eq{"lot_id": lotID}).
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: GetLotByID - build select query: %v", ErrBuildQuery, err)
	}

	var lot domain.ParkingLot
	var createdAt, updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&lot.ID,
		&lot.OrganizationID,
		&lot.Name,
		&lot.Description,
		&lot.LotCode,
		&lot.TotalSlots,
		&lot.PriorityOrder,
		&lot.IsActive,
		&createdAt,
		&updatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, ErrLotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetLotByID - scan lot: %v", ErrScanRow, err)
	}

	lot.CreatedAt = createdAt.Time
	lot.UpdatedAt = updatedAt.Time

	return &lot, nil
}

// AdjustAvailableSlots сдвигает счетчик available_slots на delta
// Guard в WHERE не даёт счетчику выйти за [0, total_slots]: нарушение означает
// дрейф и возвращается как ErrCounterOutOfRange (бэкстоп — реконсиляция)
func (r *Repository) AdjustAvailableSlots(ctx context.Context, organizationID int64, delta int) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("organizations").
		Set("available_slots", squirrel.Expr("available_slots + ?", delta)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": organizationID}).
		Where(squirrel.Expr("available_slots + ? BETWEEN 0 AND total_slots", delta)).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: AdjustAvailableSlots - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: AdjustAvailableSlots - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: AdjustAvailableSlots - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrCounterOutOfRange
	}

	return nil
}

// SetAvailableSlots устанавливает точное значение available_slots
// Используется реконсиляцией после пересчета занятости из состояния бронирований
func (r *Repository) SetAvailableSlots(ctx context.Context, organizationID int64, value int) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("organizations").
		Set("available_slots", value).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": organizationID}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: SetAvailableSlots - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: SetAvailableSlots - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: SetAvailableSlots - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrOrganizationNotFound
	}

	return nil
}

func lotColumns() []string {
	return []string{
		"lot_id",
		"organization_id",
		"lot_name",
		"lot_description",
		"lot_code",
		"total_slots",
		"priority_order",
		"is_active",
		"created_at",
		"updated_at",
	}
}

// scanLots сканирует результаты запроса в слайс лотов
func scanLots(rows *sql.Rows) ([]*domain.ParkingLot, error) {
	lots := make([]*domain.ParkingLot, 0)

	for rows.Next() {
		var lot domain.ParkingLot
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(
			&lot.ID,
			&lot.OrganizationID,
			&lot.Name,
			&lot.Description,
			&lot.LotCode,
			&lot.TotalSlots,
			&lot.PriorityOrder,
			&lot.IsActive,
			&createdAt,
			&updatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("%w: scanLots - scan row: %v", ErrScanRow, err)
		}

		lot.CreatedAt = createdAt.Time
		lot.UpdatedAt = updatedAt.Time

		lots = append(lots, &lot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanLots - rows error: %v", ErrScanRow, err)
	}

	return lots, nil
}
