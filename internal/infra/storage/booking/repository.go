package booking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ParkingService/pkg/psqlbuilder"
)

// bookingColumns полный список колонок таблицы bookings в порядке сканирования
var bookingColumns = []string{
	"id",
	"organization_id",
	"parking_lot_id",
	"slot_number",
	"user_id",
	"vehicle_number",
	"booking_start_time",
	"booking_end_time",
	"duration_hours",
	"amount",
	"booking_status",
	"payment_status",
	"cancellation_reason",
	"cancelled_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с бронированиями
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новое бронирование
// Если в контексте передана активная транзакция, использует её.
// Аллокатор всегда вызывает Create внутри сериализуемой транзакции вместе со
// сканированием занятости, чтобы два конкурентных запроса не получили один слот.
func (r *Repository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("bookings").
		Columns(
			"organization_id",
			"parking_lot_id",
			"slot_number",
			"user_id",
			"vehicle_number",
			"booking_start_time",
			"booking_end_time",
			"duration_hours",
			"amount",
			"booking_status",
			"payment_status",
		).
		Values(
			booking.OrganizationID,
			booking.ParkingLotID,
			booking.SlotNumber,
			booking.UserID,
			booking.VehicleNumber,
			booking.StartTime,
			booking.EndTime,
			booking.DurationHours,
			booking.Amount,
			booking.Status,
			booking.PaymentStatus,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&booking.ID,
		&createdAt,
		&updatedAt,
	)

	if err != nil {
		// Частичный уникальный индекс на (parking_lot_id, slot_number) для occupying-статусов
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: Create - slot %s in lot %d: %v",
				ErrSlotTaken, booking.SlotNumber, booking.ParkingLotID, err)
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time

	return booking, nil
}

// GetByID получает бронирование по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"id": id})

	// Внутри транзакции блокируем строку: переходы статуса выполняются
	// по схеме read-modify-write
	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	booking, err := scanBooking(executor.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan booking: %v", ErrScanRow, err)
	}

	return booking, nil
}

// GetByUserID получает список бронирований пользователя
// Опционально фильтрует по статусу
func (r *Repository) GetByUserID(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(bookingColumns...).
		From("bookings").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("booking_start_time DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"booking_status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByUserID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetOccupiedSlotNumbers возвращает номера слотов лота, занятых occupying-бронированиями.
// Внутри транзакции строки блокируются (FOR UPDATE) — так сканирование занятости и
// вставка нового бронирования образуют одну атомарную единицу
func (r *Repository) GetOccupiedSlotNumbers(ctx context.Context, lotID int64) ([]string, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select("slot_number").
		From("bookings").
		Where(squirrel.Eq{"parking_lot_id": lotID}).
		Where(squirrel.Eq{"booking_status": domain.OccupyingStatusStrings()})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetOccupiedSlotNumbers - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetOccupiedSlotNumbers - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	slotNumbers := make([]string, 0)
	for rows.Next() {
		var slotNumber string
		if err := rows.Scan(&slotNumber); err != nil {
			return nil, fmt.Errorf("%w: GetOccupiedSlotNumbers - scan slot_number: %v", ErrScanRow, err)
		}
		slotNumbers = append(slotNumbers, slotNumber)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetOccupiedSlotNumbers - rows error: %v", ErrScanRow, err)
	}

	return slotNumbers, nil
}

// CountOccupying считает occupying-бронирования организации.
// Бронирования в деактивированных лотах продолжают занимать свои слоты,
// поэтому фильтра по активности лота здесь нет
func (r *Repository) CountOccupying(ctx context.Context, organizationID int64) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("bookings").
		Where(squirrel.Eq{"organization_id": organizationID}).
		Where(squirrel.Eq{"booking_status": domain.OccupyingStatusStrings()}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: CountOccupying - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountOccupying - scan count: %v", ErrScanRow, err)
	}

	return count, nil
}

// CountOccupyingOnSlot считает occupying-бронирования на конкретном слоте лота
// Используется при подтверждении pending-бронирования для повторной проверки слота
func (r *Repository) CountOccupyingOnSlot(ctx context.Context, lotID int64, slotNumber string) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select("COUNT(*)").
		From("bookings").
		Where(squirrel.Eq{"parking_lot_id": lotID}).
		Where(squirrel.Eq{"slot_number": slotNumber}).
		Where(squirrel.Eq{"booking_status": domain.OccupyingStatusStrings()})

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: CountOccupyingOnSlot - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountOccupyingOnSlot - scan count: %v", ErrScanRow, err)
	}

	return count, nil
}

// UpdateStatusIf атомарно переводит бронирование из одного из ожидаемых статусов в новый
// (compare-and-swap на текущем статусе). Если строка не обновлена, возвращает
// ErrStatusNotUpdated — вызывающий различает "не найдено" и "недопустимый переход"
func (r *Repository) UpdateStatusIf(ctx context.Context, id int64, from []domain.BookingStatus, to domain.BookingStatus) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}

	query, args, err := psqlbuilder.Update("bookings").
		Set("booking_status", to).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"booking_status": fromStrings}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: UpdateStatusIf - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateStatusIf - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: UpdateStatusIf - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrStatusNotUpdated
	}

	return nil
}

// CancelIf атомарно отменяет бронирование, если его текущий статус допускает отмену
func (r *Repository) CancelIf(ctx context.Context, id int64, from []domain.BookingStatus, reason string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	fromStrings := make([]string, len(from))
	for i, s := range from {
		fromStrings[i] = string(s)
	}

	query, args, err := psqlbuilder.Update("bookings").
		Set("booking_status", domain.StatusCancelled).
		Set("cancellation_reason", reason).
		Set("cancelled_at", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"booking_status": fromStrings}).
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: CancelIf - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: CancelIf - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: CancelIf - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrStatusNotUpdated
	}

	return nil
}

// MarkOverstays переводит активные бронирования организации с истекшим end_time в overstay
// Идемпотентно: уже переведенные и терминальные строки не затрагиваются
func (r *Repository) MarkOverstays(ctx context.Context, organizationID int64, now time.Time) (int64, error) {
	return r.sweep(ctx, "MarkOverstays",
		psqlbuilder.Update("bookings").
			Set("booking_status", domain.StatusOverstay).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"organization_id": organizationID}).
			Where(squirrel.Eq{"booking_status": domain.StatusActive}).
			Where(squirrel.Lt{"booking_end_time": now}))
}

// MarkNoShows переводит подтвержденные бронирования, не активированные до cutoff, в no_show
func (r *Repository) MarkNoShows(ctx context.Context, organizationID int64, cutoff time.Time) (int64, error) {
	return r.sweep(ctx, "MarkNoShows",
		psqlbuilder.Update("bookings").
			Set("booking_status", domain.StatusNoShow).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"organization_id": organizationID}).
			Where(squirrel.Eq{"booking_status": domain.StatusConfirmed}).
			Where(squirrel.Lt{"booking_start_time": cutoff}))
}

// CompleteOverstays завершает overstay-бронирования, чей end_time прошёл раньше cutoff
// (автоматический checkout по истечении grace-периода)
func (r *Repository) CompleteOverstays(ctx context.Context, organizationID int64, cutoff time.Time) (int64, error) {
	return r.sweep(ctx, "CompleteOverstays",
		psqlbuilder.Update("bookings").
			Set("booking_status", domain.StatusCompleted).
			Set("updated_at", squirrel.Expr("NOW()")).
			Where(squirrel.Eq{"organization_id": organizationID}).
			Where(squirrel.Eq{"booking_status": domain.StatusOverstay}).
			Where(squirrel.Lt{"booking_end_time": cutoff}))
}

// sweep выполняет пакетное обновление статусов и возвращает число затронутых строк
func (r *Repository) sweep(ctx context.Context, op string, builder squirrel.UpdateBuilder) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %s - build update query: %v", ErrBuildQuery, op, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}

	return rowsAffected, nil
}

// scanBooking сканирует одну строку бронирования
func scanBooking(row *sql.Row) (*domain.Booking, error) {
	var booking domain.Booking
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.OrganizationID,
		&booking.ParkingLotID,
		&booking.SlotNumber,
		&booking.UserID,
		&booking.VehicleNumber,
		&booking.StartTime,
		&booking.EndTime,
		&booking.DurationHours,
		&booking.Amount,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.CancellationReason,
		&booking.CancelledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.CreatedAt = createdAt.Time
	booking.UpdatedAt = updatedAt.Time
	return &booking, nil
}

// scanBookings сканирует результаты запроса в слайс бронирований
func scanBookings(rows *sql.Rows) ([]*domain.Booking, error) {
	bookings := make([]*domain.Booking, 0)

	for rows.Next() {
		var booking domain.Booking
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(
			&booking.ID,
			&booking.OrganizationID,
			&booking.ParkingLotID,
			&booking.SlotNumber,
			&booking.UserID,
			&booking.VehicleNumber,
			&booking.StartTime,
			&booking.EndTime,
			&booking.DurationHours,
			&booking.Amount,
			&booking.Status,
			&booking.PaymentStatus,
			&booking.CancellationReason,
			&booking.CancelledAt,
			&createdAt,
			&updatedAt,
		)

		if err != nil {
			return nil, fmt.Errorf("%w: scanBookings - scan row: %v", ErrScanRow, err)
		}

		booking.CreatedAt = createdAt.Time
		booking.UpdatedAt = updatedAt.Time

		bookings = append(bookings, &booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanBookings - rows error: %v", ErrScanRow, err)
	}

	return bookings, nil
}
