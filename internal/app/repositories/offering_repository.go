package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/registrar/internal/app/models"
	"github.com/yigit/registrar/internal/app/models/dto"
	"github.com/yigit/registrar/internal/db"
	"github.com/yigit/registrar/internal/pkg/helpers"
	"github.com/yigit/registrar/internal/pkg/logger"
)

var offeringColumns = []string{
	"co.id", "co.course_id", "co.term_id", "co.section", "co.capacity", "co.status",
	"c.id", "c.code", "c.name", "c.description", "c.credits", "c.deleted_at",
}

const activeCountExpr = "(SELECT COUNT(*) FROM enrollments e WHERE e.class_offering_id = co.id AND e.status = 'REGISTERED')"

// OfferingRepository handles class offering database operations
type OfferingRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewOfferingRepository creates a new OfferingRepository
func NewOfferingRepository(q db.DBTX) *OfferingRepository {
	return &OfferingRepository{db: q, sb: psql}
}

func scanOffering(row pgx.Row, extra ...any) (*models.ClassOffering, error) {
	o := &models.ClassOffering{Course: &models.Course{}}
	c := o.Course
	dest := []any{&o.ID, &o.CourseID, &o.TermID, &o.Section, &o.Capacity, &o.Status,
		&c.ID, &c.Code, &c.Name, &c.Description, &c.Credits, &c.DeletedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	o.Slots = []models.ScheduleSlot{}
	return o, nil
}

func (r *OfferingRepository) baseSelect() squirrel.SelectBuilder {
	return r.sb.Select(offeringColumns...).
		From("class_offerings co").
		Join("courses c ON c.id = co.course_id")
}

// loadSlots attaches schedule slots to the given offerings
func (r *OfferingRepository) loadSlots(ctx context.Context, offerings map[int64]*models.ClassOffering) error {
	if len(offerings) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(offerings))
	for id := range offerings {
		ids = append(ids, id)
	}

	sql, args, err := r.sb.Select("id", "class_offering_id", "day_of_week", "start_minute", "end_minute", "room").
		From("schedule_slots").
		Where(squirrel.Eq{"class_offering_id": ids}).
		OrderBy("class_offering_id", "day_of_week", "start_minute", "id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build schedule slots query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error querying schedule slots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.ScheduleSlot
		if err := rows.Scan(&s.ID, &s.ClassOfferingID, &s.DayOfWeek, &s.StartMinute, &s.EndMinute, &s.Room); err != nil {
			return fmt.Errorf("error scanning schedule slot row: %w", err)
		}
		o := offerings[s.ClassOfferingID]
		o.Slots = append(o.Slots, s)
	}
	return rows.Err()
}

func (r *OfferingRepository) getOne(ctx context.Context, id int64, lock bool) (*models.ClassOffering, error) {
	q := r.baseSelect().Where(squirrel.Eq{"co.id": id})
	if lock {
		q = q.Suffix("FOR UPDATE OF co")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get offering query: %w", err)
	}

	o, err := scanOffering(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("class offering %d: %w", id, ErrNotFound)
		}
		logger.Error().Err(err).Int64("classOfferingID", id).Msg("Error scanning class offering row")
		return nil, fmt.Errorf("error getting class offering: %w", err)
	}
	if err := r.loadSlots(ctx, map[int64]*models.ClassOffering{o.ID: o}); err != nil {
		return nil, err
	}
	return o, nil
}

// GetOfferingByID retrieves an offering with its course and slots
func (r *OfferingRepository) GetOfferingByID(ctx context.Context, id int64) (*models.ClassOffering, error) {
	return r.getOne(ctx, id, false)
}

// LockOffering retrieves an offering and locks its row for the rest of the transaction
func (r *OfferingRepository) LockOffering(ctx context.Context, id int64) (*models.ClassOffering, error) {
	return r.getOne(ctx, id, true)
}

// GetOfferingsByIDs retrieves the listed offerings keyed by ID
func (r *OfferingRepository) GetOfferingsByIDs(ctx context.Context, ids []int64) (map[int64]*models.ClassOffering, error) {
	out := make(map[int64]*models.ClassOffering, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	sql, args, err := r.baseSelect().Where(squirrel.Eq{"co.id": ids}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get offerings query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying class offerings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning class offering row: %w", err)
		}
		out[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.loadSlots(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// applyOfferingFilter adds the WHERE clauses of a filter
func applyOfferingFilter(q squirrel.SelectBuilder, f dto.OfferingFilter) squirrel.SelectBuilder {
	q = q.Where(squirrel.Eq{"co.term_id": f.TermID, "c.deleted_at": nil})
	if f.CourseID != nil {
		q = q.Where(squirrel.Eq{"co.course_id": *f.CourseID})
	}
	if f.DayOfWeek != nil {
		q = q.Where("EXISTS (SELECT 1 FROM schedule_slots s WHERE s.class_offering_id = co.id AND s.day_of_week = ?)", *f.DayOfWeek)
	}
	if f.OpenOnly() {
		q = q.Where(squirrel.Eq{"co.status": models.OfferingOpen})
	}
	if f.OnlyWithSeats {
		q = q.Where(activeCountExpr + " < co.capacity")
	}
	if f.ExcludeStudentID != nil {
		q = q.Where("NOT EXISTS (SELECT 1 FROM enrollments x WHERE x.class_offering_id = co.id AND x.student_id = ? AND x.status <> 'DROPPED')", *f.ExcludeStudentID)
	}
	return q
}

// ListOfferings returns one page of offerings matching the filter and the total match count
func (r *OfferingRepository) ListOfferings(ctx context.Context, filter dto.OfferingFilter) ([]OfferingListItem, int64, error) {
	countSQL, countArgs, err := applyOfferingFilter(
		r.sb.Select("COUNT(*)").From("class_offerings co").Join("courses c ON c.id = co.course_id"),
		filter,
	).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count offerings query: %w", err)
	}

	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting class offerings: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Size)
	sql, args, err := applyOfferingFilter(r.baseSelect().Column(activeCountExpr), filter).
		OrderBy("c.code ASC", "co.section ASC", "co.id ASC").
		Offset(offset).
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list offerings query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list offerings query")
		return nil, 0, fmt.Errorf("error listing class offerings: %w", err)
	}
	defer rows.Close()

	items := []OfferingListItem{}
	byID := map[int64]*models.ClassOffering{}
	for rows.Next() {
		var enrolled int
		o, err := scanOffering(rows, &enrolled)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning class offering row: %w", err)
		}
		items = append(items, OfferingListItem{Offering: o, Enrolled: enrolled})
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := r.loadSlots(ctx, byID); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
