package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures list parameters.
type TicketFilter struct {
	OwnerID  *string
	Statuses []domain.TicketStatus
	Limit    int
	Offset   int
}

// MutateFunc edits a locked ticket in place. Returning an error discards the edit.
type MutateFunc func(ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// Mutate applies fn to the current ticket state and persists the result
	// atomically. Responses appended by fn are inserted; existing ones are never
	// rewritten.
	Mutate(ctx context.Context, id int64, fn MutateFunc) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error)
	Count(ctx context.Context, filter TicketFilter) (int, error)
	CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, subject, description, status, priority, created_by, owner_id, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, description, status, priority, created_by, owner_id, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CreatedBy,
		ticket.OwnerID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return getTicket(ctx, r.pool, id, false)
}

func (r *ticketRepository) Mutate(ctx context.Context, id int64, fn MutateFunc) (*domain.Ticket, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ticket, err := getTicket(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	persisted := len(ticket.Responses)

	if err := fn(ticket); err != nil {
		return nil, err
	}

	const update = `
        UPDATE tickets SET subject=$1, description=$2, status=$3, priority=$4, updated_at=$5
        WHERE id=$6`
	if _, err := tx.Exec(ctx, update,
		ticket.Subject,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.UpdatedAt,
		ticket.ID,
	); err != nil {
		return nil, err
	}

	const insertResponse = `
        INSERT INTO ticket_responses (ticket_id, message, responded_by, responded_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	for i := persisted; i < len(ticket.Responses); i++ {
		resp := &ticket.Responses[i]
		resp.TicketID = ticket.ID
		if err := tx.QueryRow(ctx, insertResponse,
			ticket.ID,
			resp.Message,
			resp.RespondedBy,
			resp.RespondedAt,
		).Scan(&resp.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	where, args := ticketWhere(filter)
	limit, offset := pageBounds(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		ticketColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if err := attachResponses(ctx, r.pool, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE owner_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if err := attachResponses(ctx, r.pool, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) Count(ctx context.Context, filter TicketFilter) (int, error) {
	where, args := ticketWhere(filter)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets WHERE `+where, args...).Scan(&total)
	return total, err
}

func (r *ticketRepository) CountByStatus(ctx context.Context) (map[domain.TicketStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	for _, status := range domain.TicketStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status domain.TicketStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func ticketWhere(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	return strings.Join(clauses, " AND "), args
}

func getTicket(ctx context.Context, q Querier, id int64, lock bool) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	if lock {
		query += ` FOR UPDATE`
	}
	ticket, err := scanTicket(q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	tickets := []domain.Ticket{*ticket}
	if err := attachResponses(ctx, q, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func attachResponses(ctx context.Context, q Querier, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]int64, len(tickets))
	index := make(map[int64]int, len(tickets))
	for i, ticket := range tickets {
		ids[i] = ticket.ID
		index[ticket.ID] = i
	}

	const query = `
        SELECT id, ticket_id, message, responded_by, responded_at
        FROM ticket_responses WHERE ticket_id = ANY($1) ORDER BY id ASC`
	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var resp domain.Response
		if err := rows.Scan(&resp.ID, &resp.TicketID, &resp.Message, &resp.RespondedBy, &resp.RespondedAt); err != nil {
			return err
		}
		i := index[resp.TicketID]
		tickets[i].Responses = append(tickets[i].Responses, resp)
	}
	return rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket  domain.Ticket
		ownerID *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CreatedBy,
		&ownerID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if ownerID != nil {
		ticket.OwnerID = *ownerID
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	defer rows.Close()
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
