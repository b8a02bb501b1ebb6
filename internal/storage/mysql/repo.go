package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"grouptrip/internal/domain"
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) SaveBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID,
		b.SessionID,
		b.ConfirmationCode,
		b.Contact.Name,
		b.Contact.Email,
		valStr(b.Contact.Phone),
		b.Requirements.Destination,
		b.Requirements.StartDate,
		b.Requirements.EndDate,
		b.Requirements.Headcount,
		b.Requirements.Budget,
		string(b.CartSnapshot),
		b.Total,
		b.PaymentRef,
		b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking %s: %w", b.ID, err)
	}
	return nil
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, getBookingSQL, id)

	var b domain.Booking
	var phone sql.NullString
	var snapshot []byte
	if err := row.Scan(
		&b.ID,
		&b.SessionID,
		&b.ConfirmationCode,
		&b.Contact.Name,
		&b.Contact.Email,
		&phone,
		&b.Requirements.Destination,
		&b.Requirements.StartDate,
		&b.Requirements.EndDate,
		&b.Requirements.Headcount,
		&b.Requirements.Budget,
		&snapshot,
		&b.Total,
		&b.PaymentRef,
		&b.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
		}
		return domain.Booking{}, err
	}
	if phone.Valid {
		b.Contact.Phone = phone.String
	}
	b.CartSnapshot = snapshot
	return b, nil
}
