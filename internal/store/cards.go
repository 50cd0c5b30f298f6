package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"giftcard-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// InsertCard inserts a newly ingested card. The unique index on code is
// the source of truth for duplicate rejection; a violation surfaces as
// ErrDuplicateCode.
func (s *Store) InsertCard(ctx context.Context, card *models.Card) error {
	query := `
		INSERT INTO gift_cards (sender, subject, card_type, dt_str, code, order_number, amount, extra_number, usage_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, create_time, updated_at`

	err := s.db.GetContext(ctx, card, query,
		card.Sender, card.Subject, card.CardType, card.DtStr, card.Code,
		card.OrderNumber, card.Amount, card.ExtraNumber, card.UsageType, card.Status)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	return err
}

// GetCardByID retrieves a card by ID
func (s *Store) GetCardByID(ctx context.Context, id int64) (*models.Card, error) {
	var card models.Card
	err := s.db.GetContext(ctx, &card, "SELECT * FROM gift_cards WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// GetCardByCode retrieves a card by its redeemable code
func (s *Store) GetCardByCode(ctx context.Context, code string) (*models.Card, error) {
	var card models.Card
	err := s.db.GetContext(ctx, &card, "SELECT * FROM gift_cards WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// buildFilter renders a CardFilter into a WHERE clause and args
func buildFilter(f models.CardFilter) (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.CardType != "" {
		add("card_type = $%d", f.CardType)
	}
	if f.Code != "" {
		add("code = $%d", f.Code)
	}
	if f.Sender != "" {
		add("sender = $%d", f.Sender)
	}
	if f.OrderNumber != "" {
		add("order_number = $%d", f.OrderNumber)
	}
	if f.UsageType != "" {
		add("usage_type = $%d", f.UsageType)
	}
	if f.BeginTime != nil {
		add("create_time >= $%d", *f.BeginTime)
	}
	if f.EndTime != nil {
		add("create_time < $%d", *f.EndTime)
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// ListCards retrieves cards matching the filter, newest first
func (s *Store) ListCards(ctx context.Context, f models.CardFilter) ([]models.Card, error) {
	where, args := buildFilter(f)
	query := "SELECT * FROM gift_cards" + where + " ORDER BY create_time DESC, id DESC"

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	cards := []models.Card{}
	err := s.db.SelectContext(ctx, &cards, query, args...)
	return cards, err
}

// CountCards counts cards matching the filter
func (s *Store) CountCards(ctx context.Context, f models.CardFilter) (int64, error) {
	where, args := buildFilter(f)
	var count int64
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM gift_cards"+where, args...)
	return count, err
}

// SumCardAmount returns the total face value of cards matching the filter
func (s *Store) SumCardAmount(ctx context.Context, f models.CardFilter) (int64, error) {
	where, args := buildFilter(f)
	var sum int64
	err := s.db.GetContext(ctx, &sum, "SELECT COALESCE(SUM(amount), 0) FROM gift_cards"+where, args...)
	return sum, err
}

// UpdateCard updates the mutable fields of a card by ID
func (s *Store) UpdateCard(ctx context.Context, card *models.Card) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE gift_cards
		SET sender = $1, subject = $2, card_type = $3, dt_str = $4, order_number = $5,
		    amount = $6, extra_number = $7, usage_type = $8, status = $9, updated_at = NOW()
		WHERE id = $10`,
		card.Sender, card.Subject, card.CardType, card.DtStr, card.OrderNumber,
		card.Amount, card.ExtraNumber, card.UsageType, card.Status, card.ID)
	return err
}

// DeleteCards deletes cards by ID
func (s *Store) DeleteCards(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In("DELETE FROM gift_cards WHERE id IN (?)", ids)
	if err != nil {
		return 0, err
	}
	query = s.db.Rebind(query)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BeginTx starts a transaction for the allocation path
func (s *Store) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return s.db.BeginTxx(ctx, nil)
}

// SelectOldestUnusedForUpdate locks and returns the oldest unused card of
// the given type within tx. SKIP LOCKED lets concurrent allocators pass
// over a row that is mid-transaction elsewhere and take the next-oldest.
func (s *Store) SelectOldestUnusedForUpdate(ctx context.Context, tx *sqlx.Tx, cardType string) (*models.Card, error) {
	var card models.Card
	err := tx.GetContext(ctx, &card, `
		SELECT * FROM gift_cards
		WHERE status = $1 AND card_type = $2
		ORDER BY create_time ASC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
		models.StatusUnused, cardType)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// MarkReservedTx transitions a card to RESERVED within tx
func (s *Store) MarkReservedTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE gift_cards SET status = $1, updated_at = NOW() WHERE id = $2",
		models.StatusReserved, id)
	return err
}

// FinalizeCard transitions a RESERVED card to a terminal status and
// records the usage type. Returns false when the card was no longer
// RESERVED, e.g. the reaper reclaimed it first.
func (s *Store) FinalizeCard(ctx context.Context, code, status, usageType string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE gift_cards
		SET status = $1, usage_type = $2, updated_at = NOW()
		WHERE code = $3 AND status = $4`,
		status, usageType, code, models.StatusReserved)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// BatchResetToUnused returns expired reservations to the pool. Only rows
// still RESERVED are touched, which keeps the reset idempotent and safe
// against a racing confirmation.
func (s *Store) BatchResetToUnused(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		"UPDATE gift_cards SET status = ?, updated_at = NOW() WHERE id IN (?) AND status = ?",
		models.StatusUnused, ids, models.StatusReserved)
	if err != nil {
		return 0, err
	}
	query = s.db.Rebind(query)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ResetToUnused resets a single card back to UNUSED if it is still
// RESERVED. Used to compensate a failed registry write after allocation.
func (s *Store) ResetToUnused(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE gift_cards SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		models.StatusUnused, id, models.StatusReserved)
	return err
}

// ListStaleReserved returns cards that have been RESERVED since before
// cutoff. Second line of defense for reservations whose registry entry
// was never written or was lost.
func (s *Store) ListStaleReserved(ctx context.Context, cutoff time.Time) ([]models.Card, error) {
	cards := []models.Card{}
	err := s.db.SelectContext(ctx, &cards,
		"SELECT * FROM gift_cards WHERE status = $1 AND updated_at < $2",
		models.StatusReserved, cutoff)
	return cards, err
}
