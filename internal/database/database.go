package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"ticket-pricing-api/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = fmt.Errorf("database: record not found")

// DB wraps the database connection and provides methods for data access.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection and initializes the schema.
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (db *DB) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			venue TEXT NOT NULL,
			base_ticket_price INTEGER NOT NULL,
			starts_at TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS offers (
			id TEXT PRIMARY KEY,
			event_id TEXT NOT NULL REFERENCES events(id),
			kind TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			price_adjustment INTEGER NOT NULL,
			min_quantity INTEGER NOT NULL,
			max_quantity INTEGER,
			group_size INTEGER NOT NULL,
			is_active INTEGER NOT NULL,
			valid_from TEXT,
			valid_until TEXT,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS coupons (
			code TEXT PRIMARY KEY,
			discount_percent INTEGER NOT NULL,
			active INTEGER NOT NULL,
			valid_from TEXT,
			valid_until TEXT,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS memberships (
			user_id TEXT PRIMARY KEY,
			expires_at TEXT,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_event_id ON offers(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_offers_active ON offers(event_id, is_active)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertEvent creates or updates an event.
func (db *DB) UpsertEvent(event models.Event) error {
	query := `INSERT INTO events (
		id, title, venue, base_ticket_price, starts_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		venue = excluded.venue,
		base_ticket_price = excluded.base_ticket_price,
		starts_at = excluded.starts_at,
		updated_at = excluded.updated_at`

	_, err := db.conn.Exec(
		query,
		event.ID,
		event.Title,
		event.Venue,
		event.BaseTicketPrice,
		event.StartsAt.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}

	return nil
}

// GetEvent returns one event by id.
func (db *DB) GetEvent(eventID string) (models.Event, error) {
	query := `SELECT id, title, venue, base_ticket_price, starts_at
		FROM events WHERE id = ?`

	var event models.Event
	var startsAtStr string

	err := db.conn.QueryRow(query, eventID).Scan(
		&event.ID,
		&event.Title,
		&event.Venue,
		&event.BaseTicketPrice,
		&startsAtStr,
	)
	if err == sql.ErrNoRows {
		return models.Event{}, ErrNotFound
	}
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to get event: %w", err)
	}

	event.StartsAt, err = time.Parse(time.RFC3339, startsAtStr)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to parse starts_at: %w", err)
	}

	return event, nil
}

// UpsertOffer creates or updates an offer.
func (db *DB) UpsertOffer(offer models.Offer) error {
	query := `INSERT INTO offers (
		id, event_id, kind, title, description, price_adjustment,
		min_quantity, max_quantity, group_size, is_active,
		valid_from, valid_until, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		event_id = excluded.event_id,
		kind = excluded.kind,
		title = excluded.title,
		description = excluded.description,
		price_adjustment = excluded.price_adjustment,
		min_quantity = excluded.min_quantity,
		max_quantity = excluded.max_quantity,
		group_size = excluded.group_size,
		is_active = excluded.is_active,
		valid_from = excluded.valid_from,
		valid_until = excluded.valid_until,
		updated_at = excluded.updated_at`

	_, err := db.conn.Exec(
		query,
		offer.ID,
		offer.EventID,
		string(offer.Kind),
		offer.Title,
		offer.Description,
		offer.PriceAdjustment,
		offer.MinQuantity,
		nullableInt(offer.MaxQuantity),
		offer.GroupSize,
		offer.Active,
		nullableTime(offer.ValidFrom),
		nullableTime(offer.ValidUntil),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert offer: %w", err)
	}

	return nil
}

// GetOffer returns one offer by id, scoped to an event.
func (db *DB) GetOffer(eventID, offerID string) (models.Offer, error) {
	query := offerSelect + ` WHERE id = ? AND event_id = ?`

	row := db.conn.QueryRow(query, offerID, eventID)
	offer, err := scanOffer(row)
	if err == sql.ErrNoRows {
		return models.Offer{}, ErrNotFound
	}
	if err != nil {
		return models.Offer{}, fmt.Errorf("failed to get offer: %w", err)
	}

	return offer, nil
}

// ListOffers returns all offers attached to an event.
func (db *DB) ListOffers(eventID string) ([]models.Offer, error) {
	query := offerSelect + ` WHERE event_id = ? ORDER BY created_at, id`

	rows, err := db.conn.Query(query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, offer)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating offers: %w", err)
	}

	return offers, nil
}

// UpsertCouponRule creates or updates a coupon rule.
func (db *DB) UpsertCouponRule(rule models.CouponRule) error {
	query := `INSERT INTO coupons (
		code, discount_percent, active, valid_from, valid_until, updated_at
	) VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(code) DO UPDATE SET
		discount_percent = excluded.discount_percent,
		active = excluded.active,
		valid_from = excluded.valid_from,
		valid_until = excluded.valid_until,
		updated_at = excluded.updated_at`

	_, err := db.conn.Exec(
		query,
		rule.Code,
		rule.DiscountPercent,
		rule.Active,
		nullableTime(rule.ValidFrom),
		nullableTime(rule.ValidUntil),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert coupon: %w", err)
	}

	return nil
}

// GetCouponRule returns one coupon rule by code.
func (db *DB) GetCouponRule(code string) (models.CouponRule, error) {
	query := `SELECT code, discount_percent, active, valid_from, valid_until
		FROM coupons WHERE code = ?`

	var rule models.CouponRule
	var validFrom, validUntil sql.NullString

	err := db.conn.QueryRow(query, code).Scan(
		&rule.Code,
		&rule.DiscountPercent,
		&rule.Active,
		&validFrom,
		&validUntil,
	)
	if err == sql.ErrNoRows {
		return models.CouponRule{}, ErrNotFound
	}
	if err != nil {
		return models.CouponRule{}, fmt.Errorf("failed to get coupon: %w", err)
	}

	if rule.ValidFrom, err = parseNullableTime(validFrom); err != nil {
		return models.CouponRule{}, fmt.Errorf("failed to parse valid_from: %w", err)
	}
	if rule.ValidUntil, err = parseNullableTime(validUntil); err != nil {
		return models.CouponRule{}, fmt.Errorf("failed to parse valid_until: %w", err)
	}

	return rule, nil
}

// UpsertMembership creates or updates a user's membership record.
func (db *DB) UpsertMembership(membership models.Membership) error {
	query := `INSERT INTO memberships (user_id, expires_at, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		expires_at = excluded.expires_at,
		updated_at = excluded.updated_at`

	_, err := db.conn.Exec(
		query,
		membership.UserID,
		nullableTime(membership.ExpiresAt),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert membership: %w", err)
	}

	return nil
}

// GetMembership returns a user's membership record.
func (db *DB) GetMembership(userID string) (models.Membership, error) {
	query := `SELECT user_id, expires_at FROM memberships WHERE user_id = ?`

	var membership models.Membership
	var expiresAt sql.NullString

	err := db.conn.QueryRow(query, userID).Scan(&membership.UserID, &expiresAt)
	if err == sql.ErrNoRows {
		return models.Membership{}, ErrNotFound
	}
	if err != nil {
		return models.Membership{}, fmt.Errorf("failed to get membership: %w", err)
	}

	if membership.ExpiresAt, err = parseNullableTime(expiresAt); err != nil {
		return models.Membership{}, fmt.Errorf("failed to parse expires_at: %w", err)
	}

	return membership, nil
}

const offerSelect = `SELECT id, event_id, kind, title, description,
	price_adjustment, min_quantity, max_quantity, group_size, is_active,
	valid_from, valid_until FROM offers`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOffer(row scanner) (models.Offer, error) {
	var offer models.Offer
	var kind string
	var maxQuantity sql.NullInt64
	var validFrom, validUntil sql.NullString

	err := row.Scan(
		&offer.ID,
		&offer.EventID,
		&kind,
		&offer.Title,
		&offer.Description,
		&offer.PriceAdjustment,
		&offer.MinQuantity,
		&maxQuantity,
		&offer.GroupSize,
		&offer.Active,
		&validFrom,
		&validUntil,
	)
	if err != nil {
		return models.Offer{}, err
	}

	offer.Kind = models.OfferKind(kind)

	if maxQuantity.Valid {
		mq := int(maxQuantity.Int64)
		offer.MaxQuantity = &mq
	}

	if offer.ValidFrom, err = parseNullableTime(validFrom); err != nil {
		return models.Offer{}, err
	}
	if offer.ValidUntil, err = parseNullableTime(validUntil); err != nil {
		return models.Offer{}, err
	}

	return offer, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
