package core

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	OrderAsc  Order = "ASC"
	OrderDesc Order = "DESC"
)

const maxTitleLength = 200

type (
	// TransactionID is a 128-bit identifier generated by the store on insert.
	TransactionID uuid.UUID

	// Order is the sort direction over (date, createdAt, id).
	Order string

	Transaction struct {
		ID          TransactionID
		Date        Date
		Title       string
		Category    string
		AmountCents int64
		Currency    Currency
		CreatedAt   time.Time
	}

	// NewTransaction is the insert payload; the store assigns ID and CreatedAt.
	NewTransaction struct {
		Date        Date
		Title       string
		Category    string
		AmountCents int64
		Currency    Currency
	}

	// SearchFilters narrow a transaction search. Empty strings and nil
	// bounds do not filter.
	SearchFilters struct {
		Title          string
		Category       string
		Range          DateRange
		MinAmountCents *int64
		MaxAmountCents *int64
	}

	// Cursor is the sort key of the last record seen by a paginated search.
	Cursor struct {
		Date      Date
		CreatedAt time.Time
		ID        TransactionID
	}

	TransactionQuery struct {
		Filters SearchFilters
		Cursor  *Cursor
		Order   Order
		Limit   int
	}

	// BucketKey identifies a month bucket, or a year bucket when Month is 0.
	BucketKey struct {
		Year  int
		Month int
	}

	// TransactionSum is the total of one bucket.
	TransactionSum struct {
		Year        int
		Month       int
		AmountCents int64
	}
)

var (
	ErrEmptyCategory  = errors.New("empty category")
	ErrTitleTooLong   = fmt.Errorf("title too long (max %d characters)", maxTitleLength)
	ErrInvalidOrder   = errors.New("invalid order")
	ErrInvalidLimit   = errors.New("limit must be positive")
	ErrInvalidCursor  = errors.New("invalid cursor")
	ErrAmountOverflow = errors.New("amount overflow")
)

func NewTransactionID() TransactionID {
	return TransactionID(uuid.New())
}

func ParseTransactionID(s string) (TransactionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return TransactionID{}, fmt.Errorf("parse transaction id: %w", err)
	}
	return TransactionID(u), nil
}

// TransactionIDFromBytes reads the 16-byte form used by the SQLite store.
func TransactionIDFromBytes(b []byte) (TransactionID, error) {
	u, err := uuid.FromBytes(b)
	if err != nil {
		return TransactionID{}, fmt.Errorf("transaction id from bytes: %w", err)
	}
	return TransactionID(u), nil
}

func (id TransactionID) Bytes() []byte {
	b := make([]byte, 16)
	copy(b, id[:])
	return b
}

func (id TransactionID) String() string {
	return uuid.UUID(id).String()
}

func (id TransactionID) Compare(o TransactionID) int {
	return bytes.Compare(id[:], o[:])
}

func (id TransactionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TransactionID) UnmarshalText(b []byte) error {
	parsed, err := ParseTransactionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DESC":
		return OrderDesc, nil
	case "ASC":
		return OrderAsc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOrder, s)
	}
}

func (o Order) Valid() bool {
	return o == OrderAsc || o == OrderDesc
}

func (n NewTransaction) Validate() error {
	if err := n.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(n.Category) == "" {
		return ErrEmptyCategory
	}
	if len(n.Title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return n.Currency.Validate()
}

// Cursor returns the sort key of t.
func (t Transaction) Cursor() Cursor {
	return Cursor{Date: t.Date, CreatedAt: t.CreatedAt, ID: t.ID}
}

// Compare orders cursors ascending by date, then createdAt, then id.
func (c Cursor) Compare(o Cursor) int {
	if v := c.Date.Compare(o.Date); v != 0 {
		return v
	}
	if v := c.CreatedAt.Compare(o.CreatedAt); v != 0 {
		return v
	}
	return c.ID.Compare(o.ID)
}

// Follows reports whether k sorts strictly after c in the given order.
func (c Cursor) Follows(k Cursor, order Order) bool {
	if order == OrderAsc {
		return k.Compare(c) > 0
	}
	return k.Compare(c) < 0
}

type cursorToken struct {
	Day       int64  `json:"d"`
	CreatedAt int64  `json:"c"`
	ID        string `json:"i"`
}

// Encode returns an opaque URL-safe token.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(cursorToken{
		Day:       c.Date.EpochDay(),
		CreatedAt: c.CreatedAt.UnixNano(),
		ID:        c.ID.String(),
	})
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var t cursorToken
	if err := json.Unmarshal(raw, &t); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	id, err := ParseTransactionID(t.ID)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return Cursor{
		Date:      DateFromEpochDay(t.Day),
		CreatedAt: time.Unix(0, t.CreatedAt).UTC(),
		ID:        id,
	}, nil
}

// Equal compares filters by value.
func (f SearchFilters) Equal(o SearchFilters) bool {
	return f.Title == o.Title &&
		f.Category == o.Category &&
		f.Range.Start.Equal(o.Range.Start) &&
		f.Range.End.Equal(o.Range.End) &&
		equalBound(f.MinAmountCents, o.MinAmountCents) &&
		equalBound(f.MaxAmountCents, o.MaxAmountCents)
}

func equalBound(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Matches applies the filters to t. Substring matches ignore case, including
// non-ASCII letters.
func (f SearchFilters) Matches(t Transaction) bool {
	if !f.Range.Contains(t.Date) {
		return false
	}
	if f.Title != "" && !ContainsFold(t.Title, f.Title) {
		return false
	}
	if f.Category != "" && !ContainsFold(t.Category, f.Category) {
		return false
	}
	if f.MinAmountCents != nil && t.AmountCents < *f.MinAmountCents {
		return false
	}
	if f.MaxAmountCents != nil && t.AmountCents > *f.MaxAmountCents {
		return false
	}
	return true
}

func (f SearchFilters) Validate() error {
	return f.Range.Validate()
}

// ContainsFold reports whether sub is within s, ignoring Unicode case. Every
// store matches title and category filters with it.
func ContainsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (q TransactionQuery) Validate() error {
	if q.Limit <= 0 {
		return ErrInvalidLimit
	}
	if !q.Order.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOrder, string(q.Order))
	}
	return q.Filters.Validate()
}

func (s TransactionSum) Key() BucketKey {
	return BucketKey{Year: s.Year, Month: s.Month}
}

// AddCents adds two amounts and reports overflow.
func AddCents(a, b int64) (int64, error) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}
