// Package tagging tracks an operator's unsaved tag edits, one state per product row.
//
// A row is Clean while the shown tag equals the stored tag and Pending once the
// operator picks another value. Confirming a pending row writes it through a
// TagUpdater; cancelling drops it. Rows never affect each other.
package tagging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	perrors "github.com/abgdnv/producttags/internal/errors"
	"github.com/abgdnv/producttags/internal/model"
	"github.com/abgdnv/producttags/internal/service"
)

// ErrUnknownRow is returned for an ID that is not on the board.
var ErrUnknownRow = errors.New("row is not on the board")

// RowState is the edit state of one row.
type RowState int

const (
	Clean RowState = iota
	Pending
)

func (s RowState) String() string {
	if s == Pending {
		return "pending"
	}
	return "clean"
}

// NotificationKind distinguishes success from failure messages.
type NotificationKind int

const (
	Success NotificationKind = iota
	Failure
)

// Notification is a transient message shown to the operator once.
type Notification struct {
	Kind NotificationKind
	Text string
}

// TagUpdater persists a tag change.
type TagUpdater interface {
	UpdateTag(ctx context.Context, id string, tag model.Tag) (*service.ProductDto, error)
}

// Row is a product as displayed, with its edit state.
type Row struct {
	Product    service.ProductDto
	State      RowState
	PendingTag model.Tag
}

// ShownTag is the tag the operator currently sees for the row.
func (r Row) ShownTag() model.Tag {
	if r.State == Pending {
		return r.PendingTag
	}
	return r.Product.Tag
}

// Board holds the rows of one operator session. It is safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	updater TagUpdater
	order   []string
	stored  map[string]service.ProductDto
	pending map[string]model.Tag
	notices []Notification
}

// NewBoard creates an empty board writing confirmed edits through updater.
func NewBoard(updater TagUpdater) *Board {
	return &Board{
		updater: updater,
		stored:  make(map[string]service.ProductDto),
		pending: make(map[string]model.Tag),
	}
}

// Load replaces the stored values with a fresh read of the products.
// Pending edits survive for rows still present; those of vanished rows are dropped,
// as are edits that now equal the stored tag.
func (b *Board) Load(products []service.ProductDto) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.order = make([]string, 0, len(products))
	b.stored = make(map[string]service.ProductDto, len(products))
	for _, p := range products {
		b.order = append(b.order, p.ID)
		b.stored[p.ID] = p
	}
	for id, tag := range b.pending {
		p, ok := b.stored[id]
		if !ok || p.Tag == tag {
			delete(b.pending, id)
		}
	}
}

// Select records the operator's choice for a row. Choosing the stored tag resolves the row to Clean.
func (b *Board) Select(id string, tag model.Tag) error {
	if !tag.Valid() {
		return fmt.Errorf("%w: %d", perrors.ErrInvalidTag, tag)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.stored[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRow, id)
	}
	if p.Tag == tag {
		delete(b.pending, id)
		return nil
	}
	b.pending[id] = tag
	return nil
}

// Cancel discards the pending value of a row.
func (b *Board) Cancel(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
}

// Confirm writes the pending value of a row. A clean row is left alone.
// On failure the row stays pending with the operator's choice and an error notification is queued.
func (b *Board) Confirm(ctx context.Context, id string) error {
	b.mu.Lock()
	tag, isPending := b.pending[id]
	p, known := b.stored[id]
	b.mu.Unlock()

	if !known {
		return fmt.Errorf("%w: %s", ErrUnknownRow, id)
	}
	if !isPending {
		return nil
	}

	updated, err := b.updater.UpdateTag(ctx, id, tag)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.notices = append(b.notices, Notification{
			Kind: Failure,
			Text: fmt.Sprintf("Failed to update product %d: %v", p.ExternalID, err),
		})
		return err
	}
	if _, stillListed := b.stored[id]; stillListed {
		b.stored[id] = *updated
	}
	if b.pending[id] == updated.Tag {
		delete(b.pending, id)
	}
	b.notices = append(b.notices, Notification{
		Kind: Success,
		Text: fmt.Sprintf("Product %d tagged %s", updated.ExternalID, updated.Tag),
	})
	return nil
}

// Row returns one row of the board.
func (b *Board) Row(id string) (Row, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.stored[id]
	if !ok {
		return Row{}, false
	}
	return b.row(p), true
}

// Rows returns the rows for the given products, in their order.
// Products not loaded on the board are shown clean.
func (b *Board) Rows(products []service.ProductDto) []Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	rows := make([]Row, len(products))
	for i, p := range products {
		rows[i] = b.row(p)
	}
	return rows
}

// PendingCount reports how many rows have unsaved edits.
func (b *Board) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Notify queues a notification for the next render.
func (b *Board) Notify(kind NotificationKind, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, Notification{Kind: kind, Text: text})
}

// Drain returns the queued notifications and clears them.
func (b *Board) Drain() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.notices
	b.notices = nil
	return out
}

// row must be called with the lock held.
func (b *Board) row(p service.ProductDto) Row {
	if tag, ok := b.pending[p.ID]; ok {
		return Row{Product: p, State: Pending, PendingTag: tag}
	}
	return Row{Product: p, State: Clean, PendingTag: p.Tag}
}
