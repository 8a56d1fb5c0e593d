// Package recommend holds the view model for the book recommendation
// panel. The panel is purely presentational: it only ever reflects the
// recommendations of the last successful chat reply.
package recommend

import (
	"sync"

	"bookchat/pkg/domain"
)

// Panel is a replaceable list of recommended books.
type Panel struct {
	mu    sync.Mutex
	books []domain.Book
}

// NewPanel returns an empty panel.
func NewPanel() *Panel {
	return &Panel{}
}

// Replace swaps the panel contents for the given list. An empty or nil
// list resets the panel to its empty state.
func (p *Panel) Replace(books []domain.Book) {
	copied := make([]domain.Book, len(books))
	copy(copied, books)
	p.mu.Lock()
	p.books = copied
	p.mu.Unlock()
}

// Clear resets the panel to its empty state.
func (p *Panel) Clear() {
	p.Replace(nil)
}

// Books returns a snapshot of the current contents.
func (p *Panel) Books() []domain.Book {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Book, len(p.books))
	copy(out, p.books)
	return out
}

// Empty reports whether the panel shows its placeholder state.
func (p *Panel) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.books) == 0
}
