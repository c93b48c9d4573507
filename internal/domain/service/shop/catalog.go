package shop

import (
	"cmp"
	"slices"
	"sync"

	"goods_market/internal/domain/entity"
)

// Catalog зеркало каталога в памяти. Остатки обновляются только значениями,
// прочитанными в транзакции изменения, или периодической синхронизацией.
type Catalog struct {
	mu          sync.RWMutex
	entries     map[string]entity.CatalogEntry
	definitions map[string]entity.CatalogEntry
}

func NewCatalog() *Catalog {
	return &Catalog{
		entries:     make(map[string]entity.CatalogEntry),
		definitions: make(map[string]entity.CatalogEntry),
	}
}

func (c *Catalog) Get(id string) (entity.CatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]

	return e, ok
}

// List возвращает позиции в порядке витрины: категория, слот, id.
func (c *Catalog) List() []entity.CatalogEntry {
	c.mu.RLock()
	entries := make([]entity.CatalogEntry, 0, len(c.entries))

	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.mu.RUnlock()

	slices.SortFunc(entries, func(a, b entity.CatalogEntry) int {
		return cmp.Or(
			cmp.Compare(a.Category, b.Category),
			cmp.Compare(a.Slot, b.Slot),
			cmp.Compare(a.ID, b.ID),
		)
	})

	return entries
}

func (c *Catalog) Replace(entries []entity.CatalogEntry) {
	next := make(map[string]entity.CatalogEntry, len(entries))
	for _, e := range entries {
		next[e.ID] = e
	}

	c.mu.Lock()
	c.entries = next
	c.mu.Unlock()
}

// SetStock возвращает false, если позиции нет в зеркале.
func (c *Catalog) SetStock(id string, stock int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return false
	}

	e.Stock = stock
	c.entries[id] = e

	return true
}

func (c *Catalog) Put(e entity.CatalogEntry) {
	c.mu.Lock()
	c.entries[e.ID] = e
	c.mu.Unlock()
}

func (c *Catalog) Remove(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// SetDefinitions запоминает определения из конфига для сброса остатков.
func (c *Catalog) SetDefinitions(defs []entity.CatalogEntry) {
	next := make(map[string]entity.CatalogEntry, len(defs))
	for _, d := range defs {
		next[d.ID] = d
	}

	c.mu.Lock()
	c.definitions = next
	c.mu.Unlock()
}

func (c *Catalog) Definition(id string) (entity.CatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.definitions[id]

	return d, ok
}
