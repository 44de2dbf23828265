// Package room holds the operating room reference catalog. The catalog
// is fixed at startup and read-only at runtime; every other scheduling
// component resolves room ids and names through it.
package room

// OperatingRoom is a static reference entity.
type OperatingRoom struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Catalog is an immutable set of operating rooms keyed by id.
type Catalog struct {
	rooms []OperatingRoom
	byID  map[string]OperatingRoom
}

// NewCatalog builds a catalog from the given rooms, preserving order.
func NewCatalog(rooms []OperatingRoom) *Catalog {
	c := &Catalog{rooms: rooms, byID: make(map[string]OperatingRoom, len(rooms))}
	for _, r := range rooms {
		c.byID[r.ID] = r
	}
	return c
}

// DefaultCatalog returns the standard five-room layout.
func DefaultCatalog() *Catalog {
	return NewCatalog([]OperatingRoom{
		{ID: "or-001", Name: "OR 1 - General Surgery", Specialty: "general"},
		{ID: "or-002", Name: "OR 2 - Cardiac", Specialty: "cardiac"},
		{ID: "or-003", Name: "OR 3 - Orthopedic", Specialty: "orthopedic"},
		{ID: "or-004", Name: "OR 4 - Neurosurgery", Specialty: "neuro"},
		{ID: "or-005", Name: "OR 5 - Emergency", Specialty: "emergency"},
	})
}

// All returns the rooms in catalog order.
func (c *Catalog) All() []OperatingRoom {
	out := make([]OperatingRoom, len(c.rooms))
	copy(out, c.rooms)
	return out
}

// Get looks up a room by id.
func (c *Catalog) Get(id string) (OperatingRoom, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// NameOr resolves a room's display name, falling back to "OR {id}" for
// ids outside the catalog so unknown rooms never block scheduling.
func (c *Catalog) NameOr(id string) string {
	if r, ok := c.byID[id]; ok {
		return r.Name
	}
	return "OR " + id
}

// Emergency returns the dedicated emergency room, if the catalog has one.
func (c *Catalog) Emergency() (OperatingRoom, bool) {
	for _, r := range c.rooms {
		if r.Specialty == "emergency" {
			return r, true
		}
	}
	return OperatingRoom{}, false
}

// Len returns the number of rooms.
func (c *Catalog) Len() int { return len(c.rooms) }
