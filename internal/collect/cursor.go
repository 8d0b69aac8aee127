package collect

// Cursor tracks position in a paged listing. TotalPages is nil until the
// first page has been fetched.
type Cursor struct {
	Page       int
	TotalPages *int
}

// Observe records the total page count reported by the first page. Later
// values are ignored.
func (c *Cursor) Observe(total int) {
	if c.TotalPages != nil {
		return
	}
	c.TotalPages = &total
}

// Exhausted reports whether Page is past the known total.
func (c Cursor) Exhausted() bool {
	return c.TotalPages != nil && c.Page > *c.TotalPages
}
