package reconcile

// Cache is the short-lived evidence lookup built once per report and
// discarded after the reconciliation pass. Entries are keyed by the
// names the report pages use, which drift from the row names; reads go
// through the layered name matching in LookupByName.
type Cache struct {
	logs      map[string]string
	durations map[string]float64
	links     map[string]string
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{
		logs:      map[string]string{},
		durations: map[string]float64{},
		links:     map[string]string{},
	}
}

// PutLog stores the isolated execution log for a report-page test name.
func (c *Cache) PutLog(name, log string) { c.logs[name] = log }

// PutDuration stores the execution duration in seconds.
func (c *Cache) PutDuration(name string, seconds float64) { c.durations[name] = seconds }

// PutLink stores the dashboard link for a report page.
func (c *Cache) PutLink(name, url string) { c.links[name] = url }

// Log resolves the execution log for a row name.
func (c *Cache) Log(name string) (string, bool) {
	return LookupByName(name, c.logs)
}

// Duration resolves the duration for a row name.
func (c *Cache) Duration(name string) (float64, bool) {
	return LookupByName(name, c.durations)
}

// Link resolves the dashboard link for a row name.
func (c *Cache) Link(name string) (string, bool) {
	return LookupByName(name, c.links)
}
