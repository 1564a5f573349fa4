package schema

// OfflineCacheEntryTable represents the 'offline.cache_entry' table
type OfflineCacheEntryTable struct {
	Table     string
	Partition string
	URL       string
	Status    string
	Header    string
	Body      string
	StoredAt  string
	Seq       string
}

// OfflineCacheEntry is the schema definition for offline.cache_entry
var OfflineCacheEntry = OfflineCacheEntryTable{
	Table:     "offline.cache_entry",
	Partition: "partition",
	URL:       "url",
	Status:    "status",
	Header:    "header",
	Body:      "body",
	StoredAt:  "storedat",
	Seq:       "seq",
}

func (t OfflineCacheEntryTable) Columns() []string {
	return []string{
		t.Partition,
		t.URL,
		t.Status,
		t.Header,
		t.Body,
		t.StoredAt,
		t.Seq,
	}
}
