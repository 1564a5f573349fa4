package schema

// OfflineCachePartitionTable represents the 'offline.cache_partition' table
type OfflineCachePartitionTable struct {
	Table     string
	Name      string
	CreatedAt string
}

// OfflineCachePartition is the schema definition for offline.cache_partition
var OfflineCachePartition = OfflineCachePartitionTable{
	Table:     "offline.cache_partition",
	Name:      "name",
	CreatedAt: "createdat",
}

func (t OfflineCachePartitionTable) Columns() []string {
	return []string{
		t.Name,
		t.CreatedAt,
	}
}
