package dupfind

// Keyed pairs a record with the key it is being grouped by
type Keyed[K comparable] struct {
	Key    K
	Record FileRecord
}

// grouper accumulates records per key. It is not safe for concurrent use;
// each stage owns exactly one and feeds it from a single goroutine.
type grouper[K comparable] struct {
	stage  string
	groups map[K]*recordList
}

func newGrouper[K comparable](stage string) *grouper[K] {
	return &grouper[K]{
		stage:  stage,
		groups: make(map[K]*recordList),
	}
}

// Add places r in the group for key
func (g *grouper[K]) Add(key K, r FileRecord) {
	list, ok := g.groups[key]
	if !ok {
		list = newRecordList()
		g.groups[key] = list
	}
	list.Insert(r, g.stage)
}

// Len returns the number of distinct keys seen so far
func (g *grouper[K]) Len() int {
	return len(g.groups)
}

// Groups returns every key with at least two members, members in path order
func (g *grouper[K]) Groups() map[K][]FileRecord {
	result := make(map[K][]FileRecord)
	for key, list := range g.groups {
		if list.Length() < 2 {
			if IsDebugEnabled("group") {
				VerboseLog(2, "%s: dropping singleton group %v", g.stage, key)
			}
			continue
		}
		result[key] = list.Records()
	}
	return result
}

// GroupBy partitions items by key and drops every key with fewer than two
// members. Two different keys are never merged.
func GroupBy[K comparable](items []Keyed[K]) map[K][]FileRecord {
	g := newGrouper[K]("")
	for _, item := range items {
		g.Add(item.Key, item.Record)
	}
	return g.Groups()
}
