package dupfind

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// recordList keeps one candidate group's members ordered by path. The
// context of each item is the stage that placed it in the list.
type recordList struct {
	skiplist *zcsl.ZeroCopySkiplist[FileRecord, string, string]
}

func newRecordList() *recordList {
	getKeyFromItem := func(r *FileRecord) string {
		return r.Path
	}
	getItemSize := func(r *FileRecord) int {
		return len(r.Path)
	}

	return &recordList{
		skiplist: zcsl.MakeZeroCopySkiplist[FileRecord, string, string](
			16,
			getKeyFromItem,
			getItemSize,
			strings.Compare,
		),
	}
}

// Insert adds a copy of r. Each path is inserted at most once per list.
func (rl *recordList) Insert(r FileRecord, stage string) bool {
	rec := r
	return rl.skiplist.Insert(&rec, stage)
}

// Length returns the number of records
func (rl *recordList) Length() int {
	return rl.skiplist.Length()
}

// ForEach visits records in path order until callback returns false
func (rl *recordList) ForEach(callback func(FileRecord, string) bool) {
	for current := rl.skiplist.First(); current != nil; current = current.Next() {
		if !callback(*current.Item(), current.Context()) {
			break
		}
	}
}

// Records returns the members in path order
func (rl *recordList) Records() []FileRecord {
	records := make([]FileRecord, 0, rl.Length())
	rl.ForEach(func(r FileRecord, _ string) bool {
		records = append(records, r)
		return true
	})
	return records
}
