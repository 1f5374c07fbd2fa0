package frame

// DropDuplicates returns a new frame with duplicate rows removed, keeping the
// first occurrence of each distinct key. When subset columns are given, only
// those columns participate in the key; otherwise all columns do. Row order
// of the kept rows is preserved.
func (f *Frame) DropDuplicates(subset ...string) (*Frame, error) {
	keyColumns := subset
	if len(keyColumns) == 0 {
		keyColumns = f.Columns()
	}

	arrays, err := f.columnArrays(keyColumns)
	if err != nil {
		return nil, err
	}
	defer releaseArrays(arrays)

	seen := make(map[string]struct{}, f.Len())
	keep := make([]int, 0, f.Len())
	for i := 0; i < f.Len(); i++ {
		key := rowKey(arrays, i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keep = append(keep, i)
	}

	if len(keep) == f.Len() {
		return f.Copy(), nil
	}

	return f.TakeRows(keep), nil
}
