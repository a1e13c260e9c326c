package billionrows

// Aggregate folds a batch of records into a fresh StatsMap. It shares no
// state with other calls, so batches can be aggregated concurrently.
func Aggregate(records []Record) StatsMap {
	m := make(StatsMap)
	for _, rec := range records {
		m[rec.Key] = m[rec.Key].Add(rec.Value)
	}
	return m
}

// Merge returns a new StatsMap holding every key of a and b. Keys present
// in both are combined with Stat.Merge. Neither input is modified.
//
// Merge is associative and commutative in Min, Max and Count. Sum is too,
// up to floating point summation order.
func Merge(a, b StatsMap) StatsMap {
	return MergeInto(a.Clone(), b)
}

// MergeInto folds src into dst and returns dst. The caller must own dst;
// src is only read.
func MergeInto(dst, src StatsMap) StatsMap {
	if dst == nil {
		dst = make(StatsMap, len(src))
	}
	for k, s := range src {
		if s.Count == 0 {
			continue
		}
		dst[k] = dst[k].Merge(s)
	}
	return dst
}
