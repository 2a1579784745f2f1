package lsm

import (
	paimon "github.com/siyangzeng/paimon-go"
)

// recordFromEntry reconstructs the paimon.Record a FlushedEntry came from,
// so the changelog producer and merge function — both of which operate on
// paimon.Record — can observe buffer/file contents without this package
// duplicating their decoding logic.
func recordFromEntry(partition []byte, bucket int32, e FlushedEntry) paimon.Record {
	return paimon.Record{
		Kind:      e.Key.Kind(),
		Key:       e.Key.UserKey,
		Value:     e.Value,
		Sequence:  e.Key.SeqNum(),
		Partition: partition,
		Bucket:    bucket,
	}
}
