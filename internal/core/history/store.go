package history

import "context"

// LogStore 紀錄儲存介面，只支援附加、全表掃描與整批重寫
type LogStore interface {
	Append(ctx context.Context, kind Kind, e Entry) error
	ScanAll(ctx context.Context, kind Kind) ([]Entry, error)
	RewriteAll(ctx context.Context, kind Kind, entries []Entry) error
}
