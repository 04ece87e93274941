package indexdb

import "context"

// TransitionRow is one recorded builder status change.
type TransitionRow struct {
	Tick      uint64
	BuilderID string
	From      string
	To        string
}

// Transitions returns the recorded status changes of one builder, oldest
// first.
func (s *SQLiteIndex) Transitions(ctx context.Context, builderID string) ([]TransitionRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tick, builder_id, from_status, to_status FROM transitions WHERE builder_id = ? ORDER BY tick, seq`,
		builderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransitionRow
	for rows.Next() {
		var (
			r    TransitionRow
			tick int64
		)
		if err := rows.Scan(&tick, &r.BuilderID, &r.From, &r.To); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AuditCount returns how many audit rows were recorded for actor.
func (s *SQLiteIndex) AuditCount(ctx context.Context, actor string) (n int, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audits WHERE actor = ?`, actor).Scan(&n)
	return n, err
}
