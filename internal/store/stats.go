package store

// Stats summarizes task counts by status, queue and session for
// GET /api/stats (spec §6.1, SPEC_FULL.md §4.1).
func (s *Store) Stats() (*StatsSummary, error) {
	out := &StatsSummary{
		ByStatus:  map[string]int{},
		ByQueue:   map[string]int{},
		BySession: map[string]int{},
	}

	rows, err := s.reader.Query(`SELECT Status, COUNT(*) FROM tasks GROUP BY Status`)
	if err != nil {
		return nil, Internal(err)
	}
	func() {
		defer rows.Close()
		for rows.Next() {
			var status string
			var n int
			if err = rows.Scan(&status, &n); err != nil {
				return
			}
			out.ByStatus[status] = n
			out.Total += n
		}
	}()
	if err != nil {
		return nil, Internal(err)
	}

	rows, err = s.reader.Query(`SELECT QueueID, COUNT(*) FROM tasks GROUP BY QueueID`)
	if err != nil {
		return nil, Internal(err)
	}
	func() {
		defer rows.Close()
		for rows.Next() {
			var queueID string
			var n int
			if err = rows.Scan(&queueID, &n); err != nil {
				return
			}
			out.ByQueue[queueID] = n
		}
	}()
	if err != nil {
		return nil, Internal(err)
	}

	rows, err = s.reader.Query(
		`SELECT s.ID, COUNT(t.ID) FROM sessions s
		 LEFT JOIN queues q ON q.SessionID = s.ID
		 LEFT JOIN tasks t ON t.QueueID = q.ID
		 GROUP BY s.ID`,
	)
	if err != nil {
		return nil, Internal(err)
	}
	defer rows.Close()
	for rows.Next() {
		var sessionID string
		var n int
		if err := rows.Scan(&sessionID, &n); err != nil {
			return nil, Internal(err)
		}
		out.BySession[sessionID] = n
	}
	return out, Internal(rows.Err())
}
