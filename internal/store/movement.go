package store

import (
	"database/sql"
	"time"
)

// Movement is a completed start-to-end measurement within a session.
// Start and End are Unix seconds; Duration is in seconds.
type Movement struct {
	ID        int64   `json:"id"`
	SessionID string  `json:"session_id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Duration  float64 `json:"duration"`
}

// Summary aggregates the movements of one session.
type Summary struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// MovementRepository provides access to movements.
type MovementRepository struct {
	db *sql.DB
}

// Movements returns the movement repository for this store.
func (s *Store) Movements() *MovementRepository {
	return &MovementRepository{db: s.db}
}

// NewMovement builds a Movement from start and end times.
func NewMovement(sessionID string, start, end time.Time) *Movement {
	return &Movement{
		SessionID: sessionID,
		Start:     float64(start.UnixNano()) / 1e9,
		End:       float64(end.UnixNano()) / 1e9,
		Duration:  end.Sub(start).Seconds(),
	}
}

// Create inserts a movement and sets its ID.
func (r *MovementRepository) Create(m *Movement) error {
	result, err := r.db.Exec(
		`INSERT INTO movements (session_id, start_time, end_time, duration) VALUES (?, ?, ?, ?)`,
		m.SessionID, m.Start, m.End, m.Duration,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

// ListBySession retrieves the movements of a session in insertion order.
func (r *MovementRepository) ListBySession(sessionID string) ([]*Movement, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, start_time, end_time, duration
		 FROM movements WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := []*Movement{}
	for rows.Next() {
		m := &Movement{}
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Start, &m.End, &m.Duration); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return movements, nil
}

// Summarize aggregates the durations of a session. A session without
// movements yields a zero Summary.
func (r *MovementRepository) Summarize(sessionID string) (Summary, error) {
	var (
		s                   Summary
		total, mean, lo, hi sql.NullFloat64
	)

	err := r.db.QueryRow(
		`SELECT COUNT(*), SUM(duration), AVG(duration), MIN(duration), MAX(duration)
		 FROM movements WHERE session_id = ?`,
		sessionID,
	).Scan(&s.Count, &total, &mean, &lo, &hi)
	if err != nil {
		return Summary{}, err
	}

	s.Total, s.Mean, s.Min, s.Max = total.Float64, mean.Float64, lo.Float64, hi.Float64
	return s, nil
}
