package store

import (
	"database/sql"

	"quizhub/internal/model"
)

// CreateLevel inserts a difficulty level. Levels are reference data
// seeded once at startup.
func (s *Store) CreateLevel(l model.Level) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO levels (code, description, rank) VALUES (?, ?, ?)`,
		l.Code, l.Description, l.Rank,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetLevel returns a level by ID, or nil if not found.
func (s *Store) GetLevel(id int64) (*model.Level, error) {
	var l model.Level
	err := s.db.QueryRow(
		`SELECT id, code, description, rank FROM levels WHERE id = ?`, id,
	).Scan(&l.ID, &l.Code, &l.Description, &l.Rank)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLevels returns all levels ordered by rank.
func (s *Store) ListLevels() ([]model.Level, error) {
	rows, err := s.db.Query(`SELECT id, code, description, rank FROM levels ORDER BY rank`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var levels []model.Level
	for rows.Next() {
		var l model.Level
		if err := rows.Scan(&l.ID, &l.Code, &l.Description, &l.Rank); err != nil {
			return nil, err
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// LevelCount returns the number of levels in the database.
func (s *Store) LevelCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM levels`).Scan(&count)
	return count, err
}
