package config

import "fmt"

// migrate applies the connector's DDL in order. Statements that fail only
// because the object already exists are treated as applied.
func (s *Store) migrate() error {
	for _, m := range s.conn.Migrations() {
		if _, err := s.db.Exec(m); err != nil {
			if s.conn.IsAlreadyExists(err) {
				continue
			}
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
