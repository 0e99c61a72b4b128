package sqlite

// Exec runs a raw statement against the store's database.
func (s *Store) Exec(query string) error {
	_, err := s.db.Exec(query)
	return err
}
