package repository

import "github.com/google/uuid"

// validID reports whether id can match a UUID primary key. Lookups with malformed
// ids short-circuit to pgx.ErrNoRows instead of reaching Postgres.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func validIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			out = append(out, id)
		}
	}
	return out
}
