package models

import "github.com/google/uuid"

// ensureID assigns a v4 id when the caller has not set one. Postgres would
// fill it via gen_random_uuid(), but assigning here keeps the id available to
// code running inside the same transaction.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
