package dbModel

import "time"

type Owner struct {
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
