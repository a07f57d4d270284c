package model

import "time"

type Rate struct {
	ID        int64     `db:"id"`
	From      string    `db:"from_currency"`
	To        string    `db:"to_currency"`
	Rate      string    `db:"rate"`
	CreatedAt time.Time `db:"created_at"`
}
