package postgres

import (
	"time"

	"github.com/xraph/grove"
)

type kvModel struct {
	grove.BaseModel `grove:"table:unlock_kv"`

	Key       string    `grove:"item_key,pk"`
	Value     string    `grove:"item_value"`
	UpdatedAt time.Time `grove:"updated_at"`
}
