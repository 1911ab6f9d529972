package mongo

import (
	"time"

	"github.com/xraph/grove"
)

type kvModel struct {
	grove.BaseModel `grove:"table:unlock_kv"`

	Key       string    `grove:"item_key,pk" bson:"_id"`
	Value     string    `grove:"item_value"  bson:"value"`
	UpdatedAt time.Time `grove:"updated_at"  bson:"updated_at"`
}
