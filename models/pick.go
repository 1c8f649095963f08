package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Pick is a betting recommendation owned by one user. Append-only: only
// Result changes after insert.
type Pick struct {
	bun.BaseModel `bun:"table:picks,alias:p"`

	ID         int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID     int64     `bun:"user_id,notnull" json:"user_id"`
	Sport      Sport     `bun:"sport,notnull" json:"sport"`
	Event      string    `bun:"event,notnull" json:"event"`
	Prediction string    `bun:"prediction,notnull" json:"prediction"`
	Odds       *float64  `bun:"odds" json:"odds"`
	Confidence *float64  `bun:"confidence" json:"confidence"`
	Result     Result    `bun:"result,notnull,default:'pending'" json:"result"`
	Source     Source    `bun:"source,notnull" json:"source"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"-"`
}

// ChatMessage is one immutable transcript entry.
type ChatMessage struct {
	bun.BaseModel `bun:"table:chat_messages,alias:cm"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID    int64     `bun:"user_id,notnull" json:"user_id"`
	Role      Role      `bun:"role,notnull" json:"role"`
	Content   string    `bun:"content,notnull" json:"content"`
	PickID    *int64    `bun:"pick_id" json:"pick_id"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"-"`
	Pick *Pick `bun:"rel:belongs-to,join:pick_id=id" json:"picks,omitempty"`
}
