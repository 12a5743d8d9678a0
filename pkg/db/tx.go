package db

import (
	"context"

	"gorm.io/gorm"
)

// WithTx runs fn in a transaction. An error or panic from fn rolls back.
// When postgres aborts the transaction with a serialization failure or a
// deadlock, the whole of fn is run again up to the configured retry count,
// so fn must not keep state across attempts.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = c.conn.WithContext(ctx).Transaction(fn)
		if err == nil || attempt >= c.txRetries || !IsTxConflict(err) || ctx.Err() != nil {
			return err
		}
		if c.logg != nil {
			c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
				"attempt": attempt + 1,
				"error":   err.Error(),
			}), "retrying conflicted transaction")
		}
	}
}
