package odoo

import "encoding/json"

// createCommand is the x2many (0, 0, values) command that creates a linked
// record.
type createCommand[T any] struct {
	Values T
}

func (c createCommand[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{0, 0, c.Values})
}

// replaceCommand is the x2many (6, 0, ids) command that sets the linked ids.
type replaceCommand struct {
	IDs []int64
}

func (c replaceCommand) MarshalJSON() ([]byte, error) {
	ids := c.IDs
	if ids == nil {
		ids = []int64{}
	}
	return json.Marshal([]any{6, 0, ids})
}
