package ranking

import (
	"bytes"
	"strconv"

	"github.com/turtacn/molrank/pkg/errors"
)

var jsonNull = []byte("null")

// MarshalJSON renders the sentinel as JSON null and a valid rank as a bare
// integer, the shape stored in postgres and returned by the API.
func (r Rank) MarshalJSON() ([]byte, error) {
	if !r.Valid {
		return jsonNull, nil
	}
	return []byte(strconv.Itoa(r.Value)), nil
}

// UnmarshalJSON accepts null or an integer.
func (r *Rank) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*r = Rank{}
		return nil
	}
	v, err := strconv.Atoi(string(bytes.TrimSpace(data)))
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "rank must be an integer or null")
	}
	*r = Rank{Value: v, Valid: true}
	return nil
}
