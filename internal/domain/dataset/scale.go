package dataset

// MinMaxScale returns a copy of the Frame with the named columns rescaled to
// [0, 1] via (x - min) / (max - min), computed over the valid cells of each
// column.  Missing cells stay missing; a constant column scales to 0 for
// every row.  Columns not named are copied through untouched.
func (f *Frame) MinMaxScale(columns []string) (*Frame, error) {
	if _, err := f.Select(columns); err != nil {
		return nil, err
	}

	out := f.Clone()
	for _, name := range columns {
		col := out.cells[name]

		var (
			lo, hi float64
			seen   bool
		)
		for _, c := range col {
			if c.IsMissing() {
				continue
			}
			if !seen || c.Num < lo {
				lo = c.Num
			}
			if !seen || c.Num > hi {
				hi = c.Num
			}
			seen = true
		}

		span := hi - lo
		for i, c := range col {
			if c.IsMissing() {
				continue
			}
			if span == 0 {
				col[i] = Num(0)
				continue
			}
			col[i] = Num((c.Num - lo) / span)
		}
	}
	return out, nil
}
