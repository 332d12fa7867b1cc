package postgres

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kirinyoku/meetly/internal/domain"
	"github.com/kirinyoku/meetly/internal/remote"
	"github.com/kirinyoku/meetly/internal/repository"
)

// Filter keys every list understands besides its own columns.
const (
	FilterSearch   = "search"
	FilterUpcoming = "upcoming"
)

// buildWhere turns filter into a WHERE clause. columns maps accepted filter
// keys to column names; searchCol is matched case-insensitively against the
// "search" key. Unknown keys are rejected.
func buildWhere(filter domain.Filter, columns map[string]string, searchCol string) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		conds []string
		args  []any
	)

	for _, k := range keys {
		v := filter[k]
		switch {
		case k == FilterSearch && searchCol != "":
			args = append(args, "%"+v+"%")
			conds = append(conds, fmt.Sprintf("%s ILIKE $%d", searchCol, len(args)))
		case k == FilterUpcoming:
			if v == "true" {
				conds = append(conds, "starts_at >= now()")
			}
		default:
			col, ok := columns[k]
			if !ok {
				return "", nil, fmt.Errorf("%w: unknown filter %q", repository.ErrInvalid, k)
			}
			args = append(args, v)
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}

	if len(conds) == 0 {
		return "", nil, nil
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// buildUpdate renders an UPDATE ... RETURNING statement for patch. Only
// columns listed in allowed may be written.
func buildUpdate(
	table, id string,
	patch remote.Patch,
	allowed map[string]bool,
	returning string,
) (string, []any, error) {
	if len(patch) == 0 {
		return "", nil, fmt.Errorf("%w: empty patch", repository.ErrInvalid)
	}

	cols := make([]string, 0, len(patch))
	for c := range patch {
		if !allowed[c] {
			return "", nil, fmt.Errorf("%w: column %q is not writable", repository.ErrInvalid, c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, c := range cols {
		args = append(args, patch[c])
		sets[i] = fmt.Sprintf("%s = $%d", c, i+1)
	}
	args = append(args, id)

	q := fmt.Sprintf(
		"UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		table, strings.Join(sets, ", "), len(args), returning,
	)

	return q, args, nil
}
