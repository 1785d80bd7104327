package ledger

import (
	"context"
	"iter"
)

// DefaultPageSize is the page size used when a caller passes zero
const DefaultPageSize = 100

// TransactionPages yields the transactions matching filter, newest first,
// fetching one page at a time. filter.Offset is the starting offset and
// filter.Limit is ignored. Every iteration starts over from the first page.
// The sequence stops after the first error it yields.
func TransactionPages(ctx context.Context, repo TransactionRepository, filter TransactionFilter, pageSize int) iter.Seq2[*Transaction, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return func(yield func(*Transaction, error) bool) {
		page := filter
		page.Limit = pageSize

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			txs, err := repo.ListTransactions(ctx, page)
			if err != nil {
				yield(nil, err)
				return
			}

			for _, tx := range txs {
				if !yield(tx, nil) {
					return
				}
			}

			if len(txs) < pageSize {
				return
			}
			page.Offset += pageSize
		}
	}
}

func collect(seq iter.Seq2[*Transaction, error]) ([]*Transaction, error) {
	out := make([]*Transaction, 0)
	for tx, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}
