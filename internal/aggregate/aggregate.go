// Package aggregate summarizes transactions by instrument and kind.
package aggregate

import (
	"github.com/rumor-ml/commons.systems/txparse/internal/domain"
)

type key struct {
	isin    string
	txnType domain.TransactionType
}

// Aggregate groups transactions by (ISIN, transaction type) and sums
// quantities and amounts with exact decimal addition, so many small line
// items accumulate no rounding error. The product name for a group is the
// first one seen for that key (instrument names are assumed stable per
// ISIN). Output order is first-occurrence order of each key.
func Aggregate(transactions []domain.Transaction) []domain.AggregatedTransaction {
	order := make([]key, 0)
	groups := make(map[key]*domain.AggregatedTransaction)

	for _, txn := range transactions {
		k := key{isin: txn.ISIN, txnType: txn.TransactionType}
		agg, ok := groups[k]
		if !ok {
			agg = &domain.AggregatedTransaction{
				ISIN:            txn.ISIN,
				ProductName:     txn.ProductName,
				TransactionType: txn.TransactionType,
			}
			groups[k] = agg
			order = append(order, k)
		}
		agg.TotalQuantity = agg.TotalQuantity.Add(txn.Quantity)
		agg.TotalAmountEuros = agg.TotalAmountEuros.Add(txn.AmountEuros)
		agg.TransactionCount++
	}

	out := make([]domain.AggregatedTransaction, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out
}
