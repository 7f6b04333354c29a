package calculator

import (
	"math"
	"testing"

	"github.com/apachehub/deudacero/internal/models"
)

func edge(amount float64, debtor, creditor int64) models.DebtEdge {
	return models.DebtEdge{Amount: amount, DebtorID: debtor, CreditorID: creditor, Source: models.SourceExpense}
}

func TestAggregateBalances(t *testing.T) {
	tests := []struct {
		name  string
		edges []models.DebtEdge
		want  map[int64]float64
	}{
		{
			name:  "single edge",
			edges: []models.DebtEdge{edge(30, 2, 1)},
			want:  map[int64]float64{1: 30, 2: -30},
		},
		{
			name: "opposing edges cancel",
			edges: []models.DebtEdge{
				edge(25, 2, 1),
				edge(25, 1, 2),
			},
			want: map[int64]float64{},
		},
		{
			name: "multiple edges accumulate",
			edges: []models.DebtEdge{
				edge(30, 2, 1),
				edge(30, 3, 1),
				edge(10, 1, 3),
			},
			want: map[int64]float64{1: 50, 2: -30, 3: -20},
		},
		{
			name: "settled members omitted",
			edges: []models.DebtEdge{
				edge(10, 2, 1),
				edge(10.004, 1, 2),
			},
			want: map[int64]float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateBalances(tt.edges)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d balances, want %d: %v", len(got), len(tt.want), got)
			}
			for id, want := range tt.want {
				if math.Abs(got[id]-want) > Epsilon {
					t.Errorf("member %d balance = %v, want %v", id, got[id], want)
				}
			}
		})
	}
}

// Balances within a group always sum to zero: each edge adds and subtracts
// the same amount.
func TestAggregateBalancesConservation(t *testing.T) {
	edgeSets := [][]models.DebtEdge{
		{edge(30, 2, 1), edge(30, 3, 1)},
		{edge(12.33, 1, 2), edge(7.67, 2, 3), edge(99.99, 3, 1)},
		{edge(0.01, 1, 2)},
	}

	for _, edges := range edgeSets {
		var sum float64
		for _, balance := range AggregateBalances(edges) {
			sum += balance
		}
		if math.Abs(sum) > Epsilon {
			t.Errorf("balances sum to %v for edges %+v", sum, edges)
		}
	}
}

func TestRoundToTwo(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{10.005, 10.01},
		{10.004, 10.0},
		{-10.005, -10.01},
		{0.009, 0.01},
		{33.333333, 33.33},
	}
	for _, tt := range tests {
		if got := RoundToTwo(tt.in); got != tt.want {
			t.Errorf("RoundToTwo(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
