package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagemem "github.com/Aaryan2304/ai-support-system/pkg/adapters/storage/memory"
	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

func seedOrder(t *testing.T, repo *storagemem.Repository, id string, status domain.OrderStatus) {
	t.Helper()
	require.NoError(t, repo.SaveOrder(context.Background(), &domain.Order{
		ID:         id,
		UserID:     "u1",
		Status:     status,
		Items:      []string{"widget"},
		TotalCents: 1999,
		TrackingID: "TRK-1",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}))
}

func TestGetOrderDetails(t *testing.T) {
	repo := storagemem.NewRepository()
	seedOrder(t, repo, "ORD-1", domain.OrderShipped)
	tool := NewGetOrderDetails(repo)

	out, err := tool.Execute(context.Background(), json.RawMessage(`{"order_id": "ORD-1"}`))
	require.NoError(t, err)

	var order domain.Order
	require.NoError(t, json.Unmarshal(out, &order))
	assert.Equal(t, domain.OrderShipped, order.Status)
	assert.Equal(t, "TRK-1", order.TrackingID)
}

func TestGetOrderDetailsNotFound(t *testing.T) {
	tool := NewGetOrderDetails(storagemem.NewRepository())

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"order_id": "ORD-404"}`))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindBusinessRule))
}

func TestCancelOrder(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.OrderStatus
		wantErr bool
	}{
		{"pending is cancellable", domain.OrderPending, false},
		{"processing is cancellable", domain.OrderProcessing, false},
		{"shipped is not cancellable", domain.OrderShipped, true},
		{"delivered is terminal", domain.OrderDelivered, true},
		{"cancelled is terminal", domain.OrderCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := storagemem.NewRepository()
			seedOrder(t, repo, "ORD-1", tt.status)
			tool := NewCancelOrder(repo)

			out, err := tool.Execute(context.Background(), json.RawMessage(`{"order_id": "ORD-1", "reason": "changed my mind"}`))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, domain.IsKind(err, domain.KindBusinessRule))

				// State is untouched on rejection.
				order, gerr := repo.GetOrder(context.Background(), "ORD-1")
				require.NoError(t, gerr)
				assert.Equal(t, tt.status, order.Status)
				return
			}

			require.NoError(t, err)
			var result cancelOrderResult
			require.NoError(t, json.Unmarshal(out, &result))
			assert.Equal(t, domain.OrderCancelled, result.Status)

			order, gerr := repo.GetOrder(context.Background(), "ORD-1")
			require.NoError(t, gerr)
			assert.Equal(t, domain.OrderCancelled, order.Status)
		})
	}
}
