package insight

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

func TestSummarize(t *testing.T) {
	customers, orders := filterFixture()
	orders = append(orders,
		orderFor("o3", "regular", ptrFloat(1000), model.OrderStatusCancelled, "2024-06-03"),
		orderFor("o4", "", nil, model.OrderStatusPlaced, "broken"),
	)

	d := Summarize(customers, orders, DefaultRules(testNow))

	assert.Equal(t, 4, d.TotalOrders)
	assert.Equal(t, 4, d.TotalCustomers)
	assert.Equal(t, 1, d.BlockedCustomers)
	assert.InDelta(t, 210000, d.TotalRevenue, 1e-9)
	assert.Equal(t, map[model.OrderStatus]int{
		model.OrderStatusDelivered: 2,
		model.OrderStatusCancelled: 1,
		model.OrderStatusPlaced:    1,
	}, d.OrdersByStatus)
	assert.Equal(t, map[model.TierLabel]int{
		model.TierVIP:     1,
		model.TierPremium: 1,
		model.TierRegular: 1,
		model.TierNew:     1,
	}, d.CustomersByTier)

	if diff := cmp.Diff([]string{"o3", "o2", "o1", "o4"}, orderIDs(d.RecentOrders)); diff != "" {
		t.Fatalf("recent orders mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentOrders_Limit(t *testing.T) {
	orders := []model.Order{
		orderFor("old", "", nil, model.OrderStatusPlaced, "2023-01-01"),
		orderFor("new", "", nil, model.OrderStatusPlaced, "2024-01-01"),
		orderFor("mid", "", nil, model.OrderStatusPlaced, "2023-06-01"),
	}

	assert.Equal(t, []string{"new", "mid"}, orderIDs(RecentOrders(orders, 2)))
	assert.Empty(t, RecentOrders(orders, -1))
	assert.Empty(t, RecentOrders(nil, 5))
}
