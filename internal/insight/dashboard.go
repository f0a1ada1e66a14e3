package insight

import (
	"sort"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

// RecentOrdersLimit задаёт, сколько последних заказов показывается на главной странице.
const RecentOrdersLimit = 5

// Summarize считает агрегаты для главной страницы админ-панели.
// Выручка учитывает все заказы, кроме отменённых.
func Summarize(customers []model.Customer, orders []model.Order, rules Rules) model.Dashboard {
	d := model.Dashboard{
		TotalOrders:     len(orders),
		OrdersByStatus:  make(map[model.OrderStatus]int),
		TotalCustomers:  len(customers),
		CustomersByTier: make(map[model.TierLabel]int),
	}

	for _, o := range orders {
		d.OrdersByStatus[o.Status]++
		if o.Status != model.OrderStatusCancelled {
			d.TotalRevenue += o.Total()
		}
	}

	for _, in := range Insights(customers, orders, rules) {
		d.CustomersByTier[in.Tier.Label]++
		if in.Customer.Blocked {
			d.BlockedCustomers++
		}
	}

	d.RecentOrders = RecentOrders(orders, RecentOrdersLimit)

	return d
}

// RecentOrders возвращает до limit заказов, начиная с самых новых.
// Заказы с некорректной датой создания идут последними.
func RecentOrders(orders []model.Order, limit int) []model.Order {
	type dated struct {
		order model.Order
		at    int64
		valid bool
	}

	items := make([]dated, 0, len(orders))
	for _, o := range orders {
		t, ok := ParseTimestamp(o.CreatedAt)
		items = append(items, dated{order: o, at: t.UnixNano(), valid: ok})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].valid != items[j].valid {
			return items[i].valid
		}
		return items[i].at > items[j].at
	})

	limit = max(0, min(limit, len(items)))

	res := make([]model.Order, 0, limit)
	for _, it := range items[:limit] {
		res = append(res, it.order)
	}
	return res
}
