package insight

import (
	"strings"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

// Значения фильтра статуса, не являющиеся названиями сегментов.
const (
	StatusActive  = "active"
	StatusBlocked = "blocked"
)

// TierAll снимает ограничение по сегменту.
const TierAll = "all"

// Filter описывает условия отбора покупателей в списке админ-панели.
type Filter struct {
	// Search ищется в имени и e-mail без учёта регистра и в телефоне как подстрока.
	Search string
	// Status: пусто, "active", "blocked" или название сегмента в нижнем регистре.
	Status string
	// Tier: пусто, "all", "vip", "premium", "regular" или "new".
	Tier string
}

// FilterCustomers возвращает покупателей, удовлетворяющих всем условиям
// фильтра, с сохранением исходного порядка.
func FilterCustomers(customers []model.Customer, orders []model.Order, f Filter, rules Rules) []model.Customer {
	res := make([]model.Customer, 0, len(customers))
	for _, in := range FilterInsights(Insights(customers, orders, rules), f) {
		res = append(res, in.Customer)
	}
	return res
}

// FilterInsights применяет фильтр к уже рассчитанным строкам списка покупателей.
func FilterInsights(insights []model.CustomerInsight, f Filter) []model.CustomerInsight {
	status := strings.TrimSpace(f.Status)
	tier := strings.TrimSpace(f.Tier)

	res := make([]model.CustomerInsight, 0, len(insights))
	for _, in := range insights {
		// Пробелы по краям значимы для подстроки, обрезка только определяет пустой поиск.
		if strings.TrimSpace(f.Search) != "" && !matchesSearch(in.Customer, f.Search) {
			continue
		}
		if status != "" && !matchesStatus(in, status) {
			continue
		}
		if tier != "" && !strings.EqualFold(tier, TierAll) && !strings.EqualFold(tier, string(in.Tier.Label)) {
			continue
		}
		res = append(res, in)
	}
	return res
}

func matchesSearch(c model.Customer, search string) bool {
	term := foldString(search)
	name := foldString(c.FirstName + " " + c.LastName)

	return strings.Contains(name, term) ||
		strings.Contains(foldString(c.Email), term) ||
		strings.Contains(c.Phone, search)
}

func matchesStatus(in model.CustomerInsight, status string) bool {
	switch strings.ToLower(status) {
	case StatusActive:
		return !in.Customer.Blocked
	case StatusBlocked:
		return in.Customer.Blocked
	default:
		return strings.EqualFold(status, string(in.Tier.Label))
	}
}
