// Package insight вычисляет статистику и сегменты покупателей по коллекции заказов.
//
// Все функции пакета чистые: они не кэшируют результат и пересчитывают его
// по переданным коллекциям при каждом вызове.
package insight

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/mmeshcher/storefront-admin/internal/model"
)

var tierColors = map[model.TierLabel]string{
	model.TierVIP:     "purple",
	model.TierPremium: "gold",
	model.TierRegular: "blue",
	model.TierNew:     "green",
}

// timestampLayouts перечисляет форматы, в которых встречается дата создания заказа.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Rules задаёт параметры сегментации: пороги и момент времени для расчёта возраста аккаунта.
type Rules struct {
	Thresholds model.TierThresholds
	Now        time.Time
}

// DefaultRules возвращает стандартные пороги на указанный момент времени.
func DefaultRules(now time.Time) Rules {
	return Rules{Thresholds: model.DefaultTierThresholds(), Now: now}
}

// ParseTimestamp разбирает дату создания заказа. Второе значение false,
// если строка пуста или не соответствует ни одному из известных форматов.
func ParseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OrdersForCustomer возвращает заказы, привязанные к покупателю хотя бы одним
// способом: по контактному e-mail, по сохранённому идентификатору владельца,
// по идентификатору или e-mail связанной записи. E-mail сравнивается без учёта регистра.
func OrdersForCustomer(c model.Customer, orders []model.Order) []model.Order {
	email := foldString(c.Email)

	var matched []model.Order
	for _, o := range orders {
		if belongsTo(o, c.ID, email) {
			matched = append(matched, o)
		}
	}
	return matched
}

func belongsTo(o model.Order, customerID, foldedEmail string) bool {
	for _, link := range o.Links() {
		switch link.Kind {
		case model.LinkByID:
			if customerID != "" && link.Value == customerID {
				return true
			}
		case model.LinkByEmail:
			if foldedEmail != "" && foldString(link.Value) == foldedEmail {
				return true
			}
		}
	}
	return false
}

// StatsForCustomer считает статистику по заказам покупателя.
func StatsForCustomer(c model.Customer, orders []model.Order) model.CustomerStats {
	return statsOf(OrdersForCustomer(c, orders))
}

func statsOf(matched []model.Order) model.CustomerStats {
	stats := model.CustomerStats{TotalOrders: len(matched)}

	for _, o := range matched {
		stats.TotalSpent += o.Total()

		if strings.EqualFold(string(o.Status), string(model.OrderStatusDelivered)) {
			stats.CompletedOrders++
		}

		created, ok := ParseTimestamp(o.CreatedAt)
		if !ok {
			continue
		}
		if stats.LastOrderDate == nil || created.After(*stats.LastOrderDate) {
			t := created
			stats.LastOrderDate = &t
		}
	}

	return stats
}

// TierForCustomer определяет сегмент покупателя.
func TierForCustomer(c model.Customer, orders []model.Order, rules Rules) model.CustomerTier {
	return Classify(StatsForCustomer(c, orders), AccountAgeDays(c, rules.Now), rules.Thresholds)
}

// Classify применяет правила сегментации строго по порядку: первое
// сработавшее правило определяет сегмент.
func Classify(stats model.CustomerStats, accountAgeDays int, th model.TierThresholds) model.CustomerTier {
	var label model.TierLabel
	switch {
	case stats.TotalSpent > th.VIPSpend:
		label = model.TierVIP
	case stats.TotalSpent > th.PremiumSpend:
		label = model.TierPremium
	case stats.TotalOrders >= th.RegularOrders ||
		stats.TotalSpent > th.RegularSpend ||
		accountAgeDays > th.RegularAgeDays:
		label = model.TierRegular
	default:
		label = model.TierNew
	}
	return model.CustomerTier{Label: label, Color: tierColors[label]}
}

// AccountAgeDays возвращает полное число суток с момента регистрации. Без даты регистрации возвращает 0.
func AccountAgeDays(c model.Customer, now time.Time) int {
	if c.RegisteredAt == nil {
		return 0
	}
	return int(math.Floor(now.Sub(*c.RegisteredAt).Hours() / 24))
}

// Insight собирает статистику и сегмент одного покупателя.
func Insight(c model.Customer, orders []model.Order, rules Rules) model.CustomerInsight {
	stats := StatsForCustomer(c, orders)
	return model.CustomerInsight{
		Customer: c,
		Stats:    stats,
		Tier:     Classify(stats, AccountAgeDays(c, rules.Now), rules.Thresholds),
	}
}

// Insights собирает статистику и сегменты для всех покупателей в исходном порядке.
func Insights(customers []model.Customer, orders []model.Order, rules Rules) []model.CustomerInsight {
	res := make([]model.CustomerInsight, 0, len(customers))
	for _, c := range customers {
		res = append(res, Insight(c, orders, rules))
	}
	return res
}

func foldString(s string) string {
	// cases.Caser хранит состояние и не должен разделяться между горутинами.
	return cases.Fold().String(s)
}
