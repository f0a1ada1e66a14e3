// Package model содержит доменные сущности магазина и админ-панели.
package model

import "time"

// Customer представляет зарегистрированного покупателя.
type Customer struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash []byte
	RegisteredAt *time.Time
	Blocked      bool
}

// FullName возвращает имя и фамилию через пробел, отсутствующие части пропускаются.
func (c Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// OrderStatus описывает этап жизненного цикла заказа.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusPacked    OrderStatus = "packed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethod описывает способ оплаты заказа.
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentCard           PaymentMethod = "card"
	PaymentGateway        PaymentMethod = "gateway"
)

// PaymentStatus описывает состояние оплаты через платёжный шлюз.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// LineItem описывает одну позицию заказа.
type LineItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// CustomerRef описывает связанную с заказом запись покупателя, если она ещё существует.
type CustomerRef struct {
	ID    string
	Email string
}

// Order описывает заказ. Принадлежность покупателю задаётся несколькими
// независимыми полями: заказы гостей не имеют CustomerID, а связанная
// запись может быть удалена.
type Order struct {
	ID            string
	CustomerID    string
	ContactEmail  string
	Customer      *CustomerRef
	Items         []LineItem
	TotalPrice    *float64
	Status        OrderStatus
	CreatedAt     string
	CancelledAt   *time.Time
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Address       string
}

// LinkKind различает способ привязки заказа к покупателю.
type LinkKind uint8

const (
	LinkByID LinkKind = iota + 1
	LinkByEmail
)

// CustomerLink описывает одну привязку заказа к покупателю: по идентификатору либо по e-mail.
type CustomerLink struct {
	Kind  LinkKind
	Value string
}

// Links перечисляет все привязки заказа: контактный e-mail, сохранённый
// идентификатор владельца и идентификатор и e-mail связанной записи.
func (o Order) Links() []CustomerLink {
	links := make([]CustomerLink, 0, 4)
	if o.ContactEmail != "" {
		links = append(links, CustomerLink{Kind: LinkByEmail, Value: o.ContactEmail})
	}
	if o.CustomerID != "" {
		links = append(links, CustomerLink{Kind: LinkByID, Value: o.CustomerID})
	}
	if o.Customer != nil {
		if o.Customer.ID != "" {
			links = append(links, CustomerLink{Kind: LinkByID, Value: o.Customer.ID})
		}
		if o.Customer.Email != "" {
			links = append(links, CustomerLink{Kind: LinkByEmail, Value: o.Customer.Email})
		}
	}
	return links
}

// Total возвращает сумму заказа, отсутствующая сумма считается нулём.
func (o Order) Total() float64 {
	if o.TotalPrice == nil {
		return 0
	}
	return *o.TotalPrice
}

// CustomerStats содержит вычисляемую статистику покупателя.
type CustomerStats struct {
	TotalOrders     int        `json:"totalOrders"`
	TotalSpent      float64    `json:"totalSpent"`
	CompletedOrders int        `json:"completedOrders"`
	LastOrderDate   *time.Time `json:"lastOrderDate"`
}

// TierLabel задаёт название сегмента покупателя.
type TierLabel string

const (
	TierNew     TierLabel = "New"
	TierRegular TierLabel = "Regular"
	TierPremium TierLabel = "Premium"
	TierVIP     TierLabel = "VIP"
)

// CustomerTier содержит сегмент покупателя и цвет для отображения.
type CustomerTier struct {
	Label TierLabel `json:"label"`
	Color string    `json:"color"`
}

// TierThresholds задаёт пороги сегментации покупателей.
type TierThresholds struct {
	VIPSpend       float64 `yaml:"vip_spend"`
	PremiumSpend   float64 `yaml:"premium_spend"`
	RegularSpend   float64 `yaml:"regular_spend"`
	RegularOrders  int     `yaml:"regular_orders"`
	RegularAgeDays int     `yaml:"regular_age_days"`
}

// DefaultTierThresholds возвращает стандартные пороги сегментации.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{
		VIPSpend:       100000,
		PremiumSpend:   50000,
		RegularSpend:   10000,
		RegularOrders:  3,
		RegularAgeDays: 7,
	}
}

// CustomerInsight объединяет покупателя, его статистику и сегмент.
type CustomerInsight struct {
	Customer Customer
	Stats    CustomerStats
	Tier     CustomerTier
}

// Dashboard содержит агрегаты для главной страницы админ-панели.
type Dashboard struct {
	TotalRevenue     float64             `json:"totalRevenue"`
	TotalOrders      int                 `json:"totalOrders"`
	OrdersByStatus   map[OrderStatus]int `json:"ordersByStatus"`
	TotalCustomers   int                 `json:"totalCustomers"`
	CustomersByTier  map[TierLabel]int   `json:"customersByTier"`
	BlockedCustomers int                 `json:"blockedCustomers"`
	RecentOrders     []Order             `json:"-"`
}
