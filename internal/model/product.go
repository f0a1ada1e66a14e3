package model

import "time"

// Product описывает товар каталога. Category хранит slug категории, пустое
// значение означает товар без категории.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
	Stock       int
	ImageURL    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Category описывает раздел каталога. Slug неизменяем и служит ключом,
// по которому на категорию ссылаются товары и фильтр витрины.
type Category struct {
	Slug        string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
