package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mmeshcher/storefront-admin/internal/model"
	"github.com/mmeshcher/storefront-admin/internal/repository"
)

// CategoryInput содержит данные категории из формы админ-панели.
type CategoryInput struct {
	Slug        string
	Name        string
	Description string
}

// Slugify приводит название к slug: строчные буквы и цифры, остальные символы
// схлопываются в один дефис.
func Slugify(name string) string {
	lower := cases.Lower(language.Und).String(strings.TrimSpace(name))

	var b strings.Builder
	dash := false
	for _, r := range lower {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ListCategories возвращает категории каталога.
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory добавляет категорию. Пустой slug строится из названия.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrInvalidInput)
	}

	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = Slugify(name)
	}
	if slug == "" || Slugify(slug) != slug {
		return nil, fmt.Errorf("%w: slug", ErrInvalidInput)
	}

	now := s.now().UTC()
	c := model.Category{
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCategory меняет название и описание категории. Slug не меняется.
func (s *Service) UpdateCategory(ctx context.Context, slug string, in CategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrInvalidInput)
	}

	c, err := s.repo.GetCategory(ctx, slug)
	if err != nil {
		return nil, err
	}
	c.Name = name
	c.Description = strings.TrimSpace(in.Description)
	c.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateCategory(ctx, *c); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteCategory удаляет категорию без товаров.
func (s *Service) DeleteCategory(ctx context.Context, slug string) error {
	return s.repo.DeleteCategory(ctx, slug)
}

// checkCategory проверяет, что товар ссылается на существующую категорию.
func (s *Service) checkCategory(ctx context.Context, slug string) error {
	if slug == "" {
		return nil
	}
	if _, err := s.repo.GetCategory(ctx, slug); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, slug)
		}
		return err
	}
	return nil
}
