// Package seed はYAMLのカタログ（商品・初期ユーザー）をDBに流し込む。
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"pcbuilder/internal/domain/model"
	"pcbuilder/internal/repository"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Products []ProductSeed `yaml:"products"`
	Users    []UserSeed    `yaml:"users"`
}

type ProductSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"category"`
	Price       int64  `yaml:"price"`
	Stock       int64  `yaml:"stock"`
	ImageURL    string `yaml:"image_url"`
}

type UserSeed struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 何件入れて何件飛ばしたか
type Result struct {
	ProductsCreated int
	ProductsSkipped int
	UsersCreated    int
	UsersSkipped    int
}

func LoadFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c Catalog) validate() error {
	for i, p := range c.Products {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("products[%d]: name required", i)
		}
		if _, ok := model.ParseCategory(p.Category); !ok {
			return fmt.Errorf("products[%d]: unknown category %q", i, p.Category)
		}
		if p.Price < 0 || p.Stock < 0 {
			return fmt.Errorf("products[%d]: price and stock must be >= 0", i)
		}
	}
	for i, u := range c.Users {
		if strings.TrimSpace(u.Email) == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: email and password required", i)
		}
		if u.Role != "" {
			if _, ok := model.ParseRole(u.Role); !ok {
				return fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
			}
		}
	}
	return nil
}

// Apply は既にある商品名・メールを飛ばして残りを作成する（何度流しても同じ結果）
func Apply(ctx context.Context, c Catalog, products repository.ProductRepository, users repository.UserRepository, hasher PasswordHasher) (Result, error) {
	var res Result

	existing, err := products.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("list products: %w", err)
	}
	names := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		names[strings.ToLower(strings.TrimSpace(p.Name))] = struct{}{}
	}

	for _, s := range c.Products {
		key := strings.ToLower(strings.TrimSpace(s.Name))
		if _, ok := names[key]; ok {
			res.ProductsSkipped++
			continue
		}
		cat, _ := model.ParseCategory(s.Category)
		if _, err := products.Create(ctx, model.Product{
			Name:        strings.TrimSpace(s.Name),
			Description: s.Description,
			Category:    cat,
			Price:       s.Price,
			Stock:       s.Stock,
			ImageURL:    s.ImageURL,
			IsActive:    true,
		}); err != nil {
			return res, fmt.Errorf("create product %q: %w", s.Name, err)
		}
		names[key] = struct{}{}
		res.ProductsCreated++
	}

	for _, s := range c.Users {
		email := strings.ToLower(strings.TrimSpace(s.Email))
		_, err := users.FindByEmail(ctx, email)
		if err == nil {
			res.UsersSkipped++
			continue
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return res, fmt.Errorf("find user %q: %w", email, err)
		}

		hash, err := hasher.Hash(s.Password)
		if err != nil {
			return res, fmt.Errorf("hash password: %w", err)
		}
		role := model.RoleUser
		if r, ok := model.ParseRole(s.Role); ok {
			role = r
		}
		if err := users.Create(ctx, &model.User{
			Email:        email,
			PasswordHash: hash,
			Role:         role,
			IsActive:     true,
		}); err != nil {
			return res, fmt.Errorf("create user %q: %w", email, err)
		}
		res.UsersCreated++
	}

	return res, nil
}
