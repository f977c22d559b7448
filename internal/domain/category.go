package domain

import "time"

// CategoryType represents the classification every transaction must match
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category is the descriptor the category oracle returns for a (category, user) pair.
// The type of a category never changes after creation.
type Category struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"userId"`
	Name      string       `json:"name"`
	Type      CategoryType `json:"type"`
	Icon      *string      `json:"icon"`
	Color     *string      `json:"color"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Accepts reports whether a transaction of type t may reference this category
func (c *Category) Accepts(t TransactionType) bool {
	return string(c.Type) == string(t)
}

// StarterCategories returns the categories a fresh account is seeded with
func StarterCategories(userID int64) []Category {
	starter := []struct {
		name, icon, color string
		t                 CategoryType
	}{
		{"Salary", "briefcase", "#2E7D32", CategoryTypeIncome},
		{"Bonus", "gift", "#66BB6A", CategoryTypeIncome},
		{"Food", "utensils", "#E53935", CategoryTypeExpense},
		{"Transport", "bus", "#FB8C00", CategoryTypeExpense},
		{"Utilities", "bolt", "#8E24AA", CategoryTypeExpense},
	}

	out := make([]Category, 0, len(starter))
	for _, s := range starter {
		icon, color := s.icon, s.color
		out = append(out, Category{UserID: userID, Name: s.name, Type: s.t, Icon: &icon, Color: &color})
	}
	return out
}
