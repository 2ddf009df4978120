package model

import (
	"fmt"
	"strings"
)

// Category is one of the fixed report scopes.
type Category string

const (
	CategoryCode       Category = "code"
	CategoryContainer  Category = "container"
	CategoryAWS        Category = "aws"
	CategoryKubernetes Category = "kubernetes"
	CategoryAll        Category = "all"
)

// Categories lists the valid report scopes in display order.
var Categories = []Category{
	CategoryCode,
	CategoryContainer,
	CategoryAWS,
	CategoryKubernetes,
	CategoryAll,
}

// ParseCategory matches s exactly (case-sensitive) against the known categories.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Upper returns the form stored in the findings "type" column (e.g. "AWS").
func (c Category) Upper() string {
	return strings.ToUpper(string(c))
}

func (c Category) String() string {
	return string(c)
}

// AllowedCategories renders the category set for user-facing messages.
func AllowedCategories() string {
	names := make([]string, 0, len(Categories))
	for _, c := range Categories {
		names = append(names, string(c))
	}
	return fmt.Sprintf("{%s}", strings.Join(names, ", "))
}
