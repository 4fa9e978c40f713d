package database

import (
	"sort"
	"strings"

	"github.com/camden-git/peoplegraph/models"
	"github.com/facette/natsort"
)

const (
	SortCreatedAsc  = "created_asc"
	SortCreatedDesc = "created_desc"
	SortNameAsc     = "name_asc"
	SortNameNat     = "name_nat"
)

const DefaultSortOrder = SortCreatedAsc

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortCreatedAsc, SortCreatedDesc, SortNameAsc, SortNameNat:
		return true
	default:
		return false
	}
}

// SortPeople orders people in place. Ties fall back to id so output is
// reproducible.
func SortPeople(people []models.Person, order string) {
	var less func(a, b *models.Person) bool
	switch order {
	case SortCreatedDesc:
		less = func(a, b *models.Person) bool { return a.CreatedAt > b.CreatedAt }
	case SortNameAsc:
		less = func(a, b *models.Person) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortNameNat:
		less = func(a, b *models.Person) bool {
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			return an != bn && natsort.Compare(an, bn)
		}
	default:
		less = func(a, b *models.Person) bool { return a.CreatedAt < b.CreatedAt }
	}
	sort.SliceStable(people, func(i, j int) bool {
		a, b := &people[i], &people[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.ID < b.ID
	})
}
