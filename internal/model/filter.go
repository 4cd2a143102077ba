package model

import "time"

// AllOwners disables the owner filter.
const AllOwners = "All Owners"

type Filter struct {
	Owner     string     `json:"owner"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Search    string     `json:"search"`
}

// AnyOwner reports whether the filter accepts transactions of every owner.
func (f Filter) AnyOwner() bool {
	return f.Owner == "" || f.Owner == AllOwners
}
