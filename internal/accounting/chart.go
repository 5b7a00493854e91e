package accounting

import (
	"fmt"
	"sort"
)

// Chart is the account hierarchy held as an arena keyed by id. Parent links
// are ids, never pointers.
type Chart struct {
	nodes map[int64]Account
}

// NewChart indexes accounts by id. Unknown parents and cycles are rejected.
func NewChart(accounts []Account) (*Chart, error) {
	c := &Chart{nodes: make(map[int64]Account, len(accounts))}
	for _, acc := range accounts {
		c.nodes[acc.ID] = acc
	}
	for _, acc := range accounts {
		if acc.ParentID == nil {
			continue
		}
		if _, ok := c.nodes[*acc.ParentID]; !ok {
			return nil, &ValidationError{Field: "parentId", Reason: fmt.Sprintf("account %s references unknown parent %d", acc.Code, *acc.ParentID)}
		}
		if c.reaches(*acc.ParentID, acc.ID) {
			return nil, &ValidationError{Field: "parentId", Reason: fmt.Sprintf("account %s is part of a hierarchy cycle", acc.Code)}
		}
	}
	return c, nil
}

// Get returns the account with id.
func (c *Chart) Get(id int64) (Account, bool) {
	acc, ok := c.nodes[id]
	return acc, ok
}

// Children lists direct children ordered by code.
func (c *Chart) Children(id int64) []Account {
	var out []Account
	for _, acc := range c.nodes {
		if acc.ParentID != nil && *acc.ParentID == id {
			out = append(out, acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Ancestors walks parent links from id up to the root.
func (c *Chart) Ancestors(id int64) []Account {
	var out []Account
	seen := map[int64]bool{id: true}
	node, ok := c.nodes[id]
	for ok && node.ParentID != nil && !seen[*node.ParentID] {
		seen[*node.ParentID] = true
		node, ok = c.nodes[*node.ParentID]
		if ok {
			out = append(out, node)
		}
	}
	return out
}

// SetParent re-parents id. A nil parent makes the account a root. Making an
// account its own ancestor is rejected.
func (c *Chart) SetParent(id int64, parentID *int64) error {
	acc, ok := c.nodes[id]
	if !ok {
		return NotFound("account", id)
	}
	if parentID != nil {
		if _, ok := c.nodes[*parentID]; !ok {
			return NotFound("account", *parentID)
		}
		if *parentID == id || c.reaches(*parentID, id) {
			return &ValidationError{Field: "parentId", Reason: fmt.Sprintf("account %s cannot be nested under its own descendant", acc.Code)}
		}
		p := *parentID
		acc.ParentID = &p
	} else {
		acc.ParentID = nil
	}
	c.nodes[id] = acc
	return nil
}

// reaches reports whether target is on the ancestor path starting at from.
func (c *Chart) reaches(from, target int64) bool {
	seen := make(map[int64]bool)
	cur := from
	for {
		if cur == target {
			return true
		}
		if seen[cur] {
			return true
		}
		seen[cur] = true
		node, ok := c.nodes[cur]
		if !ok || node.ParentID == nil {
			return false
		}
		cur = *node.ParentID
	}
}
