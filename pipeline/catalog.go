// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/poiesic/datafinder/core"
	"gopkg.in/yaml.v3"
)

// Catalog is a read-only snapshot of domains, owners and tables.
// A nil or empty catalog is valid; domains and owners are then derived from
// the metadata of retrieved tables.
type Catalog struct {
	Domains []*core.Domain `yaml:"domains"`
	Owners  []*core.Owner  `yaml:"owners"`
	Tables  []*core.Table  `yaml:"tables"`

	domains map[string]*core.Domain
	owners  map[core.ID]*core.Owner
	tables  map[core.ID]*core.Table
}

// NewCatalog indexes the given entities. Owners and tables missing a domain
// or owner name inherit it from their domain or owner.
func NewCatalog(domains []*core.Domain, owners []*core.Owner, tables []*core.Table) (*Catalog, error) {
	c := &Catalog{Domains: domains, Owners: owners, Tables: tables}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadCatalog reads a YAML catalog file with domains, owners and tables lists.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	c.domains = make(map[string]*core.Domain, 2*len(c.Domains))
	c.owners = make(map[core.ID]*core.Owner, len(c.Owners))
	c.tables = make(map[core.ID]*core.Table, len(c.Tables))

	for _, d := range c.Domains {
		if d == nil || (d.Id == "" && d.Name == "") {
			return fmt.Errorf("%w: domain without id or name", core.ErrRecordInvalid)
		}
		if d.Id == "" {
			d.Id = d.Name
		}
		if d.Name == "" {
			d.Name = d.Id
		}
		c.domains[strings.ToLower(d.Id)] = d
		c.domains[strings.ToLower(d.Name)] = d
	}
	for _, o := range c.Owners {
		if o == nil || strings.TrimSpace(o.Name) == "" {
			return fmt.Errorf("%w: owner without name", core.ErrRecordInvalid)
		}
		if o.Id == 0 {
			o.Id = core.IDFromContent(o.Name)
		}
		if d := c.Domain(o.DomainId); d != nil && o.DomainName == "" {
			o.DomainName = d.Name
		}
		c.owners[o.Id] = o
	}
	for _, t := range c.Tables {
		if err := core.ValidateTable(t); err != nil {
			return err
		}
		if d := c.Domain(t.DomainId); d != nil && t.DomainName == "" {
			t.DomainName = d.Name
		}
		if o := c.owners[t.OwnerId]; o != nil && t.OwnerName == "" {
			t.OwnerName = o.Name
		}
		c.tables[t.Id] = t
	}
	return nil
}

// Domain returns the domain whose id or name equals key, ignoring case.
func (c *Catalog) Domain(key string) *core.Domain {
	if c == nil || key == "" {
		return nil
	}
	return c.domains[strings.ToLower(key)]
}

// Owner returns the owner with the given id.
func (c *Catalog) Owner(id core.ID) *core.Owner {
	if c == nil {
		return nil
	}
	return c.owners[id]
}

// Table returns the table with the given id.
func (c *Catalog) Table(id core.ID) *core.Table {
	if c == nil {
		return nil
	}
	return c.tables[id]
}

// DomainsList returns every domain in file order.
func (c *Catalog) DomainsList() []*core.Domain {
	if c == nil {
		return nil
	}
	return c.Domains
}

// OwnersOf returns the owners belonging to domain.
func (c *Catalog) OwnersOf(domain *core.Domain) []*core.Owner {
	if c == nil || domain == nil {
		return nil
	}
	var owners []*core.Owner
	for _, o := range c.Owners {
		if inDomain(o.DomainId, o.DomainName, domain) {
			owners = append(owners, o)
		}
	}
	return owners
}

// TablesOf returns the tables belonging to owner.
func (c *Catalog) TablesOf(owner *core.Owner) []*core.Table {
	if c == nil || owner == nil {
		return nil
	}
	var tables []*core.Table
	for _, t := range c.Tables {
		if ownedBy(t, owner) {
			tables = append(tables, t)
		}
	}
	return tables
}

// inDomain reports whether an entity with the given domain id and name
// belongs to domain.
func inDomain(domainID, domainName string, domain *core.Domain) bool {
	if domain == nil {
		return false
	}
	return (domainID != "" && strings.EqualFold(domainID, domain.Id)) ||
		(domainName != "" && strings.EqualFold(domainName, domain.Name))
}

func tableInDomain(t *core.Table, domain *core.Domain) bool {
	return inDomain(t.DomainId, t.DomainName, domain)
}

func ownedBy(t *core.Table, owner *core.Owner) bool {
	if owner == nil {
		return false
	}
	if t.OwnerId != 0 && t.OwnerId == owner.Id {
		return true
	}
	return t.OwnerName != "" && strings.EqualFold(t.OwnerName, owner.Name)
}
