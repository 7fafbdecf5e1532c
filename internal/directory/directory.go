// Package directory is the contact list an appointment can be linked to.
package directory

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// ContactType classifies directory entries.
type ContactType string

const (
	ContactClient   ContactType = "client"
	ContactProspect ContactType = "prospect"
	ContactSupplier ContactType = "fournisseur"
	ContactPartner  ContactType = "partenaire"
)

func (c ContactType) Valid() bool {
	switch c {
	case ContactClient, ContactProspect, ContactSupplier, ContactPartner:
		return true
	}
	return false
}

type Contact struct {
	ID   string      `json:"id" yaml:"id"`
	Name string      `json:"name" yaml:"name"`
	Type ContactType `json:"type" yaml:"type"`
}

type Project struct {
	ID        string `json:"id" yaml:"id"`
	ContactID string `json:"contact_id" yaml:"contact_id"`
	Name      string `json:"name" yaml:"name"`
}

type Address struct {
	ID        string `json:"id" yaml:"id"`
	ContactID string `json:"contact_id" yaml:"contact_id"`
	Label     string `json:"label" yaml:"label"`
}

type Collaborator struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Directory is read by the appointment wizard.
type Directory interface {
	SearchContacts(t ContactType, query string) []Contact
	Contact(id string) (Contact, bool)
	Projects(contactID string) []Project
	Addresses(contactID string) []Address
	Collaborators() []Collaborator
}

// minSimilarity is the Jaro-Winkler score a name needs to match a query that
// is not a plain substring of it.
const minSimilarity = 0.82

// Memory is an in-memory Directory.
type Memory struct {
	ContactList      []Contact      `yaml:"contacts"`
	ProjectList      []Project      `yaml:"projects"`
	AddressList      []Address      `yaml:"addresses"`
	CollaboratorList []Collaborator `yaml:"collaborators"`
}

// SearchContacts returns contacts of type t matching query. Substring
// matches come first, then fuzzy matches by decreasing similarity. An empty
// query lists every contact of that type.
func (m *Memory) SearchContacts(t ContactType, query string) []Contact {
	q := strings.ToLower(strings.TrimSpace(query))

	type scored struct {
		c     Contact
		score float32
	}
	var hits []scored
	for _, c := range m.ContactList {
		if c.Type != t {
			continue
		}
		name := strings.ToLower(c.Name)
		switch {
		case q == "":
			hits = append(hits, scored{c, 1})
		case strings.Contains(name, q):
			hits = append(hits, scored{c, 2})
		default:
			if s := bestWordSimilarity(name, q); s >= minSimilarity {
				hits = append(hits, scored{c, s})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	out := make([]Contact, len(hits))
	for i, h := range hits {
		out[i] = h.c
	}
	return out
}

// bestWordSimilarity compares q with the whole name and with each word of
// it, so "dupond" still finds "Jean Dupont".
func bestWordSimilarity(name, q string) float32 {
	best, err := edlib.StringsSimilarity(name, q, edlib.JaroWinkler)
	if err != nil {
		best = 0
	}
	for _, w := range strings.Fields(name) {
		s, err := edlib.StringsSimilarity(w, q, edlib.JaroWinkler)
		if err == nil && s > best {
			best = s
		}
	}
	return best
}

func (m *Memory) Contact(id string) (Contact, bool) {
	for _, c := range m.ContactList {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

func (m *Memory) Projects(contactID string) []Project {
	var out []Project
	for _, p := range m.ProjectList {
		if p.ContactID == contactID {
			out = append(out, p)
		}
	}
	return out
}

func (m *Memory) Addresses(contactID string) []Address {
	var out []Address
	for _, a := range m.AddressList {
		if a.ContactID == contactID {
			out = append(out, a)
		}
	}
	return out
}

func (m *Memory) Collaborators() []Collaborator {
	out := make([]Collaborator, len(m.CollaboratorList))
	copy(out, m.CollaboratorList)
	return out
}
