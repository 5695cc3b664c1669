package annotation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCatalog means there is nothing to score against. It is a
	// configuration failure, distinct from "no match found".
	ErrEmptyCatalog = errors.New("annotation: knowledge-point catalog is empty")
	// ErrInvalidKnowledgePoint is wrapped with the offending entry.
	ErrInvalidKnowledgePoint = errors.New("annotation: invalid knowledge point")
)

// Entry is a catalog knowledge point with its keyword set compiled for
// matching. Entries are shared read-only across requests.
type Entry struct {
	KnowledgePoint
	phrases   []phrase
	maxWeight float64
	family    *ruleFamily
	nameLower string
}

type phrase struct {
	text     string
	display  string
	category string
	weight   float64
	boundary bool
}

// Catalog is an immutable snapshot of knowledge points.
type Catalog struct {
	entries []*Entry
	byID    map[string]*Entry
}

func NewCatalog(points []KnowledgePoint) (*Catalog, error) {
	if len(points) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		entries: make([]*Entry, 0, len(points)),
		byID:    make(map[string]*Entry, len(points)),
	}
	for i, kp := range points {
		kp.ID = strings.TrimSpace(kp.ID)
		kp.Name = strings.TrimSpace(kp.Name)
		if kp.ID == "" || kp.Name == "" {
			return nil, fmt.Errorf("%w: entry %d missing id or name", ErrInvalidKnowledgePoint, i)
		}
		if _, dup := c.byID[kp.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidKnowledgePoint, kp.ID)
		}
		e := compileEntry(cloneKnowledgePoint(kp))
		c.entries = append(c.entries, e)
		c.byID[kp.ID] = e
	}
	return c, nil
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func (c *Catalog) Get(id string) (KnowledgePoint, bool) {
	if c == nil {
		return KnowledgePoint{}, false
	}
	e, ok := c.byID[id]
	if !ok {
		return KnowledgePoint{}, false
	}
	return cloneKnowledgePoint(e.KnowledgePoint), true
}

// Points returns copies of the catalog entries in catalog order.
func (c *Catalog) Points() []KnowledgePoint {
	if c == nil {
		return nil
	}
	out := make([]KnowledgePoint, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, cloneKnowledgePoint(e.KnowledgePoint))
	}
	return out
}

func (c *Catalog) Entries() []*Entry {
	if c == nil {
		return nil
	}
	return c.entries
}

func compileEntry(kp KnowledgePoint) *Entry {
	e := &Entry{KnowledgePoint: kp, nameLower: lowerText(kp.Name)}
	seen := make(map[string]struct{})
	for _, group := range kp.Keywords {
		category := strings.ToLower(strings.TrimSpace(group.Category))
		for _, raw := range group.Phrases {
			display := strings.TrimSpace(raw)
			text := lowerText(strings.Join(strings.Fields(quoteFolder.Replace(display)), " "))
			if text == "" {
				continue
			}
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			w := phraseWeight(category, text)
			e.phrases = append(e.phrases, phrase{
				text:     text,
				display:  display,
				category: category,
				weight:   w,
				boundary: useWordBoundary(text),
			})
			e.maxWeight += w
		}
	}
	e.family = resolveFamily(kp.Pattern, e.nameLower)
	return e
}

func cloneKnowledgePoint(kp KnowledgePoint) KnowledgePoint {
	out := kp
	if kp.Keywords != nil {
		out.Keywords = make([]KeywordGroup, len(kp.Keywords))
		for i, g := range kp.Keywords {
			out.Keywords[i] = KeywordGroup{
				Category: g.Category,
				Phrases:  append([]string(nil), g.Phrases...),
			}
		}
	}
	if kp.GradeLevels != nil {
		out.GradeLevels = append([]string(nil), kp.GradeLevels...)
	}
	return out
}
