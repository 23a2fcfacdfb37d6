// Package chatbot routes free text to canned health guidance using literal
// substring rules.
package chatbot

import (
	"fmt"
	"math/rand"
	"strings"
)

// Picker chooses an index in [0, n). Tests pass a FixedPicker.
type Picker interface {
	IntN(n int) int
}

type randomPicker struct{}

// IntN uses the process-wide generator, which is safe for concurrent use.
func (randomPicker) IntN(n int) int { return rand.Intn(n) }

// RandomPicker picks uniformly at random.
func RandomPicker() Picker { return randomPicker{} }

// FixedPicker always picks the same index, clamped to the pool size.
type FixedPicker int

func (p FixedPicker) IntN(n int) int {
	if int(p) >= n {
		return n - 1
	}
	if p < 0 {
		return 0
	}
	return int(p)
}

// ClassifiedReply is the outcome of one classification.
type ClassifiedReply struct {
	Category string `json:"category"`
	Reply    string `json:"reply"`
}

// Normalize lowercases and trims input before matching.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

type Classifier struct {
	catalog   *Catalog
	emergency Category
	picker    Picker
}

func NewClassifier(catalog *Catalog, picker Picker) (*Classifier, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	if picker == nil {
		picker = RandomPicker()
	}
	c := &Classifier{catalog: catalog, picker: picker}
	for _, cat := range catalog.Categories {
		if cat.Name == CategoryEmergency {
			c.emergency = cat
		}
	}
	return c, nil
}

// MustNewClassifier is NewClassifier for catalogs known to be valid.
func MustNewClassifier(catalog *Catalog, picker Picker) *Classifier {
	c, err := NewClassifier(catalog, picker)
	if err != nil {
		panic(fmt.Sprintf("chatbot: %v", err))
	}
	return c
}

func (c *Classifier) pick(pool []string) string {
	return pool[c.picker.IntN(len(pool))]
}

// Classify never fails: unmatched or empty input gets a default reply.
func (c *Classifier) Classify(text string) ClassifiedReply {
	input := Normalize(text)
	if input == "" {
		return ClassifiedReply{Category: CategoryDefault, Reply: c.pick(c.catalog.DefaultReplies)}
	}

	for _, kw := range c.catalog.EmergencyKeywords {
		if strings.Contains(input, kw) {
			return ClassifiedReply{Category: CategoryEmergency, Reply: c.pick(c.emergency.Replies)}
		}
	}

	for _, cat := range c.catalog.Categories {
		for _, pattern := range cat.Patterns {
			if strings.Contains(input, pattern) {
				return ClassifiedReply{Category: cat.Name, Reply: c.pick(cat.Replies)}
			}
		}
	}

	return ClassifiedReply{Category: CategoryDefault, Reply: c.pick(c.catalog.DefaultReplies)}
}

// Replies returns the reply pool for a category name, or nil.
func (c *Classifier) Replies(category string) []string {
	if category == CategoryDefault {
		return c.catalog.DefaultReplies
	}
	for _, cat := range c.catalog.Categories {
		if cat.Name == category {
			return cat.Replies
		}
	}
	return nil
}

// Tip returns a random health tip.
func (c *Classifier) Tip() string {
	return c.pick(c.catalog.Tips)
}
