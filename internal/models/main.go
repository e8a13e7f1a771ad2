// Package models defines the couple document aggregate, its item types and
// the pure business rules applied to them.
package models

// CoupleDocument is the single JSON aggregate holding all data for one couple.
type CoupleDocument struct {
	// ID is the opaque couple identifier; it partitions both stores.
	ID string `json:"id,omitempty"`
	// Couple is the profile of both partners and their shared dates.
	Couple Couple `json:"couple"`

	Tasks          []Task         `json:"tasks"`
	TaskCategories []TaskCategory `json:"taskCategories"`
	Budget         Budget         `json:"budget"`
	Notes          []Note         `json:"notes"`
	Goals          []Goal         `json:"goals"`
	Events         []Event        `json:"events"`
	Wishlist       []WishlistItem `json:"wishlist"`
	Memories       []Memory       `json:"memories"`
	ShoppingLists  []ShoppingList `json:"shoppingLists"`
	LoveNotes      []LoveNote     `json:"loveNotes"`
	Habits         []Habit        `json:"habits"`
	DateIdeas      []DateIdea     `json:"dateIdeas"`
	// MealPlan is free-form, keyed by day.
	MealPlan map[string]any `json:"mealPlan"`

	Settings Settings `json:"settings"`

	CreatedAt Timestamp `json:"createdAt"`
	// UpdatedAt is the only field compared when merging remote changes.
	UpdatedAt Timestamp `json:"updatedAt"`
}

// Couple holds both partner profiles and the relationship dates.
type Couple struct {
	Partner1          Partner `json:"partner1"`
	Partner2          Partner `json:"partner2"`
	Anniversary       string  `json:"anniversary"`
	WeddingDate       string  `json:"weddingDate"`
	RelationshipStart string  `json:"relationshipStart"`
	CouplePhoto       string  `json:"couplePhoto,omitempty"`
}

// Partner is one half of the couple.
type Partner struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Birthday string `json:"birthday"`
	Color    string `json:"color"`
	Photo    string `json:"photo,omitempty"`
}

// PartnerKey selects one of the two partners.
type PartnerKey string

const (
	// Partner1Key addresses Couple.Partner1.
	Partner1Key PartnerKey = "partner1"
	// Partner2Key addresses Couple.Partner2.
	Partner2Key PartnerKey = "partner2"
)

// Valid reports whether k names one of the two partners.
func (k PartnerKey) Valid() bool {
	return k == Partner1Key || k == Partner2Key
}

// Partner returns the profile addressed by key.
func (c Couple) Partner(key PartnerKey) Partner {
	if key == Partner2Key {
		return c.Partner2
	}
	return c.Partner1
}

// WithPartner returns a copy of c with the profile addressed by key replaced.
func (c Couple) WithPartner(key PartnerKey, p Partner) Couple {
	if key == Partner2Key {
		c.Partner2 = p
	} else {
		c.Partner1 = p
	}
	return c
}

// Names returns both display names.
func (c Couple) Names() (string, string) {
	return c.Partner1.Name, c.Partner2.Name
}

// Clone returns a deep copy of d. Nested slices and maps are never shared
// with the original.
func (d CoupleDocument) Clone() CoupleDocument {
	out := d

	out.Tasks = cloneEach(d.Tasks, func(t Task) Task {
		t.Subtasks = cloneSlice(t.Subtasks)
		return t
	})
	out.TaskCategories = cloneSlice(d.TaskCategories)
	out.Budget = d.Budget.clone()
	out.Notes = cloneEach(d.Notes, func(n Note) Note {
		n.Tags = cloneSlice(n.Tags)
		return n
	})
	out.Goals = cloneEach(d.Goals, func(g Goal) Goal {
		g.Contributions = cloneSlice(g.Contributions)
		return g
	})
	out.Events = cloneSlice(d.Events)
	out.Wishlist = cloneSlice(d.Wishlist)
	out.Memories = cloneEach(d.Memories, func(m Memory) Memory {
		m.Photos = cloneSlice(m.Photos)
		m.Tags = cloneSlice(m.Tags)
		return m
	})
	out.ShoppingLists = cloneEach(d.ShoppingLists, func(l ShoppingList) ShoppingList {
		l.Items = cloneSlice(l.Items)
		return l
	})
	out.LoveNotes = cloneSlice(d.LoveNotes)
	out.Habits = cloneEach(d.Habits, func(h Habit) Habit {
		h.Completions = cloneMap(h.Completions)
		return h
	})
	out.DateIdeas = cloneEach(d.DateIdeas, func(di DateIdea) DateIdea {
		if di.Rating != nil {
			r := *di.Rating
			di.Rating = &r
		}
		return di
	})
	out.MealPlan = cloneMap(d.MealPlan)

	return out
}

// Normalize replaces nil collections with empty ones so that every document
// encodes the same shape regardless of its origin.
func (d *CoupleDocument) Normalize() {
	if d.Tasks == nil {
		d.Tasks = []Task{}
	}
	if d.TaskCategories == nil {
		d.TaskCategories = []TaskCategory{}
	}
	d.Budget.normalize()
	if d.Notes == nil {
		d.Notes = []Note{}
	}
	if d.Goals == nil {
		d.Goals = []Goal{}
	}
	if d.Events == nil {
		d.Events = []Event{}
	}
	if d.Wishlist == nil {
		d.Wishlist = []WishlistItem{}
	}
	if d.Memories == nil {
		d.Memories = []Memory{}
	}
	if d.ShoppingLists == nil {
		d.ShoppingLists = []ShoppingList{}
	}
	if d.LoveNotes == nil {
		d.LoveNotes = []LoveNote{}
	}
	if d.Habits == nil {
		d.Habits = []Habit{}
	}
	if d.DateIdeas == nil {
		d.DateIdeas = []DateIdea{}
	}
	if d.MealPlan == nil {
		d.MealPlan = map[string]any{}
	}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneEach[T any](in []T, fn func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
