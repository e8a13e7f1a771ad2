package models

// Task is a shared to-do item.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	AssignedTo  string    `json:"assignedTo,omitempty"` // partner1, partner2 or both
	Priority    string    `json:"priority,omitempty"`
	DueDate     string    `json:"dueDate,omitempty"`
	Completed   bool      `json:"completed"`
	Subtasks    []Subtask `json:"subtasks"`
}

// Subtask is a checklist entry inside a task.
type Subtask struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// TaskCategory groups tasks. Its ID is a slug, not a generated number.
type TaskCategory struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// Note is a free-text shared note.
type Note struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Author  string   `json:"author,omitempty"`
	Date    string   `json:"date"`
	Pinned  bool     `json:"pinned"`
	Tags    []string `json:"tags"`
}

// Goal is a measurable shared objective.
type Goal struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Target        float64        `json:"target"`
	Current       float64        `json:"current"`
	Category      string         `json:"category,omitempty"`
	Icon          string         `json:"icon,omitempty"`
	Color         string         `json:"color,omitempty"`
	Deadline      string         `json:"deadline,omitempty"`
	Contributions []Contribution `json:"contributions"`
}

// Contribution records one signed progress delta applied to a goal.
type Contribution struct {
	ID     int64   `json:"id"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	Note   string  `json:"note"`
}

// Event is a calendar entry.
type Event struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time,omitempty"`
	Location string `json:"location,omitempty"`
	Type     string `json:"type,omitempty"`
	Color    string `json:"color,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// WishlistItem is something one of the partners would like to get.
type WishlistItem struct {
	ID        int64   `json:"id"`
	Item      string  `json:"item"`
	Price     float64 `json:"price"`
	Priority  string  `json:"priority,omitempty"`
	Category  string  `json:"category,omitempty"`
	URL       string  `json:"url,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	AddedBy   string  `json:"addedBy,omitempty"`
	Purchased bool    `json:"purchased"`
}

// Memory is a dated shared memory.
type Memory struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Date        string   `json:"date"`
	Description string   `json:"description,omitempty"`
	Mood        string   `json:"mood,omitempty"`
	Photos      []string `json:"photos"`
	Tags        []string `json:"tags"`
}

// ShoppingList is a named list of shopping items.
type ShoppingList struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Items []ShoppingItem `json:"items"`
}

// ShoppingItem is one entry of a shopping list.
type ShoppingItem struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Checked  bool   `json:"checked"`
}

// LoveNote is a message from one partner to the other.
type LoveNote struct {
	ID      int64  `json:"id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
	Date    string `json:"date"`
	Read    bool   `json:"read"`
}

// Habit is a recurring shared activity with per-day completions.
type Habit struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Frequency   string          `json:"frequency,omitempty"`
	Icon        string          `json:"icon,omitempty"`
	Color       string          `json:"color,omitempty"`
	Streak      int             `json:"streak"`
	Completions map[string]bool `json:"completions"`
}

// DateIdea is a suggestion for a date, optionally rated once done.
type DateIdea struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category,omitempty"`
	Season      string `json:"season,omitempty"`
	Cost        string `json:"cost,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
	Done        bool   `json:"done"`
	Rating      *int   `json:"rating"`
	Notes       string `json:"notes,omitempty"`
}
