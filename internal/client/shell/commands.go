package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/atinyakov/CoupleHQ/internal/models"
)

var errUsage = errors.New("usage")

func (s *Shell) register() map[string]command {
	return map[string]command{
		"status":   {"show sync status", s.status},
		"sync":     {"push the document now", s.sync},
		"recent":   {"list recently opened couples", s.recent},
		"whoami":   {"whoami [partner1|partner2] - show or switch the current partner", s.whoami},
		"tasks":    {"list tasks", s.listTasks},
		"task":     {"task add <title> | done <id> | rm <id> | sub <id> <title>", s.task},
		"notes":    {"list notes", s.listNotes},
		"note":     {"note add | pin <id> | rm <id>", s.note},
		"goals":    {"list goals", s.listGoals},
		"goal":     {"goal add | progress <id> <amount> [note] | rm <id>", s.goal},
		"budget":   {"show the budget", s.budget},
		"category": {"category add <name> <budget> | rm <id>", s.category},
		"expense":  {"expense add <category id> <amount> [description] | rm <id>", s.expense},
		"shop":     {"shop | shop add <name> | item <list> <name> | check <list> <item> | clear <list>", s.shop},
		"habit":    {"habit | habit add <title> | done <id> [YYYY-MM-DD]", s.habit},
		"love":     {"love <message> - send a love note to your partner", s.love},
		"wish":     {"wish | wish add <price> <title> | got <id> | rm <id>", s.wish},
		"memory":   {"memory | memory add <YYYY-MM-DD> <title> | tag <id> <tag> | rm <id>", s.memory},
		"event":    {"event | event add <YYYY-MM-DD> <title> | rm <id>", s.event},
		"idea":     {"idea | idea add <title> | rate <id> <1-5>", s.idea},
		"meal":     {"meal | meal <day> <dish> | meal clear <day>", s.meal},
		"settings": {"settings theme <light|dark> | lang <en|tr> | currency <code>", s.settings},
		"pin":      {"pin set | pin remove", s.pin},
		"export":   {"export <file>", s.export},
		"import":   {"import <file>", s.importFile},
		"reset":    {"delete all data except the profile and settings", s.reset},
	}
}

func (s *Shell) status(context.Context, []string) error {
	st := s.session.Status()
	fmt.Fprintf(s.out, "Couple:  %s\n", s.store.CoupleID())
	fmt.Fprintf(s.out, "State:   %s\n", s.session.State())
	fmt.Fprintf(s.out, "Online:  %t\n", st.Online)
	fmt.Fprintf(s.out, "Synced:  %t\n", st.Synced)
	if msg := s.session.Err(); msg != "" {
		fmt.Fprintf(s.out, "Error:   %s\n", msg)
	}
	return nil
}

func (s *Shell) sync(ctx context.Context, _ []string) error {
	if err := s.session.ForceSync(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Synced")
	return nil
}

func (s *Shell) recent(ctx context.Context, _ []string) error {
	if s.prefs == nil {
		return nil
	}
	list, err := s.prefs.RecentCouples(ctx)
	if err != nil {
		return err
	}
	for _, c := range list {
		fmt.Fprintf(s.out, "%s  %s & %s  (%s)\n", c.ID, c.Partner1, c.Partner2, c.LastAccessed.Format("2006-01-02 15:04"))
	}
	return nil
}

func (s *Shell) whoami(ctx context.Context, args []string) error {
	if len(args) == 1 && s.prefs != nil {
		if err := s.prefs.SetCurrentUser(ctx, models.PartnerKey(args[0])); err != nil {
			return err
		}
	}
	key := s.currentUser(ctx)
	fmt.Fprintf(s.out, "%s (%s)\n", s.store.Document().Couple.Partner(key).Name, key)
	return nil
}

func (s *Shell) listTasks(context.Context, []string) error {
	for _, t := range s.store.Document().Tasks {
		mark := " "
		if t.Completed {
			mark = "x"
		}
		fmt.Fprintf(s.out, "[%s] %d  %s\n", mark, t.ID, t.Title)
		for _, st := range t.Subtasks {
			sub := " "
			if st.Completed {
				sub = "x"
			}
			fmt.Fprintf(s.out, "      [%s] %d  %s\n", sub, st.ID, st.Title)
		}
	}
	return nil
}

func (s *Shell) task(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	switch args[0] {
	case "add":
		id, err := s.store.AddTask(ctx, models.Task{
			Title:      strings.Join(args[1:], " "),
			AssignedTo: "both",
			Priority:   "medium",
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Task %d added\n", id)
		return nil
	case "done":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.ToggleTask(ctx, id)
	case "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.DeleteTask(ctx, id)
	case "sub":
		if len(args) < 3 {
			return errUsage
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		_, err = s.store.AddSubtask(ctx, id, strings.Join(args[2:], " "))
		return err
	}
	return errUsage
}

func (s *Shell) listNotes(context.Context, []string) error {
	for _, n := range s.store.Document().Notes {
		pin := ""
		if n.Pinned {
			pin = " (pinned)"
		}
		fmt.Fprintf(s.out, "%d  %s  %s%s\n", n.ID, n.Date, n.Title, pin)
	}
	return nil
}

func (s *Shell) note(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if args[0] == "add" {
		title, ok := s.prompt.Line("Title: ")
		if !ok {
			return errUsage
		}
		content, _ := s.prompt.Line("Content: ")
		id, err := s.store.AddNote(ctx, models.Note{
			Title:   title,
			Content: content,
			Author:  string(s.currentUser(ctx)),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Note %d added\n", id)
		return nil
	}
	if len(args) < 2 {
		return errUsage
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	switch args[0] {
	case "pin":
		return s.store.TogglePinNote(ctx, id)
	case "rm":
		return s.store.DeleteNote(ctx, id)
	}
	return errUsage
}

func (s *Shell) listGoals(context.Context, []string) error {
	for _, g := range s.store.Document().Goals {
		fmt.Fprintf(s.out, "%d  %s  %.2f / %.2f\n", g.ID, g.Title, g.Current, g.Target)
	}
	return nil
}

func (s *Shell) goal(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "add":
		title, ok := s.prompt.Line("Title: ")
		if !ok {
			return errUsage
		}
		target, ok := s.prompt.Float("Target: ", 0)
		if !ok {
			return errUsage
		}
		id, err := s.store.AddGoal(ctx, models.Goal{Title: title, Target: target})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Goal %d added\n", id)
		return nil
	case "progress":
		if len(args) < 3 {
			return errUsage
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		amount, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return errUsage
		}
		return s.store.UpdateGoalProgress(ctx, id, amount, strings.Join(args[3:], " "))
	case "rm":
		if len(args) < 2 {
			return errUsage
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.DeleteGoal(ctx, id)
	}
	return errUsage
}

func (s *Shell) budget(context.Context, []string) error {
	b := s.store.Document().Budget
	fmt.Fprintf(s.out, "Total: %.2f %s  Spent: %.2f  Income: %.2f\n", b.Total, b.Currency, b.TotalSpent(), b.TotalIncome())
	for _, c := range b.Categories {
		fmt.Fprintf(s.out, "  %d  %-16s %.2f / %.2f\n", c.ID, c.Name, c.Spent, c.Budget)
	}
	for _, e := range b.Expenses {
		fmt.Fprintf(s.out, "    expense %d  cat %d  %.2f  %s\n", e.ID, e.CategoryID, e.Amount, e.Description)
	}
	return nil
}

func (s *Shell) category(ctx context.Context, args []string) error {
	switch {
	case len(args) >= 3 && args[0] == "add":
		amount, err := strconv.ParseFloat(args[len(args)-1], 64)
		if err != nil {
			return errUsage
		}
		name := strings.Join(args[1:len(args)-1], " ")
		_, err = s.store.AddCategory(ctx, models.BudgetCategory{Name: name, Budget: amount})
		return err
	case len(args) == 2 && args[0] == "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.DeleteCategory(ctx, id)
	}
	return errUsage
}

func (s *Shell) expense(ctx context.Context, args []string) error {
	switch {
	case len(args) >= 3 && args[0] == "add":
		cat, err := parseID(args[1])
		if err != nil {
			return err
		}
		amount, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return errUsage
		}
		_, err = s.store.AddExpense(ctx, models.Expense{
			CategoryID:  cat,
			Amount:      amount,
			Description: strings.Join(args[3:], " "),
			PaidBy:      string(s.currentUser(ctx)),
		})
		return err
	case len(args) == 2 && args[0] == "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.DeleteExpense(ctx, id)
	}
	return errUsage
}

func (s *Shell) shop(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, l := range s.store.Document().ShoppingLists {
			fmt.Fprintf(s.out, "%d  %s\n", l.ID, l.Name)
			for _, it := range l.Items {
				mark := " "
				if it.Checked {
					mark = "x"
				}
				fmt.Fprintf(s.out, "    [%s] %d  %s\n", mark, it.ID, it.Name)
			}
		}
		return nil
	}
	if len(args) < 2 {
		return errUsage
	}
	switch args[0] {
	case "add":
		_, err := s.store.AddShoppingList(ctx, strings.Join(args[1:], " "))
		return err
	case "item":
		if len(args) < 3 {
			return errUsage
		}
		list, err := parseID(args[1])
		if err != nil {
			return err
		}
		_, err = s.store.AddShoppingItem(ctx, list, models.ShoppingItem{Name: strings.Join(args[2:], " ")})
		return err
	case "check":
		if len(args) < 3 {
			return errUsage
		}
		list, err := parseID(args[1])
		if err != nil {
			return err
		}
		item, err := parseID(args[2])
		if err != nil {
			return err
		}
		return s.store.ToggleShoppingItem(ctx, list, item)
	case "clear":
		list, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.ClearCheckedItems(ctx, list)
	}
	return errUsage
}

func (s *Shell) habit(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, h := range s.store.Document().Habits {
			fmt.Fprintf(s.out, "%d  %s  streak %d\n", h.ID, h.Title, h.Streak)
		}
		return nil
	}
	if len(args) < 2 {
		return errUsage
	}
	switch args[0] {
	case "add":
		_, err := s.store.AddHabit(ctx, models.Habit{Title: strings.Join(args[1:], " "), Frequency: "daily"})
		return err
	case "done":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		date := models.DateKey(s.now())
		if len(args) > 2 {
			date = args[2]
		}
		return s.store.ToggleHabitCompletion(ctx, id, date)
	}
	return errUsage
}

func (s *Shell) love(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	from := s.currentUser(ctx)
	to := models.Partner2Key
	if from == models.Partner2Key {
		to = models.Partner1Key
	}
	_, err := s.store.AddLoveNote(ctx, models.LoveNote{
		From:    string(from),
		To:      string(to),
		Message: strings.Join(args, " "),
	})
	return err
}

func (s *Shell) wish(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, w := range s.store.Document().Wishlist {
			mark := " "
			if w.Purchased {
				mark = "x"
			}
			fmt.Fprintf(s.out, "[%s] %d  %s  %.2f\n", mark, w.ID, w.Item, w.Price)
		}
		return nil
	}
	switch {
	case len(args) >= 3 && args[0] == "add":
		price, err := strconv.ParseFloat(args[1], 64)
		if err != nil || price < 0 {
			return errUsage
		}
		_, err = s.store.AddWishlistItem(ctx, models.WishlistItem{
			Item:    strings.Join(args[2:], " "),
			Price:   price,
			AddedBy: string(s.currentUser(ctx)),
		})
		return err
	case len(args) == 2 && args[0] == "got":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.ToggleWishlistPurchased(ctx, id)
	case len(args) == 2 && args[0] == "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.DeleteWishlistItem(ctx, id)
	}
	return errUsage
}

func (s *Shell) memory(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, m := range s.store.Document().Memories {
			fmt.Fprintf(s.out, "%d  %s  %s", m.ID, m.Date, m.Title)
			if len(m.Tags) > 0 {
				fmt.Fprintf(s.out, "  #%s", strings.Join(m.Tags, " #"))
			}
			fmt.Fprintln(s.out)
		}
		return nil
	}
	switch {
	case len(args) >= 3 && args[0] == "add":
		if _, err := time.Parse(time.DateOnly, args[1]); err != nil {
			return errUsage
		}
		_, err := s.store.AddMemory(ctx, models.Memory{Date: args[1], Title: strings.Join(args[2:], " ")})
		return err
	case len(args) == 3 && args[0] == "tag":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		tag := args[2]
		return s.store.UpdateMemory(ctx, id, func(m *models.Memory) {
			if !slices.Contains(m.Tags, tag) {
				m.Tags = append(slices.Clone(m.Tags), tag)
			}
		})
	case len(args) == 2 && args[0] == "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.DeleteMemory(ctx, id)
	}
	return errUsage
}

func (s *Shell) event(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, e := range s.store.Document().Events {
			fmt.Fprintf(s.out, "%d  %s  %s\n", e.ID, e.Date, e.Title)
		}
		return nil
	}
	switch {
	case len(args) >= 3 && args[0] == "add":
		if _, err := time.Parse(time.DateOnly, args[1]); err != nil {
			return errUsage
		}
		_, err := s.store.AddEvent(ctx, models.Event{Date: args[1], Title: strings.Join(args[2:], " ")})
		return err
	case len(args) == 2 && args[0] == "rm":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		return s.store.DeleteEvent(ctx, id)
	}
	return errUsage
}

func (s *Shell) idea(ctx context.Context, args []string) error {
	if len(args) == 0 {
		for _, d := range s.store.Document().DateIdeas {
			rating := "-"
			if d.Rating != nil {
				rating = strconv.Itoa(*d.Rating)
			}
			fmt.Fprintf(s.out, "%d  %s  done=%t rating=%s\n", d.ID, d.Title, d.Done, rating)
		}
		return nil
	}
	switch {
	case len(args) >= 2 && args[0] == "add":
		_, err := s.store.AddDateIdea(ctx, models.DateIdea{Title: strings.Join(args[1:], " ")})
		return err
	case len(args) == 3 && args[0] == "rate":
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		rating, err := strconv.Atoi(args[2])
		if err != nil || rating < 1 || rating > 5 {
			return errUsage
		}
		return s.store.RateDateIdea(ctx, id, rating)
	}
	return errUsage
}

func (s *Shell) meal(ctx context.Context, args []string) error {
	switch {
	case len(args) == 0:
		plan := s.store.Document().MealPlan
		days := make([]string, 0, len(plan))
		for day := range plan {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, day := range days {
			fmt.Fprintf(s.out, "%-10s %v\n", day, plan[day])
		}
		return nil
	case len(args) == 2 && args[0] == "clear":
		return s.store.ClearMeal(ctx, args[1])
	case len(args) >= 2:
		return s.store.SetMeal(ctx, args[0], strings.Join(args[1:], " "))
	}
	return errUsage
}

func (s *Shell) settings(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	value := args[1]
	var edit func(*models.Settings)
	switch args[0] {
	case "theme":
		if value != models.ThemeLight && value != models.ThemeDark {
			return errUsage
		}
		edit = func(st *models.Settings) { st.Theme = value }
	case "lang":
		if value != models.LanguageEnglish && value != models.LanguageTurkish {
			return errUsage
		}
		edit = func(st *models.Settings) { st.Language = value }
	case "currency":
		edit = func(st *models.Settings) { st.Currency = strings.ToUpper(value) }
	default:
		return errUsage
	}
	return s.store.UpdateSettings(ctx, edit)
}

func (s *Shell) pin(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	current := ""
	protected := s.store.Document().Settings.PINSet()
	if protected {
		var ok bool
		if current, ok = s.prompt.Line("Current PIN: "); !ok {
			return errUsage
		}
	}
	switch args[0] {
	case "set":
		pin, ok := s.prompt.Line("New PIN: ")
		if !ok || pin == "" {
			return errUsage
		}
		confirm, ok := s.prompt.Line("Repeat PIN: ")
		if !ok || confirm != pin {
			return errors.New("PINs do not match")
		}
		return s.store.SetPIN(ctx, current, pin)
	case "remove":
		if !protected {
			return errors.New("no PIN is set")
		}
		return s.store.RemovePIN(ctx, current)
	}
	return errUsage
}

func (s *Shell) export(_ context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	data, err := s.store.Export()
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Fprintf(s.out, "Exported to %s\n", args[0])
	return nil
}

func (s *Shell) importFile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	if !s.store.Import(ctx, data) {
		return errors.New("import failed: the file is not a valid backup")
	}
	fmt.Fprintln(s.out, "Imported")
	return nil
}

func (s *Shell) reset(ctx context.Context, _ []string) error {
	answer, ok := s.prompt.Line("Type 'yes' to delete all data: ")
	if !ok || answer != "yes" {
		fmt.Fprintln(s.out, "Cancelled")
		return nil
	}
	return s.store.ResetAll(ctx)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errUsage
	}
	return id, nil
}
