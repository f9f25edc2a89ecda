package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yshiraki/fixboard/internal/config"
	"github.com/yshiraki/fixboard/internal/fixboard/attach"
	"github.com/yshiraki/fixboard/internal/fixboard/controller"
	"github.com/yshiraki/fixboard/internal/fixboard/engine"
	"github.com/yshiraki/fixboard/internal/fixboard/export"
	"github.com/yshiraki/fixboard/internal/fixboard/issue"
	"github.com/yshiraki/fixboard/internal/fixboard/session"
	"github.com/yshiraki/fixboard/internal/fixboard/store"
	"github.com/yshiraki/fixboard/internal/fixboard/ui"
)

var configOptions config.Options

func main() {
	rootCmd := &cobra.Command{
		Use:   "fixboard",
		Short: "Terminal client for the shared issue dashboard",
		Long: `fixboard is a password-gated client for a small shared issue list.
It lists, filters, sorts and paginates the board, creates and edits
records, changes statuses inline, and exports the current view to CSV.`,
	}

	configOptions.AddPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newBrowseCmd(),
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newEditCmd(),
		newStatusCmd(),
		newDeleteCmd(),
		newExportCmd(),
		newLoginCmd(),
		newLogoutCmd(),
	)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

func loadGate(cfg *config.Config) (*session.Gate, error) {
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine data directory: %w", err)
	}
	return session.NewGate(dataDir, cfg.Password), nil
}

// createController builds the authenticated controller every data command
// starts from, with the base collection already loaded.
func createController(ctx context.Context) (*controller.Controller, *config.Config, error) {
	cfg, err := configOptions.Load()
	if err != nil {
		return nil, nil, err
	}

	gate, err := loadGate(cfg)
	if err != nil {
		return nil, nil, err
	}
	if !gate.Authenticated(time.Now()) {
		return nil, nil, fmt.Errorf("not logged in (or the session expired); run 'fixboard login' first")
	}

	ctrl := controller.New(store.New(cfg.BackendURL, cfg.AnonKey), cfg.PageSize)
	if err := ctrl.Reload(ctx); err != nil {
		return nil, nil, err
	}
	return ctrl, cfg, nil
}

// resolveID maps a displayed row number back to the record id. Row
// numbers are positions within the full collection in backend order.
func resolveID(ctrl *controller.Controller, arg string) (string, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil {
		return "", fmt.Errorf("%q is not a row number", arg)
	}
	collection := ctrl.Collection()
	if n < 1 || n > len(collection) {
		return "", fmt.Errorf("no row #%d (the board has %d records)", n, len(collection))
	}
	return collection[n-1].ID, nil
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, _, err := createController(cmd.Context())
			if err != nil {
				return err
			}

			program := tea.NewProgram(ui.NewModel(ctrl), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("cannot run TUI: %w", err)
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var (
		statusFilter string
		search       string
		sortBy       string
		order        string
		page         int
		showStats    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print a page of the board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, cfg, err := createController(cmd.Context())
			if err != nil {
				return err
			}

			sortField, err := engine.ParseField(sortBy)
			if err != nil {
				return err
			}
			sortOrder, err := engine.ParseOrder(order)
			if err != nil {
				return err
			}

			query := engine.Query{
				Search:   search,
				SortBy:   sortField,
				Order:    sortOrder,
				Page:     page,
				PageSize: cfg.PageSize,
			}
			if statusFilter != "" {
				status, err := issue.ParseStatus(statusFilter)
				if err != nil {
					return err
				}
				query.Status = status
			}

			result := engine.Apply(ctrl.Collection(), query)

			if showStats {
				stats := ctrl.Stats()
				fmt.Printf("全 %d", len(ctrl.Collection()))
				for _, status := range issue.Statuses() {
					fmt.Printf("  %s %d", status, stats[status])
				}
				fmt.Println()
				fmt.Println()
			}

			if len(result.Items) == 0 {
				fmt.Println("No records match")
				return nil
			}

			now := time.Now()
			tabw := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(tabw, "#\tステータス\t優先度\tタイトル\tカテゴリ\t担当者\t期限\t登録日")
			for _, record := range result.Items {
				due := issue.FormatDueDate(record.DueDate)
				if record.IsOverdue(now) {
					due += " !"
				}
				_, _ = fmt.Fprintf(tabw, "#%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					engine.RowNumber(ctrl.Collection(), record.ID),
					record.Status, record.Priority,
					issue.Truncate(record.Title, 48),
					record.Category, record.Assignee, due,
					issue.FormatTimestamp(record.CreatedAt))
			}
			if err := tabw.Flush(); err != nil {
				return err
			}

			fmt.Printf("\nPage %d/%d (%d records)\n", result.Number, result.TotalPages, result.Filtered)
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show records with this status")
	cmd.Flags().StringVar(&search, "search", "", "Substring match on title and description")
	cmd.Flags().StringVar(&sortBy, "sort", string(engine.FieldCreatedAt), "Sort field: status, priority, title, category, assignee, due_date, created_at")
	cmd.Flags().StringVar(&order, "order", string(engine.Descending), "Sort order: asc or desc")
	cmd.Flags().IntVar(&page, "page", 1, "Page to print")
	cmd.Flags().BoolVar(&showStats, "stats", false, "Print per-status counts first")

	return cmd
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <row>",
		Short: "Show one record in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := createController(cmd.Context())
			if err != nil {
				return err
			}

			id, err := resolveID(ctrl, args[0])
			if err != nil {
				return err
			}
			record, err := ctrl.Detail(cmd.Context(), id)
			if err != nil {
				return err
			}

			printDetail(ctrl, *record)
			return nil
		},
	}
}

func printDetail(ctrl *controller.Controller, record issue.Issue) {
	fmt.Printf("Issue #%d\n\n", engine.RowNumber(ctrl.Collection(), record.ID))
	row := func(label, value string) {
		if value != "" {
			fmt.Printf("%-14s %s\n", label, value)
		}
	}
	row("タイトル", record.Title)
	row("ステータス", string(record.Status))
	row("優先度", string(record.Priority))
	row("カテゴリ", record.Category)
	row("担当者", record.Assignee)
	row("対象ページURL", record.PageURL)
	if record.DueDate != nil {
		due := record.DueDate.Display()
		if record.IsOverdue(time.Now()) {
			due += " (overdue)"
		}
		row("期限", due)
	}
	row("詳細説明", record.Description)
	if record.Screenshot != "" {
		row("画面キャプチャ", fmt.Sprintf("attached (%.2f MB encoded)", float64(len(record.Screenshot))/(1024*1024)))
	}
	row("登録日時", record.CreatedAt.Format("2006-01-02 15:04:05"))
}

// draftFlags are the form fields shared by add and edit.
type draftFlags struct {
	title       string
	description string
	status      string
	priority    string
	category    string
	assignee    string
	pageURL     string
	dueDate     string
	screenshot  string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Issue title (required on add)")
	cmd.Flags().StringVar(&f.description, "description", "", "Longer description")
	cmd.Flags().StringVar(&f.status, "status", "", "Status (未対応, 対応中, 確認待ち, 完了, 保留)")
	cmd.Flags().StringVar(&f.priority, "priority", "", "Priority (高, 中, 低)")
	cmd.Flags().StringVar(&f.category, "category", "", "Category, e.g. デザイン")
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "Assignee")
	cmd.Flags().StringVar(&f.pageURL, "page-url", "", "URL of the affected page")
	cmd.Flags().StringVar(&f.dueDate, "due-date", "", "Due date as YYYY-MM-DD; pass 'none' to clear")
	cmd.Flags().StringVar(&f.screenshot, "screenshot", "", "Path to a screenshot image to attach")
}

// apply overlays the set flags onto a draft, starting either from the
// form defaults (add) or from the freshly fetched record (edit).
func (f *draftFlags) apply(cmd *cobra.Command, draft *issue.Draft) error {
	if cmd.Flags().Changed("title") {
		draft.Title = f.title
	}
	if cmd.Flags().Changed("description") {
		draft.Description = f.description
	}
	if cmd.Flags().Changed("category") {
		draft.Category = f.category
	}
	if cmd.Flags().Changed("assignee") {
		draft.Assignee = f.assignee
	}
	if cmd.Flags().Changed("page-url") {
		draft.PageURL = f.pageURL
	}
	if cmd.Flags().Changed("status") {
		status, err := issue.ParseStatus(f.status)
		if err != nil {
			return err
		}
		draft.Status = status
	}
	if cmd.Flags().Changed("priority") {
		priority, err := issue.ParsePriority(f.priority)
		if err != nil {
			return err
		}
		draft.Priority = priority
	}
	if cmd.Flags().Changed("due-date") {
		if f.dueDate == "none" {
			draft.DueDate = nil
		} else {
			date, err := issue.ParseDate(f.dueDate)
			if err != nil {
				return err
			}
			draft.DueDate = &date
		}
	}
	if cmd.Flags().Changed("screenshot") {
		uri, err := attach.DataURI(f.screenshot)
		if err != nil {
			return err
		}
		draft.Screenshot = uri
	}
	return nil
}

func newAddCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, _, err := createController(cmd.Context())
			if err != nil {
				return err
			}

			draft := issue.Draft{
				Status:   issue.StatusOpen,
				Priority: issue.PriorityMedium,
			}
			if err := flags.apply(cmd, &draft); err != nil {
				return err
			}

			notice, err := ctrl.Submit(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Println(notice.Text)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newEditCmd() *cobra.Command {
	var flags draftFlags

	cmd := &cobra.Command{
		Use:   "edit <row>",
		Short: "Edit a record, resubmitting the full form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := createController(cmd.Context())
			if err != nil {
				return err
			}

			id, err := resolveID(ctrl, args[0])
			if err != nil {
				return err
			}

			record, err := ctrl.BeginEdit(cmd.Context(), id)
			if err != nil {
				return err
			}

			draft := issue.Draft{
				Title:       record.Title,
				Description: record.Description,
				Status:      record.Status,
				Priority:    record.Priority,
				Category:    record.Category,
				Assignee:    record.Assignee,
				PageURL:     record.PageURL,
				DueDate:     record.DueDate,
				Screenshot:  record.Screenshot,
			}
			if err := flags.apply(cmd, &draft); err != nil {
				ctrl.EndEdit()
				return err
			}

			notice, err := ctrl.Submit(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Println(notice.Text)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <row> <status>",
		Short: "Change a record's status inline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := createController(cmd.Context())
			if err != nil {
				return err
			}

			id, err := resolveID(ctrl, args[0])
			if err != nil {
				return err
			}
			status, err := issue.ParseStatus(args[1])
			if err != nil {
				return err
			}

			notice, err := ctrl.ChangeStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			fmt.Println(notice.Text)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <row>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, err := createController(cmd.Context())
			if err != nil {
				return err
			}

			id, err := resolveID(ctrl, args[0])
			if err != nil {
				return err
			}

			if !yes {
				fmt.Printf("Delete row %s? [y/N]: ", args[0])
				answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					fmt.Println("aborted")
					return nil
				}
			}

			notice, err := ctrl.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Println(notice.Text)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		output       string
		statusFilter string
		search       string
		sortBy       string
		order        string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered view to CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctrl, _, err := createController(cmd.Context())
			if err != nil {
				return err
			}

			var status issue.Status
			if statusFilter != "" {
				status, err = issue.ParseStatus(statusFilter)
				if err != nil {
					return err
				}
			}
			sortField, err := engine.ParseField(sortBy)
			if err != nil {
				return err
			}
			sortOrder, err := engine.ParseOrder(order)
			if err != nil {
				return err
			}

			view := engine.Filter(ctrl.Collection(), status, search)
			engine.Sort(view, sortField, sortOrder)

			if output == "" {
				output = export.Filename(time.Now())
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("cannot create export file: %w", err)
			}
			defer file.Close()

			count, err := export.WriteCSV(file, ctrl.Collection(), view)
			if err != nil {
				return err
			}
			fmt.Printf("exported %d records to %s\n", count, output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: timestamped name in the working directory)")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only export records with this status")
	cmd.Flags().StringVar(&search, "search", "", "Substring match on title and description")
	cmd.Flags().StringVar(&sortBy, "sort", string(engine.FieldCreatedAt), "Sort field")
	cmd.Flags().StringVar(&order, "order", string(engine.Descending), "Sort order: asc or desc")

	return cmd
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Unlock the dashboard for 24 hours",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := configOptions.Load()
			if err != nil {
				return err
			}
			gate, err := loadGate(cfg)
			if err != nil {
				return err
			}

			fmt.Print("Password: ")
			entered, _ := bufio.NewReader(os.Stdin).ReadString('\n')

			if err := gate.Login(strings.TrimSpace(entered)); err != nil {
				if errors.Is(err, session.ErrBadPassword) {
					return fmt.Errorf("password is not correct")
				}
				return err
			}
			fmt.Println("logged in; the session is valid for 24 hours")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the current session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			// Logging out never needs the backend configuration.
			dataDir, err := config.DataDir()
			if err != nil {
				return fmt.Errorf("cannot determine data directory: %w", err)
			}
			if err := session.NewGate(dataDir, "").Logout(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}
