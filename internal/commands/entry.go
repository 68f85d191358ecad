package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/balkashynov/wroklog/internal/apperr"
	"github.com/balkashynov/wroklog/internal/document"
	"github.com/balkashynov/wroklog/internal/parser"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Write and review daily log entries",
}

var entryWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Publish the log entry for a day",
	Long: `Publish the log entry for a day, creating it or adding a new version.
Content is either plain text (--text, paragraphs separated by blank lines) or
a rich-text JSON document (--file, "-" for stdin).

Examples:
  wroklog entry write --text "Shipped the importer"
  wroklog entry write --date yesterday --title "Planning" --file notes.json`,
	Args: cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		day, err := dayFlag(cmd, a)
		if err != nil {
			return err
		}

		raw, err := entryContent(cmd)
		if err != nil {
			return err
		}
		req := document.SaveRequest{OwnerID: owner, LogDate: day, Content: raw}
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			req.Title = &title
		}
		if active, err := a.sessions.GetActive(cmd.Context(), owner); err == nil && active != nil && active.StartDay == day {
			req.SessionID = &active.ID
		}

		existing, err := a.documents.GetByDate(cmd.Context(), owner, day)
		switch {
		case err == nil:
			req.DocumentID = existing.Document.ID
		case !errors.Is(err, apperr.ErrDocumentMissing):
			return err
		}

		doc, err := a.documents.Publish(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Printf("📝 Saved entry for %s (version %d)\n", doc.LogDate, doc.CurrentVersion)
		return nil
	}),
}

var entryShowCmd = &cobra.Command{
	Use:   "show [day]",
	Short: "Print the log entry for a day",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		day, err := dayArg(args, a)
		if err != nil {
			return err
		}
		view, err := a.documents.GetByDate(cmd.Context(), owner, day)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			fmt.Println(string(view.Content))
			return nil
		}
		doc, err := a.parser.Parse(view.Content)
		if err != nil {
			return err
		}
		title := view.Document.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Printf("%s · %s (version %d)\n\n", view.Document.LogDate, title, view.Document.CurrentVersion)
		fmt.Print(doc.Text())
		for _, u := range doc.MediaURLs() {
			fmt.Printf("📎 %s\n", u)
		}
		return nil
	}),
}

var entryListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List log entries",
	Args:    cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		result, err := a.documents.List(cmd.Context(), owner, document.ListParams{Page: page, PerPage: limit})
		if err != nil {
			return err
		}
		if len(result.Documents) == 0 {
			fmt.Println("No entries yet. Use 'wroklog entry write' to add one.")
			return nil
		}
		rows := make([][]string, 0, len(result.Documents))
		for _, d := range result.Documents {
			rows = append(rows, []string{d.LogDate, d.Title, strconv.Itoa(d.CurrentVersion), d.UpdatedAt.Local().Format("2006-01-02 15:04")})
		}
		fmt.Println(renderTable([]string{"Day", "Title", "Version", "Updated"}, rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
		fmt.Printf("Page %d, %d of %d entries\n", result.Page, len(result.Documents), result.Total)
		return nil
	}),
}

var entryHistoryCmd = &cobra.Command{
	Use:   "history [day]",
	Short: "List the saved versions of an entry",
	Args:  cobra.MaximumNArgs(1),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		day, err := dayArg(args, a)
		if err != nil {
			return err
		}
		view, err := a.documents.GetByDate(cmd.Context(), owner, day)
		if err != nil {
			return err
		}
		infos, err := a.documents.ListVersions(cmd.Context(), owner, view.Document.ID)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(infos))
		for _, v := range infos {
			rows = append(rows, []string{strconv.Itoa(v.VersionNumber), v.CreatedAt.Local().Format("2006-01-02 15:04:05"), v.ContentDigest[:12]})
		}
		fmt.Println(renderTable([]string{"Version", "Saved", "Digest"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft}))
		return nil
	}),
}

var entryRestoreCmd = &cobra.Command{
	Use:   "restore <day> <version>",
	Short: "Publish an earlier version of an entry as the newest one",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(cmd *cobra.Command, a *app, args []string) error {
		owner, err := currentUser()
		if err != nil {
			return err
		}
		day, err := dayArg(args[:1], a)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid version %q", args[1])
		}
		view, err := a.documents.GetByDate(cmd.Context(), owner, day)
		if err != nil {
			return err
		}
		doc, err := a.documents.Restore(cmd.Context(), owner, view.Document.ID, n)
		if err != nil {
			return err
		}
		fmt.Printf("↩️  Restored version %d of %s as version %d\n", n, day, doc.CurrentVersion)
		return nil
	}),
}

func init() {
	entryWriteCmd.Flags().StringP("date", "d", "", "Day of the entry (default today)")
	entryWriteCmd.Flags().StringP("title", "t", "", "Entry title")
	entryWriteCmd.Flags().String("text", "", "Plain text content")
	entryWriteCmd.Flags().StringP("file", "f", "", "Rich-text JSON document, or - for stdin")
	entryWriteCmd.MarkFlagsMutuallyExclusive("text", "file")
	entryWriteCmd.MarkFlagsOneRequired("text", "file")

	entryShowCmd.Flags().Bool("json", false, "Print the stored JSON document")

	entryListCmd.Flags().Int("page", 1, "Page number")
	entryListCmd.Flags().IntP("limit", "n", 20, "Entries per page")

	entryCmd.AddCommand(entryWriteCmd)
	entryCmd.AddCommand(entryShowCmd)
	entryCmd.AddCommand(entryListCmd)
	entryCmd.AddCommand(entryHistoryCmd)
	entryCmd.AddCommand(entryRestoreCmd)
}

func dayFlag(cmd *cobra.Command, a *app) (string, error) {
	raw, _ := cmd.Flags().GetString("date")
	return parser.ParseDay(raw, a.sessions.Now(), time.UTC)
}

func dayArg(args []string, a *app) (string, error) {
	raw := ""
	if len(args) > 0 {
		raw = args[0]
	}
	return parser.ParseDay(raw, a.sessions.Now(), time.UTC)
}

func entryContent(cmd *cobra.Command) (json.RawMessage, error) {
	if cmd.Flags().Changed("text") {
		text, _ := cmd.Flags().GetString("text")
		return plainDocument(text)
	}
	path, _ := cmd.Flags().GetString("file")
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return io.ReadAll(r)
}

type docNode struct {
	Type    string     `json:"type"`
	Content []textNode `json:"content"`
}

type textNode struct {
	Type    string     `json:"type"`
	Text    string     `json:"text,omitempty"`
	Content []textNode `json:"content,omitempty"`
}

// plainDocument wraps text in a rich-text document, one paragraph per
// blank-line separated block.
func plainDocument(text string) (json.RawMessage, error) {
	root := docNode{Type: "doc", Content: []textNode{}}
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		root.Content = append(root.Content, textNode{Type: "paragraph", Content: []textNode{{Type: "text", Text: block}}})
	}
	return json.Marshal(root)
}
