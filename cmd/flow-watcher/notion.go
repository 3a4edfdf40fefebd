// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/thibo73800/flow-watcher/internal/export"
	"github.com/thibo73800/flow-watcher/internal/notion"
)

var notionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Read, write and create Notion pages",
	Long: `Notion converts between Notion pages and Markdown. read renders a page
(including toggles and child pages) as Markdown; write appends Markdown to a
page as blocks, one block per line; create adds a database entry.`,
}

var notionReadCmd = &cobra.Command{
	Use:   "read [page-id]",
	Short: "Render a page as Markdown",
	Long: `Read walks the page's blocks and prints Markdown. With --out the page
is written to a file with a frontmatter header; --html converts the result to
HTML and --pretty renders it for the terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNotionRead,
}

var notionWriteCmd = &cobra.Command{
	Use:   "write [page-id]",
	Short: "Append a Markdown file to a page",
	Long: `Write classifies each line of a Markdown file into a block and appends
the blocks to the page. When no page ID is given, the page_id of the file's
frontmatter is used, then notion.page_id.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNotionWrite,
}

var notionEntryCmd = &cobra.Command{
	Use:   "entry <page-id>",
	Short: "Show a page or database entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotionEntry,
}

var notionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a database entry",
	Long: `Create adds an entry titled --title to notion.database_id (or
--database). The body is read from --file, if given.`,
	Args: cobra.NoArgs,
	RunE: runNotionCreate,
}

func init() {
	notionReadCmd.Flags().Bool("save", false, "write the export to notion.export_dir")
	notionReadCmd.Flags().String("out", "", "write the export to this directory (implies --save)")
	notionReadCmd.Flags().Bool("html", false, "convert the Markdown to HTML")
	notionReadCmd.Flags().Bool("pretty", false, "render the Markdown for the terminal")
	notionReadCmd.Flags().Int("width", 100, "wrap width for --pretty")
	notionReadCmd.MarkFlagsMutuallyExclusive("html", "pretty")
	notionReadCmd.MarkFlagsMutuallyExclusive("pretty", "save")
	notionReadCmd.MarkFlagsMutuallyExclusive("pretty", "out")

	notionWriteCmd.Flags().String("file", "", "Markdown file to append (required)")
	_ = notionWriteCmd.MarkFlagRequired("file")

	notionEntryCmd.Flags().Bool("yaml", false, "print as YAML instead of JSON")

	notionCreateCmd.Flags().String("title", "", "entry title (required)")
	notionCreateCmd.Flags().String("file", "", "Markdown file used as the entry body")
	notionCreateCmd.Flags().String("database", "", "database ID (default from notion.database_id)")
	_ = notionCreateCmd.MarkFlagRequired("title")

	notionCmd.AddCommand(notionReadCmd, notionWriteCmd, notionEntryCmd, notionCreateCmd)
	rootCmd.AddCommand(notionCmd)
}

func pageArg(args []string, fallbacks ...string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	for _, id := range fallbacks {
		if id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("provide a page ID or set notion.page_id")
}

func runNotionRead(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, nil)
	pageID, err := pageArg(args, cfg.Notion.PageID)
	if err != nil {
		return err
	}
	client, err := notionClient(cmd, cfg)
	if err != nil {
		return err
	}

	res, err := notion.NewRenderer(client, log(cmd)).RenderPage(cmd.Context(), pageID)
	if err != nil {
		return err
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
	}

	asHTML, _ := cmd.Flags().GetBool("html")
	pretty, _ := cmd.Flags().GetBool("pretty")
	save, _ := cmd.Flags().GetBool("save")
	outDir, _ := cmd.Flags().GetString("out")
	if outDir != "" {
		save = true
	} else {
		outDir = cfg.Notion.ExportDir
	}

	body := res.Markdown
	switch {
	case pretty:
		width, _ := cmd.Flags().GetInt("width")
		body, err = export.Terminal(res.Markdown, width)
	case asHTML:
		body, err = export.HTML(res.Markdown)
	}
	if err != nil {
		return err
	}

	if !save {
		fmt.Print(body)
		if !strings.HasSuffix(body, "\n") {
			fmt.Println()
		}
		return nil
	}

	page, err := client.RetrievePage(cmd.Context(), pageID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	name := export.FileName(page.Title(), pageID)
	if asHTML {
		name = strings.TrimSuffix(name, ".md") + ".html"
	}
	path := filepath.Join(outDir, name)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	if asHTML || pretty {
		_, err = f.WriteString(body)
	} else {
		err = export.WriteMarkdown(f, export.Document{
			FrontMatter: export.FrontMatter{
				PageID:     pageID,
				Title:      page.Title(),
				URL:        page.URL,
				ExportedAt: time.Now().UTC(),
			},
			Markdown: res.Markdown,
		})
	}
	if err != nil {
		return err
	}
	fmt.Printf("Page exported to %s\n", path)
	return nil
}

func runNotionWrite(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, nil)
	path, _ := cmd.Flags().GetString("file")

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening markdown file: %w", err)
	}
	meta, body, err := export.ReadMarkdown(f)
	f.Close()
	if err != nil {
		return err
	}

	pageID, err := pageArg(args, meta.PageID, cfg.Notion.PageID)
	if err != nil {
		return err
	}
	client, err := notionClient(cmd, cfg)
	if err != nil {
		return err
	}
	// A final newline ends the last line; it does not start an empty one.
	created, err := client.WriteMarkdown(cmd.Context(), pageID, strings.TrimSuffix(body, "\n"))
	if err != nil {
		return err
	}
	fmt.Printf("Appended %d block(s) to page %s\n", len(created), pageID)
	return nil
}

// entryView is the YAML shape of `notion entry`.
type entryView struct {
	notion.Page `yaml:",inline"`
	Title       string `yaml:"title"`
}

func runNotionEntry(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, nil)
	client, err := notionClient(cmd, cfg)
	if err != nil {
		return err
	}
	page, err := client.RetrievePage(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		data, err := yaml.Marshal(entryView{Page: *page, Title: page.Title()})
		if err != nil {
			return fmt.Errorf("marshaling entry: %w", err)
		}
		fmt.Print(string(data))
		return nil
	}
	data, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func runNotionCreate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd, map[string]string{"notion.database_id": "database"})
	if cfg.Notion.DatabaseID == "" {
		return fmt.Errorf("provide --database or set notion.database_id")
	}
	title, _ := cmd.Flags().GetString("title")

	var children []notion.BlockDescriptor
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening markdown file: %w", err)
		}
		_, body, err := export.ReadMarkdown(f)
		f.Close()
		if err != nil {
			return err
		}
		children = notion.ParseMarkup(strings.TrimSuffix(body, "\n"))
	}

	client, err := notionClient(cmd, cfg)
	if err != nil {
		return err
	}
	page, err := client.CreatePage(cmd.Context(), cfg.Notion.DatabaseID, title, children)
	if err != nil {
		return err
	}
	fmt.Printf("Created entry %s\n%s\n", page.ID, page.URL)
	return nil
}
