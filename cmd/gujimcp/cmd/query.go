package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/gujimcp/internal/library"
	"github.com/Aman-CERP/gujimcp/internal/output"
	"github.com/Aman-CERP/gujimcp/internal/themes"
)

// withLibrary loads the corpus and runs fn against it.
func withLibrary(ctx context.Context, fn func(*library.Library) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, cleanup := cliLogger()
	defer cleanup()

	_, lib, _, err := openLibrary(ctx, cfg, logger, nil, loadHooks{})
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()
	return fn(lib)
}

// flagInt returns a pointer to the flag value when the flag was set.
func flagInt(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func flagBool(cmd *cobra.Command, name string, v bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

type searchOptions struct {
	category   string
	dynasty    string
	author     string
	page       int
	limit      int
	sortBy     string
	sortOrder  string
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search the corpus",
		Long: `Search books and chapters for a keyword or phrase.

Results are ranked by relevance unless --sort is given. Filters match
exactly on the book's category, dynasty and author.`,
		Example: `  gujimcp search 学而
  gujimcp search 仁 --dynasty 春秋 --limit 5
  gujimcp search 王 --sort title --order asc --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keyword := strings.Join(args, " ")
			p := library.SearchParams{
				Keyword:   keyword,
				Category:  opts.category,
				Dynasty:   opts.dynasty,
				Author:    opts.author,
				Page:      flagInt(cmd, "page", opts.page),
				Limit:     flagInt(cmd, "limit", opts.limit),
				SortBy:    opts.sortBy,
				SortOrder: opts.sortOrder,
			}
			return withLibrary(cmd.Context(), func(lib *library.Library) error {
				resp, err := lib.Search(cmd.Context(), p)
				if err != nil {
					return err
				}
				out := output.New(cmd.OutOrStdout())
				if opts.jsonOutput {
					return out.JSON(resp)
				}
				out.SearchResults(keyword, resp)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.category, "category", "", "Filter by category (经部, 史部, 子部, 集部)")
	cmd.Flags().StringVar(&opts.dynasty, "dynasty", "", "Filter by dynasty")
	cmd.Flags().StringVar(&opts.author, "author", "", "Filter by author")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Results per page")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "Sort by: relevance, title, author, dynasty")
	cmd.Flags().StringVar(&opts.sortOrder, "order", "", "Sort order: asc, desc")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newBookCmd() *cobra.Command {
	var (
		noChapters bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "book <book-id>",
		Short: "Show a book's catalogue record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			include := !noChapters
			return withLibrary(cmd.Context(), func(lib *library.Library) error {
				info, err := lib.BookInfo(cmd.Context(), library.BookInfoParams{BookID: args[0], IncludeChapters: &include})
				if err != nil {
					return err
				}
				out := output.New(cmd.OutOrStdout())
				if jsonOutput {
					return out.JSON(info)
				}
				out.Book(info)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&noChapters, "no-chapters", false, "Omit the chapter list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newChapterCmd() *cobra.Command {
	var (
		annotations bool
		footnotes   bool
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "chapter <book-id> <chapter-id>",
		Short: "Print a chapter",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := library.ChapterParams{
				BookID:             args[0],
				ChapterID:          args[1],
				IncludeAnnotations: flagBool(cmd, "annotations", annotations),
				IncludeFootnotes:   flagBool(cmd, "footnotes", footnotes),
			}
			return withLibrary(cmd.Context(), func(lib *library.Library) error {
				ch, err := lib.ChapterContent(cmd.Context(), p)
				if err != nil {
					return err
				}
				out := output.New(cmd.OutOrStdout())
				if jsonOutput {
					return out.JSON(ch)
				}
				out.Chapter(ch)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&annotations, "annotations", true, "Include annotations")
	cmd.Flags().BoolVar(&footnotes, "footnotes", true, "Include footnotes")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newSnippetsCmd() *cobra.Command {
	var (
		maxSnippets   int
		contextLength int
		jsonOutput    bool
	)

	cmd := &cobra.Command{
		Use:   "snippets <book-id> [keyword]",
		Short: "Extract keyword snippets from a book",
		Long: `Extract windows of text around a keyword in one book. Without a keyword,
the opening of each chapter is returned.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := library.SnippetParams{
				BookID:        args[0],
				MaxSnippets:   flagInt(cmd, "max", maxSnippets),
				ContextLength: flagInt(cmd, "context", contextLength),
			}
			if len(args) == 2 {
				p.Keyword = args[1]
			}
			return withLibrary(cmd.Context(), func(lib *library.Library) error {
				resp, err := lib.Snippets(cmd.Context(), p)
				if err != nil {
					return err
				}
				out := output.New(cmd.OutOrStdout())
				if jsonOutput {
					return out.JSON(resp)
				}
				out.Snippets(resp)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&maxSnippets, "max", "n", 20, "Maximum snippets")
	cmd.Flags().IntVarP(&contextLength, "context", "c", 200, "Characters per snippet")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newThemesCmd() *cobra.Command {
	var (
		maxThemes  int
		file       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "themes [text]",
		Short: "List the most frequent terms of a text",
		Long: `Count the most frequent terms of a text given as an argument, read from
--file, or piped on stdin. The corpus is not loaded.`,
		Example: `  gujimcp themes 学而时习之，学而不思则罔
  gujimcp themes --file chapter.txt -n 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := themeInput(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			n, err := library.ThemeParams{Content: content, MaxThemes: flagInt(cmd, "max", maxThemes)}.
				Validate(library.LimitsFromConfig(cfg))
			if err != nil {
				return err
			}
			analyzer, err := themes.New()
			if err != nil {
				return err
			}
			found, err := analyzer.Analyze(content, n)
			if err != nil {
				return err
			}
			resp := &library.ThemesResponse{Themes: found, TotalThemes: len(found)}
			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				return out.JSON(resp)
			}
			out.Themes(resp)
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxThemes, "max", "n", 10, "Maximum themes")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read text from file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func themeInput(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
}
