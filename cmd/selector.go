package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grovetools/recorder/cli"
	"github.com/grovetools/recorder/errors"
	"github.com/grovetools/recorder/selector"
	"github.com/grovetools/recorder/tui/components/table"
	"github.com/spf13/cobra"
)

// NewSelectorCmd creates the selector command group.
func NewSelectorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "selector",
		Short: "Build and check CSS selectors",
	}
	cmd.AddCommand(newSelectorGenerateCmd())
	cmd.AddCommand(newSelectorValidateCmd())
	return cmd
}

func newSelectorGenerateCmd() *cobra.Command {
	var (
		descriptor string
		tag        string
		attrs      []string
		classes    string
		sibling    int
		htmlFile   string
		all        bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a selector for an element description",
		Long: `Builds a selector from a partial element description, given either as
flags or as a JSON descriptor ({"tag","attributes","classes","siblingIndex",
"ancestors"}). With --html the candidates are checked against a page and
the first unique one is chosen.`,
		Example: `  recorder selector generate --tag button --attr data-testid=submit
  recorder selector generate --descriptor element.json --all
  recorder selector generate --tag input --attr name=email --html page.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := cli.LoadOptions(cmd)
			if err != nil {
				return err
			}

			var d selector.Descriptor
			if descriptor != "" {
				data, err := readCode(cmd.InOrStdin(), descriptor)
				if err != nil {
					return err
				}
				if err := json.Unmarshal([]byte(data), &d); err != nil {
					return errors.InvalidInput("malformed descriptor: " + err.Error())
				}
			}
			if tag != "" {
				d.Tag = tag
			}
			if classes != "" {
				d.Classes = classes
			}
			if sibling > 0 {
				d.SiblingIndex = sibling
			}
			for _, kv := range attrs {
				name, value, ok := strings.Cut(kv, "=")
				if !ok || name == "" {
					return errors.InvalidInput(fmt.Sprintf("attribute %q must be name=value", kv))
				}
				if d.Attributes == nil {
					d.Attributes = make(map[string]string)
				}
				d.Attributes[name] = value
			}

			gen := selector.New(selector.OptionsFrom(opts))
			candidates, err := gen.Candidates(d)
			if err != nil {
				return err
			}
			best, err := gen.Generate(d)
			if err != nil {
				return err
			}

			var validation *selector.Validation
			if htmlFile != "" {
				html, err := os.ReadFile(htmlFile)
				if err != nil {
					return errors.FileNotReadable(htmlFile, err)
				}
				c, v := selector.Best(candidates, string(html))
				best, validation = c, &v
			}

			if cli.GetOptions(cmd).JSONOutput {
				out := struct {
					Selector   selector.Candidate   `json:"selector"`
					Validation *selector.Validation `json:"validation,omitempty"`
					Candidates []selector.Candidate `json:"candidates,omitempty"`
				}{Selector: best, Validation: validation}
				if all {
					out.Candidates = candidates
				}
				return cli.PrintJSON(cmd.OutOrStdout(), out)
			}

			if !all {
				fmt.Fprintln(cmd.OutOrStdout(), best.Selector)
				if validation != nil && !validation.Unique {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s matches %d elements\n", best.Selector, validation.MatchCount)
				}
				return nil
			}
			tb := table.NewBuilder().WithHeaders("CONFIDENCE", "STRATEGY", "STABLE", "SELECTOR")
			for _, c := range candidates {
				tb.WithRows([]string{fmt.Sprintf("%.2f", c.Confidence), string(c.Strategy), strconv.FormatBool(c.Stable), c.Selector})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tb.Build().String())
			return err
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&descriptor, "descriptor", "", "JSON element descriptor file ('-' for stdin)")
	fs.StringVar(&tag, "tag", "", "Element tag name")
	fs.StringArrayVar(&attrs, "attr", nil, "Element attribute as name=value (repeatable)")
	fs.StringVar(&classes, "class", "", "Element class string")
	fs.IntVar(&sibling, "sibling-index", 0, "1-based position among its siblings")
	fs.StringVar(&htmlFile, "html", "", "HTML document to validate candidates against")
	fs.BoolVar(&all, "all", false, "Print every candidate, best first")
	return cmd
}

func newSelectorValidateCmd() *cobra.Command {
	var htmlFile string
	cmd := &cobra.Command{
		Use:   "validate <selector>",
		Short: "Count the elements a selector matches in an HTML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			html, err := readCode(cmd.InOrStdin(), htmlFile)
			if err != nil {
				return err
			}
			v := selector.Validate(args[0], html)
			if cli.GetOptions(cmd).JSONOutput {
				return cli.PrintJSON(cmd.OutOrStdout(), v)
			}
			switch {
			case !v.Valid:
				fmt.Fprintf(cmd.OutOrStdout(), "%s matches nothing\n", args[0])
			case v.Unique:
				fmt.Fprintf(cmd.OutOrStdout(), "%s is unique\n", args[0])
			default:
				fmt.Fprintf(cmd.OutOrStdout(), "%s matches %d elements\n", args[0], v.MatchCount)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlFile, "html", "-", "HTML document ('-' for stdin)")
	return cmd
}
