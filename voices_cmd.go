package main

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/shobdo/internal/voices"
	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:     "voices",
	Short:   "List the voice personas",
	Long:    paragraph(fmt.Sprintf("\n%s the voice personas. Pass an id or name to --voice; close spellings are matched too.", keyword("List"))),
	Example: paragraph("shobdo voices\nshobdo --voice \"rahim bhai\" \"কেমন আছেন?\""),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalog := voices.Default()
		current, err := resolveVoice()
		if err != nil {
			current = catalog.First()
		}

		out := cmd.OutOrStdout()
		for _, v := range catalog.All() {
			marker := "  "
			if v.ID == current.ID {
				marker = keyword("* ")
			}
			fmt.Fprintf(out, "%s%s %s\n", marker, keyword(v.Name), faint(fmt.Sprintf("(%s, %s)", v.ID, v.PrebuiltName)))
			fmt.Fprintf(out, "    %s\n", strings.Join([]string{v.Tagline, v.Personality}, ". "))
		}
		return nil
	},
}
