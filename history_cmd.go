package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgnsrekt/shobdo/internal/audio"
	"github.com/dgnsrekt/shobdo/internal/config"
	"github.com/dgnsrekt/shobdo/internal/history"
	"github.com/dgnsrekt/shobdo/internal/ttypes"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	historyCmd = &cobra.Command{
		Use:     "history",
		Short:   "List and manage past generations",
		Long:    paragraph(fmt.Sprintf("\n%s past generations. IDs may be shortened to any unique prefix.", keyword("Manage"))),
		Example: paragraph("shobdo history\nshobdo history export 3f2a ~/Music\nshobdo history play 3f2a"),
		Args:    cobra.NoArgs,
		RunE:    listHistory,
	}

	historyListCmd = &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List generations, newest first",
		Args:    cobra.NoArgs,
		RunE:    listHistory,
	}

	historyExportCmd = &cobra.Command{
		Use:   "export ID [PATH]",
		Short: "Write a generation's audio to a WAV file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				gen, err := findGeneration(store, args[0])
				if err != nil {
					return err
				}
				data, err := store.Audio(gen.ID)
				if err != nil {
					return err
				}

				path := history.FileName(gen)
				if len(args) == 2 {
					path = config.ExpandPath(args[1])
					if st, err := os.Stat(path); err == nil && st.IsDir() {
						path = filepath.Join(path, history.FileName(gen))
					}
				}
				if err := writeFile(path, data); err != nil {
					return err
				}
				fmt.Fprintln(os.Stderr, keyword("Saved"), path)
				return nil
			})
		},
	}

	historyPlayCmd = &cobra.Command{
		Use:   "play ID",
		Short: "Play a generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf *audio.Buffer
			err := withHistory(func(store *history.Store) error {
				gen, err := findGeneration(store, args[0])
				if err != nil {
					return err
				}
				data, err := store.Audio(gen.ID)
				if err != nil {
					return err
				}
				buf, err = audio.DecodeWAV(data)
				return err
			})
			if err != nil {
				return err
			}
			return playBuffer(cmd.Context(), buf)
		},
	}

	historyRmCmd = &cobra.Command{
		Use:     "rm ID...",
		Aliases: []string{"delete"},
		Short:   "Delete generations",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withHistory(func(store *history.Store) error {
				for _, arg := range args {
					gen, err := findGeneration(store, arg)
					if err != nil {
						return err
					}
					if err := store.Delete(gen.ID); err != nil {
						return err
					}
					fmt.Fprintln(os.Stderr, keyword("Deleted"), gen.ID)
				}
				return nil
			})
		},
	}

	historyClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every generation",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return withHistory(func(store *history.Store) error {
				n := len(store.List())
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "%s %d generations\n", keyword("Deleted"), n)
				return nil
			})
		},
	}
)

func withHistory(fn func(*history.Store) error) error {
	if !cfg.History.Enabled {
		return errors.New("history is disabled; set history.enabled in the config file")
	}
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck
	return fn(store)
}

// findGeneration resolves a full ID or a unique ID prefix.
func findGeneration(store *history.Store, id string) (history.Generation, error) {
	if gen, err := store.Get(id); err == nil {
		return gen, nil
	}

	var matches []history.Generation
	for _, gen := range store.List() {
		if strings.HasPrefix(gen.ID, id) {
			matches = append(matches, gen)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return history.Generation{}, ttypes.NewTTSError(ttypes.ErrorCodeNotFound, fmt.Sprintf("no generation %q", id), nil)
	default:
		return history.Generation{}, fmt.Errorf("%q matches %d generations; use more of the ID", id, len(matches))
	}
}

func listHistory(cmd *cobra.Command, _ []string) error {
	return withHistory(func(store *history.Store) error {
		out := cmd.OutOrStdout()
		list := store.List()
		if len(list) == 0 {
			fmt.Fprintln(out, faint("No generations yet."))
			return nil
		}

		width := 80
		if term.IsTerminal(int(os.Stdout.Fd())) {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
				width = w
			}
		}

		for _, gen := range list {
			prefix := fmt.Sprintf("%-8s  %-14s  %-7s  %5.1fs  ",
				shortID(gen.ID), humanize.Time(gen.CreatedAt), gen.VoiceID, gen.Duration.Seconds())
			room := width - len(prefix)
			if room < 10 {
				room = 10
			}
			text := strings.Join(strings.Fields(gen.Text), " ")
			fmt.Fprintln(out, keyword(prefix[:8])+prefix[8:]+truncate.StringWithTail(text, uint(room), "…")) //nolint:gosec
		}

		st := store.Stats()
		fmt.Fprintln(out, faint(fmt.Sprintf("\n%d generations, %s on disk (%s of audio)",
			st.Count, humanize.Bytes(uint64(st.DiskSize)), humanize.Bytes(uint64(st.AudioSize))))) //nolint:gosec
		return nil
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.AddCommand(historyListCmd, historyExportCmd, historyPlayCmd, historyRmCmd, historyClearCmd)
}
