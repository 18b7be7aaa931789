package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"gospyce/pkg/analysis"
	"gospyce/pkg/netlist"
	"gospyce/pkg/scope"
	"gospyce/pkg/util"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	flagHTML  string
	flagPNG   string
	flagQuiet bool
)

var rootCmd = &cobra.Command{
	Use:   "gospyce",
	Short: "Transient circuit simulator",
}

var runCmd = &cobra.Command{
	Use:   "run <deck.cir>",
	Short: "Simulate a netlist deck",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		nl, err := netlist.Parse(f)
		if err != nil {
			return err
		}
		if nl.Tran == nil {
			return fmt.Errorf("deck %s has no .tran card", args[0])
		}

		tr, err := analysis.NewTransient(nl.Tran.Step, nl.Tran.Stop)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		runErr := tr.Run(ctx, nl)
		h := tr.History()
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "simulation failed: %v\n", runErr)
			if h.Len() == 0 {
				return runErr
			}
			fmt.Fprintf(os.Stderr, "keeping %d completed timesteps\n", h.Len())
		}

		if !flagQuiet {
			printResults(nl.Title, h)
		}
		if flagHTML != "" {
			if err := renderHTML(h); err != nil {
				return err
			}
		}
		if flagPNG != "" {
			if err := scope.SavePNG(flagPNG, h, nl.Title, channels(h)...); err != nil {
				return err
			}
		}
		return runErr
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gospyce", version)
	},
}

func channels(h *analysis.History) []scope.Channel {
	var chs []scope.Channel
	for _, key := range h.Keys() {
		switch {
		case strings.HasPrefix(key, "V(") && strings.HasSuffix(key, ")"):
			chs = append(chs, scope.Voltage{Node: key[2 : len(key)-1]})
		case strings.HasPrefix(key, "I(") && strings.HasSuffix(key, ")"):
			chs = append(chs, scope.Current{Device: key[2 : len(key)-1]})
		}
	}
	return chs
}

func renderHTML(h *analysis.History) error {
	f, err := os.Create(flagHTML)
	if err != nil {
		return err
	}
	defer f.Close()
	return scope.RenderHTML(f, h, "gospyce", channels(h)...)
}

func printResults(title string, h *analysis.History) {
	keys := h.Keys()

	fmt.Println(title)
	fmt.Printf("%-14s", "TIME")
	for _, key := range keys {
		fmt.Printf(" %-14s", key)
	}
	fmt.Println()

	cols := make([][]float64, len(keys))
	for i, key := range keys {
		cols[i], _ = h.Series(key)
	}
	for i, t := range h.Times() {
		fmt.Printf("%-14s", util.FormatSeconds(t))
		for _, col := range cols {
			fmt.Printf(" %-14.6g", col[i])
		}
		fmt.Println()
	}
}

func main() {
	runCmd.Flags().StringVar(&flagHTML, "html", "", "write an interactive waveform page")
	runCmd.Flags().StringVar(&flagPNG, "png", "", "write a waveform image")
	runCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "suppress the result table")
	rootCmd.AddCommand(runCmd, versionCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
