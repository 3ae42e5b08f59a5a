package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fixturelab/plumbline/internal/config"
	"github.com/fixturelab/plumbline/internal/ingest"
)

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import an installation dataset from a CSV file",
	Long: `Import an installation dataset from a CSV file.

The first row is treated as the header. The imported rows replace the
current dataset.

Example:
  plumbline import ./inspections.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening file: %w", err)
		}
		defer f.Close()

		rows, err := ingest.ParseCSV(f)
		if err != nil {
			return fmt.Errorf("parsing CSV: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Uploading %d rows...", len(rows))
		resp, err := client.post(cmd.Context(), "/dataset", rows)
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Imported %d rows from %s", len(rows), args[0])
		return nil
	},
}

// --- report ---

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the compiled installation report notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		asCSV, _ := cmd.Flags().GetBool("csv")
		output, _ := cmd.Flags().GetString("output")
		unitColumn, _ := cmd.Flags().GetString("unit-column")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		query := ""
		if unitColumn != "" {
			query = "?unit_column=" + url.QueryEscape(unitColumn)
		}

		var writer *os.File
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		} else {
			writer = os.Stdout
		}

		if asCSV {
			resp, err := client.get(cmd.Context(), "/report/export.csv"+query)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				body, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
			}
			if _, err := io.Copy(writer, resp.Body); err != nil {
				return err
			}
			if output != "" {
				printSuccess("Report written to %s", output)
			}
			return nil
		}

		resp, err := client.get(cmd.Context(), "/report/notes"+query)
		if err != nil {
			return err
		}

		var notes []struct {
			Unit string `json:"unit"`
			Note string `json:"note"`
		}
		if err := decodeJSON(resp, &notes); err != nil {
			return err
		}

		if len(notes) == 0 {
			fmt.Fprintln(writer, "No notes to report.")
			return nil
		}

		for _, n := range notes {
			fmt.Fprintf(writer, "%s  %s\n", colorize(colorBold, n.Unit), n.Note)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().Bool("csv", false, "emit CSV instead of plain text")
	reportCmd.Flags().String("output", "", "output file path (default: stdout)")
	reportCmd.Flags().String("unit-column", "", "override the unit column name")
}

// --- notes ---

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Manage manually edited unit notes",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored unit notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/notes")
		if err != nil {
			return err
		}

		var notes []struct {
			Unit      string `json:"unit"`
			Content   string `json:"content"`
			Timestamp string `json:"timestamp"`
		}
		if err := decodeJSON(resp, &notes); err != nil {
			return err
		}

		if len(notes) == 0 {
			fmt.Println("No stored notes.")
			return nil
		}

		for _, n := range notes {
			fmt.Printf("%s  %s  %s\n", colorize(colorCyan, n.Unit), n.Timestamp, n.Content)
		}
		return nil
	},
}

var notesSetCmd = &cobra.Command{
	Use:   "set <unit> <content>",
	Short: "Overwrite the note for a unit",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit := args[0]
		content := strings.Join(args[1:], " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{"content": content}
		resp, err := client.put(cmd.Context(), "/notes/"+url.PathEscape(unit), body)
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Stored note for unit %s", unit)
		return nil
	},
}

var notesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all stored unit notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL stored notes. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/notes")
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("All stored notes cleared")
		return nil
	},
}

func init() {
	notesClearCmd.Flags().Bool("confirm", false, "confirm deletion")
	notesCmd.AddCommand(notesListCmd)
	notesCmd.AddCommand(notesSetCmd)
	notesCmd.AddCommand(notesClearCmd)
}

// --- annotate ---

var annotateCmd = &cobra.Command{
	Use:   "annotate <unit>",
	Short: "Attach an annotation to a unit",
	Long: `Attach an annotation to a unit. The annotation is appended to the
unit's compiled report note.

Examples:
  plumbline annotate 101 --text "Replaced shutoff valve"
  plumbline annotate 101 --url https://example.com/spec-sheet
  plumbline annotate 101 --pdf ./work-order.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unit := args[0]
		text, _ := cmd.Flags().GetString("text")
		pageURL, _ := cmd.Flags().GetString("url")
		pdfPath, _ := cmd.Flags().GetString("pdf")

		if text == "" && pageURL == "" && pdfPath == "" {
			return fmt.Errorf("one of --text, --url, or --pdf is required")
		}

		req := map[string]string{"unit": unit}
		switch {
		case text != "":
			req["type"] = "text"
			req["content"] = text
		case pageURL != "":
			req["type"] = "url"
			req["url"] = pageURL
		case pdfPath != "":
			data, err := os.ReadFile(pdfPath)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			req["type"] = "pdf"
			req["content"] = base64.StdEncoding.EncodeToString(data)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ingest", req)
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Attached annotation to unit %s", unit)
		return nil
	},
}

func init() {
	annotateCmd.Flags().String("text", "", "annotation text")
	annotateCmd.Flags().String("url", "", "URL to fetch; the page text becomes the annotation")
	annotateCmd.Flags().String("pdf", "", "PDF file; the extracted text becomes the annotation")
}

// --- columns ---

var columnsCmd = &cobra.Command{
	Use:   "columns",
	Short: "Inspect dataset columns and choose which ones feed the report",
}

var columnsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dataset columns and the detected unit column",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/dataset/columns")
		if err != nil {
			return err
		}

		var result struct {
			Columns    []string `json:"columns"`
			UnitColumn string   `json:"unit_column"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		selResp, err := client.get(cmd.Context(), "/selected-columns")
		if err != nil {
			return err
		}
		var selected []string
		if err := decodeJSON(selResp, &selected); err != nil {
			return err
		}
		isSelected := make(map[string]bool, len(selected))
		for _, name := range selected {
			isSelected[name] = true
		}

		for _, col := range result.Columns {
			marker := " "
			if col == result.UnitColumn {
				marker = colorize(colorCyan, "U")
			} else if isSelected[col] {
				marker = colorize(colorGreen, "*")
			}
			fmt.Printf("%s %s\n", marker, col)
		}
		return nil
	},
}

var columnsSelectCmd = &cobra.Command{
	Use:   "select <column>...",
	Short: "Set the columns whose values feed the compiled notes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/selected-columns", args)
		if err != nil {
			return err
		}
		if err := drainOK(resp); err != nil {
			return err
		}

		printSuccess("Selected %d columns", len(args))
		return nil
	},
}

func init() {
	columnsCmd.AddCommand(columnsListCmd)
	columnsCmd.AddCommand(columnsSelectCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
