package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/sbhjt-gr/inferra-sub000/internal/domain"
	"github.com/sbhjt-gr/inferra-sub000/pkg/format"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "inferra",
		Short: "Inferra CLI - track and manage model downloads",
		Long:  `A command-line interface for the Inferra model download service.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8090", "Server URL")

	addCmd.Flags().String("url", "", "Submit this URL to the downloader before tracking")
	historyCmd.Flags().Int("limit", 20, "Maximum number of records")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [id] [name]",
	Short: "Register a download for tracking",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		url, _ := cmd.Flags().GetString("url")

		payload := map[string]interface{}{
			"id":   mustParseID(args[0]),
			"name": args[1],
		}
		if url != "" {
			payload["url"] = url
		}

		data, _ := json.Marshal(payload)
		resp, err := http.Post(serverURL+"/api/v1/downloads", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusCreated {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		fmt.Printf("Download registered\n")
		fmt.Printf("ID: %s\n", args[0])
		fmt.Printf("Name: %s\n", args[1])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active downloads",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/downloads")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		var downloads []domain.DownloadInfo
		if err := json.NewDecoder(resp.Body).Decode(&downloads); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(downloads) == 0 {
			fmt.Println("No active downloads")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSTATUS\tPROGRESS\tDOWNLOADED\tTOTAL")
		for _, d := range downloads {
			progress := fmt.Sprintf("%d%%", d.Progress)
			if d.TotalBytes == 0 {
				progress = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				d.ID, d.Name, d.Status, progress,
				format.Bytes(d.BytesDownloaded), format.Bytes(d.TotalBytes))
		}
		w.Flush()
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel an active download",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mustParseID(args[0])

		resp, err := http.Post(serverURL+"/api/v1/downloads/"+args[0]+"/cancel", "application/json", nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		fmt.Println("Download cancelled")
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently retired downloads",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		url := fmt.Sprintf("%s/api/v1/downloads/history?limit=%d", serverURL, limit)
		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		var records []struct {
			DownloadID int64     `json:"id"`
			Name       string    `json:"name"`
			Reason     string    `json:"reason"`
			Progress   int       `json:"progress"`
			TotalBytes int64     `json:"total_bytes"`
			RetiredAt  time.Time `json:"retired_at"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(records) == 0 {
			fmt.Println("No history")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tRESULT\tSIZE\tWHEN")
		for _, r := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				r.DownloadID, r.Name, r.Reason,
				format.Bytes(r.TotalBytes), humanize.Time(r.RetiredAt))
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/downloads/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		var stats struct {
			Active  int              `json:"active"`
			Retired map[string]int64 `json:"retired"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Active: %d\n", stats.Active)
		for reason, count := range stats.Retired {
			fmt.Printf("%s: %d\n", reason, count)
		}
	},
}

func mustParseID(raw string) int64 {
	var id int64
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid download id %q\n", raw)
		os.Exit(1)
	}
	return id
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
