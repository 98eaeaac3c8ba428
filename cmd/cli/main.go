package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

type statusRow struct {
	Index       int        `json:"index"`
	URL         string     `json:"url"`
	Label       string     `json:"label"`
	Detail      string     `json:"detail"`
	ElapsedMS   *float64   `json:"elapsed_ms"`
	LastChecked *time.Time `json:"last_checked"`
}

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:80"
	}

	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(api, "/")+"/api/status", nil)
	if err != nil {
		fmt.Println("Invalid API_BASE:", err)
		os.Exit(1)
	}
	if k := os.Getenv("API_KEY"); k != "" {
		req.Header.Set("X-API-Key", k)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Println("API returned status:", resp.Status)
		os.Exit(1)
	}

	var rows []statusRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		fmt.Println("Bad response:", err)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tURL\tSTATUS\tTIME\tCHECKED\tDETAIL")
	for _, r := range rows {
		elapsed, checked := "-", "-"
		if r.ElapsedMS != nil {
			elapsed = fmt.Sprintf("%.0f ms", *r.ElapsedMS)
		}
		if r.LastChecked != nil {
			checked = time.Since(*r.LastChecked).Round(time.Second).String() + " ago"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Index, r.URL, r.Label, elapsed, checked, r.Detail)
	}
	_ = tw.Flush()
}
