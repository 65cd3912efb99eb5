package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	apiToken  string
	offset    int
	limit     int
	watch     bool
)

var rootCmd = &cobra.Command{
	Use:   "ccm",
	Short: "CCM - Company Collections Manager CLI",
	Long: `CCM (Company Collections Manager) is a CLI client for the CCM HTTP API.

List collections, inspect their companies, and launch asynchronous
copy and move operations between collections.`,
	Version: "1.0.0",
}

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List all collections",
	RunE:  runCollections,
}

var showCmd = &cobra.Command{
	Use:   "show <collection-id>",
	Short: "Show one page of a collection's companies",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var copyCmd = &cobra.Command{
	Use:   "copy <source-id> <target-id>",
	Short: "Copy all companies of the source collection into the target",
	Args:  cobra.ExactArgs(2),
	RunE:  runCopy,
}

var moveCmd = &cobra.Command{
	Use:   "move <source-id> <target-id> <company-id>...",
	Short: "Move the listed companies from the source collection into the target",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runMove,
}

var statusCmd = &cobra.Command{
	Use:   "status <operation-id>",
	Short: "Show an operation's progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("CCM CLI version %s\n", rootCmd.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:7070", "CCM server URL")
	rootCmd.PersistentFlags().StringVarP(&apiToken, "token", "t", "", "API token (default: CCM_API_TOKEN environment variable)")

	showCmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	showCmd.Flags().IntVar(&limit, "limit", 100, "Page size")
	statusCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the operation finishes")

	rootCmd.AddCommand(collectionsCmd, showCmd, copyCmd, moveCmd, statusCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCollections(cmd *cobra.Command, args []string) error {
	var response struct {
		Items []struct {
			ID             string `json:"id"`
			CollectionName string `json:"collection_name"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := request(http.MethodGet, "/api/v1/collections", nil, &response); err != nil {
		return err
	}

	for _, item := range response.Items {
		fmt.Printf("%s  %s\n", item.ID, item.CollectionName)
	}
	fmt.Printf("Total: %d\n", response.Total)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	path := fmt.Sprintf("/api/v1/collections/%s?offset=%d&limit=%d", args[0], offset, limit)

	var response struct {
		CollectionName string `json:"collection_name"`
		Companies      []struct {
			ID          int64  `json:"id"`
			CompanyName string `json:"company_name"`
			Liked       bool   `json:"liked"`
		} `json:"companies"`
		Total int `json:"total"`
	}
	if err := request(http.MethodGet, path, nil, &response); err != nil {
		return err
	}

	fmt.Printf("%s (%d companies)\n", response.CollectionName, response.Total)
	for _, company := range response.Companies {
		marker := " "
		if company.Liked {
			marker = "*"
		}
		fmt.Printf("%s %d  %s\n", marker, company.ID, company.CompanyName)
	}
	return nil
}

func runCopy(cmd *cobra.Command, args []string) error {
	path := fmt.Sprintf("/api/v1/collections/%s/copy-to/%s", args[0], args[1])

	var response struct {
		OperationID string `json:"operation_id"`
	}
	if err := request(http.MethodPost, path, nil, &response); err != nil {
		return err
	}

	fmt.Printf("Operation launched: %s\n", response.OperationID)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	companyIDs := make([]int64, 0, len(args)-2)
	for _, raw := range args[2:] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid company id %q", raw)
		}
		companyIDs = append(companyIDs, id)
	}

	path := fmt.Sprintf("/api/v1/collections/%s/move-to/%s", args[0], args[1])
	body := map[string]interface{}{"company_ids": companyIDs}

	var response struct {
		OperationID string `json:"operation_id"`
	}
	if err := request(http.MethodPost, path, body, &response); err != nil {
		return err
	}

	fmt.Printf("Operation launched: %s\n", response.OperationID)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := "/api/v1/operations/" + args[0]

	for {
		var response struct {
			Progress float64 `json:"progress"`
			Status   string  `json:"status"`
		}
		if err := request(http.MethodGet, path, nil, &response); err != nil {
			return err
		}

		fmt.Printf("%s  %.1f%%\n", response.Status, response.Progress)
		if !watch || response.Status != "in_progress" {
			return nil
		}
		time.Sleep(time.Second)
	}
}

// request performs an authenticated API call and decodes the JSON response
func request(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token := apiToken
	if token == "" {
		token = os.Getenv("CCM_API_TOKEN")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiError struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiError) == nil && apiError.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiError.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
