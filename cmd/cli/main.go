package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gotransfer-cli",
		Short: "GoTransfer CLI tool",
		Long:  `A command line interface for interacting with the GoTransfer API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the GoTransfer API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")

	accountCmd := &cobra.Command{
		Use:   "account",
		Short: "Account operations",
	}
	accountCmd.AddCommand(accountCreateCmd(), accountGetCmd(), accountBalanceCmd(), accountHistoryCmd(), accountListCmd())

	transferCmd := transferCmd()

	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Transfer record lookups",
	}
	recordCmd.AddCommand(recordGetCmd(), recordByKeyCmd())

	rootCmd.AddCommand(accountCmd, transferCmd, recordCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func accountCreateCmd() *cobra.Command {
	var holder, balance, status string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"holderName":     holder,
				"initialBalance": balance,
			}
			if status != "" {
				payload["status"] = status
			}

			return doRequest(http.MethodPost, "/api/v1/accounts", payload)
		},
	}

	cmd.Flags().StringVar(&holder, "holder", "", "Account holder name")
	cmd.Flags().StringVar(&balance, "balance", "0", "Initial balance")
	cmd.Flags().StringVar(&status, "status", "", "Account status (ACTIVE, LOCKED, CLOSED)")
	cmd.MarkFlagRequired("holder")

	return cmd
}

func accountGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get an account by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/accounts/"+args[0], nil)
		},
	}
}

func accountBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <id>",
		Short: "Get an account's balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/accounts/"+args[0]+"/balance", nil)
		},
	}
}

func accountHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "List an account's transfer history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/api/v1/accounts/%s/transfers?limit=%d", args[0], limit)
			return doRequest(http.MethodGet, path, nil)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to return")

	return cmd
}

func accountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/accounts", nil)
		},
	}
}

func transferCmd() *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "transfer <from> <to> <amount>",
		Short: "Transfer funds between two accounts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = ulid.Make().String()
				fmt.Printf("idempotency key: %s\n", key)
			}

			payload := map[string]any{
				"fromAccountId":  jsonNumber(args[0]),
				"toAccountId":    jsonNumber(args[1]),
				"amount":         args[2],
				"idempotencyKey": key,
			}

			return doRequest(http.MethodPost, "/api/v1/transfers", payload)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Idempotency key (generated when omitted)")

	return cmd
}

func recordGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a transfer record by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/transfers/"+args[0], nil)
		},
	}
}

func recordByKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <key>",
		Short: "Get the transfer record written for an idempotency key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, "/api/v1/transfers/key/"+args[0], nil)
		},
	}
}

// jsonNumber keeps numeric-looking arguments numeric in the request body.
func jsonNumber(s string) any {
	n := json.Number(s)
	if _, err := n.Int64(); err == nil {
		return n
	}

	return s
}

func doRequest(method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		fmt.Printf("request failed (Status: %d)\n", resp.StatusCode)
	}

	var parsed any
	if err := json.Unmarshal(data, &parsed); err != nil {
		fmt.Println(string(data))
		return nil
	}

	printJSON(parsed)

	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render response: %v\n", err)
		return
	}

	fmt.Println(string(data))
}
