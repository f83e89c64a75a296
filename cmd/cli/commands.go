package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	apiURL := os.Getenv("OMNIAUDIT_API")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}
	var client *apiClient

	root := &cobra.Command{
		Use:           "omniaudit",
		Short:         "Command line client for the omniaudit API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			client = newAPIClient(apiURL, defaultTokenPath())
		},
	}
	root.PersistentFlags().StringVar(&apiURL, "api", apiURL, "API base URL (env OMNIAUDIT_API)")

	get := func() *apiClient { return client }
	root.AddCommand(
		authCmd(get),
		auditCmd(get),
		chatCmd(get),
		usageCmd(get),
		tasksCmd(get),
		logsCmd(get),
		referralCmd(get),
	)
	return root
}

func authCmd(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{Use: "auth", Short: "Register, log in and out"}

	var username, password, referral string
	register := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store its token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			body := map[string]string{"username": username, "password": password}
			if referral != "" {
				body["referralCode"] = referral
			}
			return authenticate(cmd, client(), "/api/auth/register", body)
		},
	}
	login := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return authenticate(cmd, client(), "/api/auth/login", map[string]string{"username": username, "password": password})
		},
	}
	for _, c := range []*cobra.Command{register, login} {
		c.Flags().StringVarP(&username, "username", "u", "", "username")
		c.Flags().StringVarP(&password, "password", "p", "", "password")
		_ = c.MarkFlagRequired("username")
		_ = c.MarkFlagRequired("password")
	}
	register.Flags().StringVar(&referral, "referral", "", "referral code")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := client().clearToken(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
	whoami := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var me map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/api/auth/me", nil, &me); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%v (%v, tier %v)\n", me["username"], me["role"], me["tier"])
			return nil
		},
	}

	cmd.AddCommand(register, login, logout, whoami)
	return cmd
}

func authenticate(cmd *cobra.Command, c *apiClient, path string, body map[string]string) error {
	var result struct {
		Username string `json:"username"`
		Tier     string `json:"tier"`
		Token    string `json:"token"`
	}
	if err := c.do(cmd.Context(), http.MethodPost, path, body, &result); err != nil {
		return err
	}
	if err := c.saveToken(result.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (tier %s)\n", result.Username, result.Tier)
	return nil
}

func auditCmd(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{Use: "audit", Short: "Submit and read audits"}

	submit := &cobra.Command{
		Use:   "submit <form.json|->",
		Short: "Submit an audit form read from a file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			var form map[string]any
			if err := json.NewDecoder(r).Decode(&form); err != nil {
				return fmt.Errorf("read form: %w", err)
			}
			var audit map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/api/audits", form, &audit); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), audit)
		},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List audits",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var audits []map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/api/audits", nil, &audits); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tBUSINESS\tINDUSTRY\tCREATED")
			for _, a := range audits {
				fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", a["id"], a["businessName"], a["industry"], a["createdAt"])
			}
			return w.Flush()
		},
	}
	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one audit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("audit id must be a number")
			}
			var audit map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/api/audits/"+args[0], nil, &audit); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), audit)
		},
	}

	cmd.AddCommand(submit, list, get)
	return cmd
}

func chatCmd(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply struct {
				Content  string `json:"content"`
				Provider string `json:"provider"`
				Model    string `json:"model"`
				Usage    struct {
					Remaining int `json:"remaining"`
				} `json:"usage"`
			}
			if err := client().do(cmd.Context(), http.MethodPost, "/api/chat", map[string]string{"message": args[0]}, &reply); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
			fmt.Fprintf(cmd.ErrOrStderr(), "(%s %s, %d left this month)\n", reply.Provider, reply.Model, reply.Usage.Remaining)
			return nil
		},
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "Show chat history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var msgs []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			}
			if err := client().do(cmd.Context(), http.MethodGet, "/api/history", nil, &msgs); err != nil {
				return err
			}
			for _, m := range msgs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", m.Role, m.Content)
			}
			return nil
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete chat history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return client().do(cmd.Context(), http.MethodDelete, "/api/history", nil, nil)
		},
	}

	cmd.AddCommand(history, clearCmd)
	return cmd
}

func usageCmd(client func() *apiClient) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show this month's usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var usage struct {
				Tier     string `json:"tier"`
				Features []struct {
					Feature   string `json:"feature"`
					Limit     int    `json:"limit"`
					Used      int    `json:"used"`
					Remaining int    `json:"remaining"`
				} `json:"features"`
			}
			if err := client().do(cmd.Context(), http.MethodGet, "/api/usage", nil, &usage); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "tier: %s\n", usage.Tier)
			fmt.Fprintln(w, "FEATURE\tUSED\tLIMIT\tREMAINING")
			for _, f := range usage.Features {
				limit := strconv.Itoa(f.Limit)
				if f.Limit < 0 {
					limit = "unlimited"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", f.Feature, f.Used, limit, f.Remaining)
			}
			return w.Flush()
		},
	}
}

func tasksCmd(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{Use: "tasks", Short: "List and create automation tasks"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var tasks []map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSCHEDULE\tSTATUS\tLAST RUN")
			for _, t := range tasks {
				fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", t["id"], t["name"], orDash(t["schedule"]), t["status"], orDash(t["lastRunAt"]))
			}
			return w.Flush()
		},
	}

	var in struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Schedule    string `json:"schedule,omitempty"`
		Prompt      string `json:"prompt,omitempty"`
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a task, optionally on a cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var task map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/api/tasks", in, &task); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), task)
		},
	}
	create.Flags().StringVar(&in.Name, "name", "", "task name")
	create.Flags().StringVar(&in.Description, "description", "", "description")
	create.Flags().StringVar(&in.Schedule, "schedule", "", `cron spec, e.g. "0 9 * * 1"`)
	create.Flags().StringVar(&in.Prompt, "prompt", "", "LLM prompt run on each execution")
	_ = create.MarkFlagRequired("name")

	query := &cobra.Command{
		Use:   "ask <query>",
		Short: "Run a natural-language automation query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/api/automation/nlp-query", map[string]string{"query": args[0]}, &result); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result["content"])
			return nil
		},
	}

	cmd.AddCommand(list, create, query)
	return cmd
}

func logsCmd(client func() *apiClient) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent task and automation logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var entries []map[string]any
			path := "/api/logs?limit=" + strconv.Itoa(limit)
			if err := client().do(cmd.Context(), http.MethodGet, path, nil, &entries); err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tLEVEL\tTASK\tMESSAGE")
			for _, e := range entries {
				fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", e["createdAt"], e["level"], orDash(e["taskId"]), e["message"])
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "number of entries")
	return cmd
}

func referralCmd(client func() *apiClient) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referrals",
		Short: "Show your referral code and rewards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var summary map[string]any
			if err := client().do(cmd.Context(), http.MethodGet, "/api/referrals", nil, &summary); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	code := &cobra.Command{
		Use:   "code",
		Short: "Get or create your referral code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var rc map[string]any
			if err := client().do(cmd.Context(), http.MethodPost, "/api/referrals/code", nil, &rc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rc["code"])
			return nil
		},
	}
	cmd.AddCommand(code)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(v any) any {
	if v == nil || v == "" {
		return "-"
	}
	return v
}
